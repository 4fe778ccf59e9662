package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"order-service/internal/orders"
	"order-service/internal/payments"
	"order-service/pkg/ctxmanage"
	"order-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
)

// Webhook receives asynchronous events from the payment gateway. Only
// signature and parse failures answer non-200; every business outcome
// is acknowledged so the gateway stops redelivering events that
// redelivery cannot fix.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	const MaxBodyBytes = int64(65536)

	// Limit the request body size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("failed to read webhook body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	event, err := payments.VerifyEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.WebhookSecret)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrAuthenticationFailed):
			slog.Error("webhook signature verification failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		default:
			slog.Error("malformed webhook event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		ev, err := paymentEventFromSession(event)
		if err != nil {
			slog.Error("failed to unmarshal checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome, err := h.c.Process(c.Request.Context(), ev)
		if err != nil {
			// Store failure; a gateway redelivery can help here.
			slog.Error("failed to process payment event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.SessionID, ev.SessionID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
			return
		}
		slog.Info("payment event processed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, ev.SessionID), slog.String("outcome", string(outcome)))
		c.JSON(http.StatusOK, gin.H{"received": true})

	case "checkout.session.async_payment_failed", "checkout.session.expired":
		ev, err := paymentEventFromSession(event)
		if err != nil {
			slog.Error("failed to unmarshal checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome, err := h.c.ProcessFailure(c.Request.Context(), ev)
		if err != nil {
			slog.Error("failed to process failure event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.SessionID, ev.SessionID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
			return
		}
		slog.Info("failure event processed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, ev.SessionID), slog.String("outcome", string(outcome)))
		c.JSON(http.StatusOK, gin.H{"received": true})

	default:
		slog.Info("unhandled event type", slog.String(logkey.TraceID, traceId), slog.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func paymentEventFromSession(event stripe.Event) (orders.PaymentEvent, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return orders.PaymentEvent{}, errors.Join(payments.ErrMalformedEvent, err)
	}
	ev := orders.PaymentEvent{
		SessionID:     session.ID,
		PaymentStatus: string(session.PaymentStatus),
		OrderNumber:   session.Metadata["order_number"],
		OrderID:       session.Metadata["order_id"],
	}
	if session.PaymentIntent != nil {
		ev.PaymentIntentID = session.PaymentIntent.ID
	}
	return ev, nil
}
