package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"order-service/internal/orders"
	"order-service/pkg/ctxmanage"
	"order-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// The ops endpoints replace the pile of one-off diagnostic scripts the
// storefront used to run whenever a webhook delivery went missing:
// inspect compares the database against the live gateway session,
// reconcile re-drives the confirmation workflow from gateway state,
// and notify re-sends the emails for an already-confirmed order.

// InspectOrder returns the stored order next to the live gateway
// session state, flagging the classic stuck case: gateway says paid,
// database still says PENDING.
func (h *Handler) InspectOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderNumber := c.Param("number")

	order, err := h.o.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	resp := gin.H{"order": order}
	if order.StripeSessionID == "" {
		resp["session"] = nil
		resp["mismatch"] = false
		c.JSON(http.StatusOK, resp)
		return
	}

	session, err := h.g.RetrieveSession(c.Request.Context(), order.StripeSessionID)
	if err != nil {
		slog.Error("error retrieving gateway session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, order.StripeSessionID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve gateway session"})
		return
	}

	resp["session"] = session
	resp["mismatch"] = session.PaymentStatus == "paid" && order.Status == orders.StatusPending
	c.JSON(http.StatusOK, resp)
}

// ReconcileOrder pulls the session state from the gateway and, if it
// reports a completed payment, runs the exact confirmation workflow a
// webhook delivery would have run. Safe to repeat: the idempotency
// gate makes a second run a no-op.
func (h *Handler) ReconcileOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderNumber := c.Param("number")

	order, err := h.o.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}
	if order.StripeSessionID == "" {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Order has no checkout session"})
		return
	}

	session, err := h.g.RetrieveSession(c.Request.Context(), order.StripeSessionID)
	if err != nil {
		slog.Error("error retrieving gateway session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.SessionID, order.StripeSessionID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve gateway session"})
		return
	}

	outcome, err := h.c.Process(c.Request.Context(), orders.PaymentEvent{
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntentID,
		PaymentStatus:   session.PaymentStatus,
		OrderNumber:     order.OrderNumber,
	})
	if err != nil {
		slog.Error("reconcile failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderNumber, orderNumber), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile order"})
		return
	}

	slog.Info("order reconciled", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.OrderNumber, orderNumber), slog.String("outcome", string(outcome)))
	c.JSON(http.StatusOK, gin.H{
		"order_number":           orderNumber,
		"gateway_payment_status": session.PaymentStatus,
		"outcome":                outcome,
	})
}

// ResendNotifications re-triggers both emails for a confirmed order
// without re-running any payment logic.
func (h *Handler) ResendNotifications(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderNumber := c.Param("number")

	err := h.c.ResendNotifications(c.Request.Context(), orderNumber)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, orders.ErrNotConfirmed):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Order is not confirmed"})
		default:
			slog.Error("resend notifications failed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderNumber, orderNumber), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notifications"})
		}
		return
	}

	slog.Info("notifications re-sent", slog.String(logkey.TraceID, traceId), slog.String(logkey.OrderNumber, orderNumber))
	c.JSON(http.StatusOK, gin.H{"order_number": orderNumber, "notified": true})
}

// StuckOrders lists PENDING orders older than the given number of
// minutes; the visible symptom of a missed webhook delivery.
func (h *Handler) StuckOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	minutes := 30
	if raw := c.Query("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid minutes parameter"})
			return
		}
		minutes = parsed
	}

	stale, err := h.o.ListStalePending(c.Request.Context(), time.Duration(minutes)*time.Minute)
	if err != nil {
		slog.Error("error listing stale pending orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(stale), "orders": stale})
}
