package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"order-service/internal/orders"
	"order-service/internal/payments"
	"order-service/pkg/ctxmanage"
	"order-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Checkout creates a PENDING order, opens a checkout session with the
// payment gateway and links the two. The customer finishes payment on
// the gateway-hosted page; confirmation arrives later via the webhook.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	// Check if the size of the request body exceeds 64 KB
	if c.Request.ContentLength > 64*1024 {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId),
			slog.Int64("Size Received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body too large."})
		return
	}

	var newOrder orders.NewOrder
	if err := c.ShouldBindJSON(&newOrder); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	validate := validator.New()
	if err := validate.Struct(newOrder); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErrs[0].Field() + " value invalid"})
			return
		}
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	newOrder.DeliveryFee = h.cfg.DeliveryFee

	ctx := c.Request.Context()
	order, err := h.o.CreateOrder(ctx, newOrder)
	if err != nil {
		slog.Error("error creating order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	session, err := h.g.CreateSession(ctx, payments.SessionParams{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		Items:         order.Items,
		DeliveryFee:   order.DeliveryFee,
		Currency:      h.cfg.Currency,
		SuccessURL:    h.cfg.SuccessURL,
		CancelURL:     h.cfg.CancelURL,
	})
	if err != nil {
		slog.Error("error creating checkout session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderNumber, order.OrderNumber), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	if err := h.o.AttachSession(ctx, order.ID, session.ID); err != nil {
		slog.Error("error linking order to session", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderNumber, order.OrderNumber), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to link order to session"})
		return
	}

	slog.Info("order created", slog.String(logkey.TraceID, traceId),
		slog.String(logkey.OrderNumber, order.OrderNumber), slog.String(logkey.SessionID, session.ID))

	c.JSON(http.StatusOK, gin.H{
		"order_number":         order.OrderNumber,
		"total":                order.Total,
		"checkout_session_url": session.URL,
	})
}

// OrderStatus is the public polling endpoint the storefront UI uses.
func (h *Handler) OrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	orderNumber := c.Param("number")

	order, err := h.o.GetOrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderNumber, orderNumber), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_number":   order.OrderNumber,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"subtotal":       order.Subtotal,
		"delivery_fee":   order.DeliveryFee,
		"total":          order.Total,
		"confirmed_at":   order.ConfirmedAt,
	})
}
