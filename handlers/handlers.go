package handlers

import (
	"os"

	"order-service/internal/auth"
	"order-service/internal/orders"
	"order-service/internal/payments"
	"order-service/middleware"

	"github.com/gin-gonic/gin"
)

// Config carries everything the handlers need beyond their injected
// collaborators.
type Config struct {
	WebhookSecret string
	DeliveryFee   int64 // In cents
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type Handler struct {
	o   *orders.Conf
	c   *orders.Confirmer
	g   payments.Gateway
	cfg Config
}

func NewHandler(o *orders.Conf, c *orders.Confirmer, g payments.Gateway, cfg Config) *Handler {
	return &Handler{
		o:   o,
		c:   c,
		g:   g,
		cfg: cfg,
	}
}

func API(endpointPrefix string, k *auth.Keys, o *orders.Conf, c *orders.Confirmer,
	g payments.Gateway, cfg Config) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	m, err := middleware.NewMid(k)
	if err != nil {
		panic(err)
	}

	h := NewHandler(o, c, g, cfg)
	r.Use(middleware.Logger(), gin.Recovery())

	r.GET("/ping", HealthCheck)
	v1 := r.Group(endpointPrefix)
	{
		v1.POST("/webhook", h.Webhook)
		v1.POST("/checkout", h.Checkout)
		v1.GET("/status/:number", h.OrderStatus)
	}

	ops := r.Group(endpointPrefix + "/ops")
	{
		ops.Use(m.Authentication())
		ops.GET("/pending", m.Authorize(h.StuckOrders, auth.RoleAdmin))
		ops.GET("/order/:number", m.Authorize(h.InspectOrder, auth.RoleAdmin))
		ops.POST("/order/:number/reconcile", m.Authorize(h.ReconcileOrder, auth.RoleAdmin))
		ops.POST("/order/:number/notify", m.Authorize(h.ResendNotifications, auth.RoleAdmin))
	}
	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "pong",
	})
}
