package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pavanhd360/bakery-web/models"
	"github.com/pavanhd360/bakery-web/store"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", float64(time.Since(start).Microseconds())/1000.0,
			"request_id", c.GetString(requestIDKey),
		)
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// storeFailure answers 500 without leaking driver details to the client.
func storeFailure(c *gin.Context, log *slog.Logger, op string, err error) {
	log.Error(op+"_failed", "error", err, "request_id", c.GetString(requestIDKey))
	fail(c, http.StatusInternalServerError, "internal server error")
}

func SetupRouter(st *store.Store, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestID(), requestLogger(log), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			log.Error("health_check_failed", "error", err, "request_id", c.GetString(requestIDKey))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Catalog
	api.GET("/products", func(c *gin.Context) {
		products, err := st.ListProducts(c.Request.Context())
		if err != nil {
			storeFailure(c, log, "list_products", err)
			return
		}
		c.JSON(http.StatusOK, products)
	})

	// Checkout: one order header plus its line items
	api.POST("/cart/checkout", func(c *gin.Context) {
		var req models.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		order, err := st.PlaceOrder(c.Request.Context(), req)
		switch {
		case err == nil:
		case errors.Is(err, models.ErrInvalidRequest):
			fail(c, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, store.ErrUnknownProduct), errors.Is(err, gorm.ErrForeignKeyViolated):
			fail(c, http.StatusUnprocessableEntity, err.Error())
			return
		default:
			storeFailure(c, log, "place_order", err)
			return
		}
		log.Info("order_placed",
			"order_id", order.ID,
			"items", len(order.Items),
			"total", order.TotalAmount.String(),
			"request_id", c.GetString(requestIDKey),
		)
		c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": order.ID})
	})

	// Feedback and newsletter sign-ups
	api.POST("/feedback", func(c *gin.Context) {
		var req models.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := st.SaveFeedback(c.Request.Context(), req); err != nil {
			if errors.Is(err, models.ErrInvalidRequest) {
				fail(c, http.StatusBadRequest, err.Error())
				return
			}
			storeFailure(c, log, "save_feedback", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	return r
}
