package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mr1hm/safetywatch/internal/feed"
	"github.com/mr1hm/safetywatch/internal/metrics"
	"github.com/mr1hm/safetywatch/internal/service"
)

type Services struct {
	Alerts    *service.AlertService
	Users     *service.UserService
	Contacts  *service.ContactService
	Rules     *service.RuleService
	Locations *service.LocationService
}

type Handler struct {
	svc        Services
	feed       *feed.Feed
	metrics    *metrics.Metrics
	procedures map[string]procedure
	upgrader   websocket.Upgrader
}

func NewHandler(svc Services, f *feed.Feed, m *metrics.Metrics) *Handler {
	h := &Handler{
		svc:     svc,
		feed:    f,
		metrics: m,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// Origins are enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.procedures = h.buildProcedures()
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/rpc", h.callBatch)
	api.POST("/rpc/:procedure", h.callProcedure)
	api.GET("/rpc/:procedure", h.callProcedure)

	api.GET("/alerts", h.getAlerts)
	api.GET("/users", h.getUsers)
	api.GET("/users/:id", h.getUser)
	api.GET("/map", h.getMap)

	api.GET("/stream", h.stream)
	api.GET("/ws", h.serveWebsocket)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
