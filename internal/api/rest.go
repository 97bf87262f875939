package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/service"
)

func (h *Handler) getAlerts(c *gin.Context) {
	var in service.ListAlertsInput

	if u := c.Query("userId"); u != "" {
		in.UserID = &u
	}
	if r := c.Query("isResolved"); r != "" {
		resolved, err := strconv.ParseBool(r)
		if err != nil {
			writeError(c, apperr.FieldError("isResolved", "must be true or false"))
			return
		}
		in.IsResolved = &resolved
	}
	if l := c.Query("limit"); l != "" {
		lim, err := strconv.Atoi(l)
		if err != nil {
			writeError(c, apperr.FieldError("limit", "must be an integer"))
			return
		}
		in.Limit = lim
	}

	alerts, err := h.svc.Alerts.List(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) getUsers(c *gin.Context) {
	users, err := h.svc.Users.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getUser(c *gin.Context) {
	u, err := h.svc.Users.Get(c.Request.Context(), service.IDInput{ID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) getMap(c *gin.Context) {
	snap, err := h.feed.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, apperr.Internal("failed to build snapshot", err))
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, snapshotGeoJSON(snap))
}
