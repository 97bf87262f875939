package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/safetywatch/internal/apperr"
)

type rpcError struct {
	Code    apperr.Kind       `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// toRPCError converts err for the wire. Internal details are logged, never
// returned.
func toRPCError(err error, procedure string) (int, *rpcError) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		slog.Error("request failed", "procedure", procedure, "error", err)
	}
	return statusFor(kind), &rpcError{
		Code:    kind,
		Message: apperr.PublicMessage(err),
		Fields:  apperr.FieldsOf(err),
	}
}

func writeError(c *gin.Context, err error) {
	status, body := toRPCError(err, c.FullPath())
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
