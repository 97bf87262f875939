package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/safetywatch/internal/apperr"
)

const maxBatchCalls = 25

type procedureFunc func(ctx context.Context, input json.RawMessage) (any, error)

// procedure is a registered call. Mutations are only reachable over POST.
type procedure struct {
	call     procedureFunc
	mutation bool
}

// bind decodes the raw input into In and calls fn.
func bind[In any, Out any](fn func(context.Context, In) (Out, error)) procedureFunc {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var in In
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, apperr.Validation(fmt.Sprintf("malformed input: %v", err), nil)
			}
		}
		return fn(ctx, in)
	}
}

func query(fn procedureFunc) procedure { return procedure{call: fn} }
func mutation(fn procedureFunc) procedure { return procedure{call: fn, mutation: true} }

func (h *Handler) buildProcedures() map[string]procedure {
	s := h.svc
	return map[string]procedure{
		"alerts.list":    query(bind(s.Alerts.List)),
		"alerts.create":  mutation(bind(s.Alerts.Create)),
		"alerts.resolve": mutation(bind(s.Alerts.Resolve)),

		"users.list": query(bind(func(ctx context.Context, _ struct{}) (any, error) {
			return s.Users.List(ctx)
		})),
		"users.get":          query(bind(s.Users.Get)),
		"users.create":       mutation(bind(s.Users.Create)),
		"users.linkTelegram": mutation(bind(s.Users.LinkTelegram)),

		"emergencyContacts.listByUser": query(bind(s.Contacts.ListByUser)),
		"emergencyContacts.create":     mutation(bind(s.Contacts.Create)),
		"emergencyContacts.update":     mutation(bind(s.Contacts.Update)),
		"emergencyContacts.delete":     mutation(bind(s.Contacts.Delete)),

		"detectionRules.getByUser": query(bind(s.Rules.GetByUser)),
		"detectionRules.create":    mutation(bind(s.Rules.Create)),
		"detectionRules.update":    mutation(bind(s.Rules.Update)),

		"locations.record":  mutation(bind(s.Locations.Record)),
		"locations.history": query(bind(s.Locations.History)),
	}
}

func (h *Handler) invoke(ctx context.Context, name string, input json.RawMessage) (any, error) {
	proc, ok := h.procedures[name]
	if !ok {
		return nil, apperr.NotFound("procedure", name)
	}
	return proc.call(ctx, input)
}

// callProcedure serves POST /api/rpc/:procedure with the body as input, and
// GET with the input in the "input" query parameter. GET is limited to
// queries.
func (h *Handler) callProcedure(c *gin.Context) {
	name := c.Param("procedure")

	var input json.RawMessage
	if c.Request.Method == http.MethodGet {
		if proc, ok := h.procedures[name]; ok && proc.mutation {
			c.Header("Allow", http.MethodPost)
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
				"error": rpcError{Code: "METHOD_NOT_ALLOWED", Message: name + " is a mutation and requires POST"},
			})
			return
		}
		if q := c.Query("input"); q != "" {
			input = json.RawMessage(q)
		}
	} else {
		body, err := c.GetRawData()
		if err != nil {
			writeError(c, apperr.Validation("unreadable request body", nil))
			return
		}
		input = body
	}

	result, err := h.invoke(c.Request.Context(), name, input)
	if err != nil {
		status, body := toRPCError(err, name)
		c.JSON(status, gin.H{"error": body})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

type batchCall struct {
	ID        string          `json:"id"`
	Procedure string          `json:"procedure"`
	Input     json.RawMessage `json:"input"`
}

type batchResult struct {
	ID     string    `json:"id"`
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
}

// callBatch runs each call in order. A failing call does not affect the
// others.
func (h *Handler) callBatch(c *gin.Context) {
	var calls []batchCall
	if err := c.ShouldBindJSON(&calls); err != nil {
		writeError(c, apperr.Validation("batch body must be an array of {id, procedure, input}", nil))
		return
	}
	if len(calls) == 0 {
		writeError(c, apperr.Validation("batch must contain at least one call", nil))
		return
	}
	if len(calls) > maxBatchCalls {
		writeError(c, apperr.Validation(fmt.Sprintf("batch exceeds %d calls", maxBatchCalls), nil))
		return
	}

	results := make([]batchResult, len(calls))
	for i, call := range calls {
		results[i].ID = call.ID
		out, err := h.invoke(c.Request.Context(), call.Procedure, call.Input)
		if err != nil {
			_, results[i].Error = toRPCError(err, call.Procedure)
			continue
		}
		results[i].Result = out
	}
	c.JSON(http.StatusOK, results)
}

// Procedures lists the registered procedure names.
func (h *Handler) Procedures() []string {
	names := make([]string, 0, len(h.procedures))
	for name := range h.procedures {
		names = append(names, name)
	}
	return names
}
