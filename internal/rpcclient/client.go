package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/service"
)

const defaultTimeout = 10 * time.Second

// RemoteError is an error returned by the server for one call.
type RemoteError struct {
	Status    int               `json:"-"`
	Procedure string            `json:"-"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Procedure, e.Code, e.Message)
}

// IsRemoteCode reports whether err is a RemoteError with the given code.
func IsRemoteCode(err error, code string) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == code
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *RemoteError    `json:"error"`
}

// Client talks to the HTTP RPC surface.
type Client struct {
	http    *resty.Client
	timeout time.Duration
}

// New builds a client for baseURL. Per-call timeouts come from the context,
// so the streaming read is never cut short.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		timeout: timeout,
	}
}

// HTTPClient exposes the underlying client for transport tweaks in tests.
func (c *Client) HTTPClient() *resty.Client {
	return c.http
}

// Call invokes one procedure and decodes its result into out, which may be
// nil.
func (c *Client) Call(ctx context.Context, procedure string, input, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var env envelope
	req := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)
	if input != nil {
		req.SetBody(input)
	}

	resp, err := req.Post("/api/rpc/" + procedure)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", procedure, err)
	}
	if resp.IsError() || env.Error != nil {
		return remoteError(procedure, resp.StatusCode(), env.Error)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", procedure, err)
	}
	return nil
}

func remoteError(procedure string, status int, e *RemoteError) *RemoteError {
	if e == nil {
		e = &RemoteError{Code: "INTERNAL", Message: http.StatusText(status)}
	}
	e.Status = status
	e.Procedure = procedure
	return e
}

func (c *Client) ListAlerts(ctx context.Context, in service.ListAlertsInput) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := c.Call(ctx, "alerts.list", in, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.Call(ctx, "users.list", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.Call(ctx, "users.get", service.IDInput{ID: id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateAlert(ctx context.Context, in service.CreateAlertInput) (*models.Alert, error) {
	var alert models.Alert
	if err := c.Call(ctx, "alerts.create", in, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (c *Client) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	if err := c.Call(ctx, "alerts.resolve", service.IDInput{ID: id}, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

type BatchCall struct {
	ID        string `json:"id"`
	Procedure string `json:"procedure"`
	Input     any    `json:"input,omitempty"`
}

type BatchResult struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Err    *RemoteError    `json:"error,omitempty"`
}

// Decode unmarshals the result of a successful call into out.
func (r BatchResult) Decode(out any) error {
	if r.Err != nil {
		return r.Err
	}
	return json.Unmarshal(r.Result, out)
}

// Batch sends calls in one request. The returned error covers only the
// request as a whole; per-call failures are in each result.
func (c *Client) Batch(ctx context.Context, calls []BatchCall) ([]BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		results []BatchResult
		failure struct {
			Error *RemoteError `json:"error"`
		}
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(calls).
		SetResult(&results).
		SetError(&failure).
		Post("/api/rpc")
	if err != nil {
		return nil, fmt.Errorf("failed to send batch: %w", err)
	}
	if resp.IsError() {
		return nil, remoteError("batch", resp.StatusCode(), failure.Error)
	}

	byID := make(map[string]BatchCall, len(calls))
	for _, call := range calls {
		byID[call.ID] = call
	}
	for i := range results {
		if results[i].Err != nil {
			results[i].Err.Procedure = byID[results[i].ID].Procedure
		}
	}
	return results, nil
}

// Stream reads the NDJSON snapshot stream and calls fn for each snapshot
// until ctx ends, the server closes the stream or fn fails.
func (c *Client) Stream(ctx context.Context, fn func(*models.Snapshot) error) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "application/x-ndjson").
		SetQueryParam("format", "ndjson").
		Get("/api/stream")
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return remoteError("stream", resp.StatusCode(), nil)
	}

	dec := json.NewDecoder(body)
	for {
		var snap models.Snapshot
		if err := dec.Decode(&snap); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}
		if err := fn(&snap); err != nil {
			return err
		}
	}
}
