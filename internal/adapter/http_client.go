package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/soffoalbert/buzo-sync/models"
)

// HTTPClientConfig configures the HTTP implementation of RemoteClient.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpRemoteClient struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPRemoteClient builds a RemoteClient over the REST endpoints of the
// Buzo backend.
func NewHTTPRemoteClient(cfg HTTPClientConfig) RemoteClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpRemoteClient{client: cli}
}

func (h *httpRemoteClient) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpRemoteClient) currentToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// pushRequest is the wire form of one mutation.
type pushRequest struct {
	UserID     string          `json:"user_id"`
	Operation  string          `json:"operation"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ClientOpID string          `json:"client_op_id"`
}

// pullResponse is the wire form of the authoritative record set.
type pullResponse struct {
	Records []models.SyncableRecord `json:"records"`
	Length  int                     `json:"length"`
}

func (h *httpRemoteClient) Push(ctx context.Context, userID string, op models.PendingOperation) error {
	body := pushRequest{
		UserID:     userID,
		Operation:  string(op.OpType),
		EntityType: op.EntityType,
		EntityID:   op.EntityID,
		Payload:    op.Payload,
		UpdatedAt:  op.UpdatedAt,
		ClientOpID: op.ID,
	}

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/sync/push")
	if err != nil {
		// Transport-level failure: timeout or connectivity loss mid-call.
		return fmt.Errorf("push %s %s/%s: %w: %s", op.OpType, op.EntityType, op.EntityID, ErrTransient, err)
	}

	if err = classifyPushResponse(resp, op.OpType); err != nil {
		return fmt.Errorf("push %s %s/%s: %w", op.OpType, op.EntityType, op.EntityID, err)
	}

	return nil
}

func (h *httpRemoteClient) Pull(ctx context.Context, userID string, entityTypes []string, since *time.Time) ([]models.SyncableRecord, error) {
	// Pull is idempotent, so a couple of quick in-call retries are safe and
	// smooth over flapping connectivity without waiting for the next cycle.
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))

	var records []models.SyncableRecord
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req := h.authedRequest(ctx).
			SetQueryParam("user_id", userID).
			SetQueryParam("types", strings.Join(entityTypes, ","))
		if since != nil {
			req.SetQueryParam("since", since.UTC().Format(time.RFC3339Nano))
		}

		resp, err := req.Get("/api/sync/pull")
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %s", ErrTransient, err))
		}
		if err = classifyStatus(resp); err != nil {
			if IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		var pr pullResponse
		if err = json.Unmarshal(resp.Body(), &pr); err != nil {
			return fmt.Errorf("decode pull response: %w", err)
		}
		records = pr.Records
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}

	return records, nil
}

func (h *httpRemoteClient) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.currentToken(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// classifyPushResponse maps the response onto the engine's error taxonomy.
// A 404 on delete means the record is already gone, which is the outcome
// the delete wanted.
func classifyPushResponse(resp *resty.Response, opType models.OpType) error {
	if resp.StatusCode() == http.StatusNotFound && opType == models.OpDelete {
		return nil
	}
	return classifyStatus(resp)
}

func classifyStatus(resp *resty.Response) error {
	code := resp.StatusCode()

	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return nil
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrTransient, code, responseReason(resp))
	default:
		return fmt.Errorf("%w: http %d: %s", ErrRejected, code, responseReason(resp))
	}
}

func responseReason(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		return http.StatusText(resp.StatusCode())
	}

	// Prefer a structured reason when the server sends one.
	var payload struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if payload.Reason != "" {
			return payload.Reason
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return body
}
