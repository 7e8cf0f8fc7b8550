// Package apiclient is the client core's view of the Lynix REST data store.
// Every call goes through a circuit breaker and retry with backoff; status
// codes are mapped back to the domain error taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client/lynix-api")

const serviceName = "lynix-api"

// TokenSource supplies the bearer token of the signed-in user, if any.
type TokenSource interface {
	Token() string
}

// TokenDropper is implemented by token sources that can forget a token the
// server rejected. The identity stays signed in; later calls go without a
// bearer, which owner-scoped routes accept.
type TokenDropper interface {
	DropToken(ctx context.Context)
}

// StatusError is a non-2xx answer from the server. Message carries the
// server's own text when it sent one.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("lynix api returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("lynix api returned %d", e.Status)
}

// ServerMessage returns the text the server put in the error body.
func (e *StatusError) ServerMessage() string {
	return e.Message
}

// Client wraps HTTP calls to the Lynix API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	tokens     TokenSource
	logger     *zap.Logger
}

// New creates a Lynix API client.
func New(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetTokenSource makes every request carry the bearer token ts returns.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// ownerQuery builds the ?userId= query of owner-scoped routes.
func ownerQuery(ownerID int64) url.Values {
	return url.Values{"userId": []string{strconv.FormatInt(ownerID, 10)}}
}

// call runs one request under the breaker and the retry policy and decodes
// the JSON answer into out (when out is non-nil).
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	ctx, span := tracer.Start(ctx, "LynixAPI "+method+" "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.path", path))

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = b
	}

	token := c.token()
	err := c.exchange(ctx, method, path, query, payload, token, out)

	var unauthorized *domain.ErrUnauthorized
	if token != "" && errors.As(err, &unauthorized) {
		if dropper, ok := c.tokens.(TokenDropper); ok {
			c.logger.Warn("lynix api: bearer token rejected, retrying without it",
				zap.String("method", method),
				zap.String("path", path),
			)
			dropper.DropToken(ctx)
			err = c.exchange(ctx, method, path, query, payload, "", out)
		}
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// exchange runs one request under the breaker and the retry policy.
func (c *Client) exchange(ctx context.Context, method, path string, query url.Values, payload []byte, token string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, method, path, query, payload, token)
			if err != nil {
				return err
			}
			if out == nil || len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return resilience.Permanent(fmt.Errorf("decode %s %s: %w", method, path, err))
			}
			return nil
		})
	})
	if err != nil {
		return c.mapError(err)
	}
	return nil
}

// doRequest executes a single HTTP exchange. Non-2xx answers come back as
// *StatusError; 4xx ones are marked permanent so they are not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload []byte, token string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("lynix api: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Status: resp.StatusCode, Message: serverMessage(body)}
		c.logger.Debug("lynix api: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", statusErr.Message),
		)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(statusErr)
		}
		return nil, statusErr
	}
	return body, nil
}

// serverMessage extracts {"message"} or {"error"} from an error body.
func serverMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &m) != nil {
		return ""
	}
	if m.Message != "" {
		return m.Message
	}
	return m.Error
}

// mapError turns transport and status failures into domain errors.
func (c *Client) mapError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: serviceName}
	}

	var se *StatusError
	if !errors.As(err, &se) {
		return &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	switch se.Status {
	case http.StatusBadRequest:
		return &domain.ErrValidation{Field: "request", Message: se.Message}
	case http.StatusUnauthorized:
		return &domain.ErrUnauthorized{Message: se.Message}
	case http.StatusForbidden:
		return &domain.ErrForbidden{Action: se.Message}
	case http.StatusNotFound:
		return &domain.ErrNotFound{Resource: "resource", ID: se.Message}
	case http.StatusConflict:
		return &domain.ErrConflict{Message: se.Message}
	case http.StatusTooManyRequests:
		return &domain.ErrQuotaExceeded{Quota: serviceName}
	}
	return &domain.ErrExternalService{Service: serviceName, Err: se}
}
