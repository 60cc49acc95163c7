package operator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"go.uber.org/zap"
)

// Envelope is the response wrapper shared by every operator endpoint.
type Envelope struct {
	Flag    int             `json:"flag"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the operator API. Credentials are attached by the session
// transport installed in the http.Client, never by Client itself.
type Client struct {
	http      *http.Client
	baseURL   string
	clientKey string
	logger    *zap.Logger
}

// NewClient creates an operator client rooted at baseURL.
func NewClient(baseURL, clientKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		clientKey: clientKey,
		logger:    logger,
	}
}

// Call posts payload to ep and decodes the data field into out (if non-nil).
// Flags are interpreted uniformly: 101 is a session expiry, 144 an
// out-of-service-area answer, anything but 143 an upstream failure.
func (c *Client) Call(ctx context.Context, ep session.Endpoint, payload, out interface{}) error {
	env, err := c.CallRaw(ctx, ep, payload)
	if err != nil {
		return err
	}
	switch env.Flag {
	case ride.FlagSuccess:
	case ride.FlagOutOfServiceArea:
		return apperror.NewOutOfServiceAreaError(messageOr(env.Message, "location is outside the service area"))
	default:
		return apperror.NewUpstreamError(messageOr(env.Message, "operator request failed"),
			fmt.Errorf("%s returned flag %d", ep.Path, env.Flag))
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.NewUpstreamError("malformed operator response", err)
	}
	return nil
}

// CallRaw posts payload to ep and returns the decoded envelope. Only the
// session-expired flag is turned into an error here.
func (c *Client) CallRaw(ctx context.Context, ep session.Endpoint, payload interface{}) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", ep.Path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ep.Path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", ep.Path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ep, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.NewUnavailableError("operator unavailable", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.NewUpstreamError("operator request failed",
			fmt.Errorf("%s returned HTTP %d", ep.Path, resp.StatusCode))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperror.NewUpstreamError("malformed operator response", err)
	}

	c.logger.Debug("operator call",
		zap.String("endpoint", ep.Path),
		zap.Int("flag", env.Flag),
	)

	if env.Flag == ride.FlagSessionExpired {
		return nil, apperror.NewSessionExpiredError(messageOr(env.Message, "your session has expired, please sign in again"))
	}
	return &env, nil
}

func (c *Client) transportError(ep session.Endpoint, err error) error {
	switch {
	case errors.Is(err, session.ErrUserSessionRequired):
		return apperror.NewSessionExpiredError("please sign in to continue")
	case errors.Is(err, session.ErrNoSystemSession):
		return apperror.NewUnavailableError("operator session not established", err)
	case errors.Is(err, session.ErrUndeclaredEndpoint):
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		c.logger.Warn("operator transport failure", zap.String("endpoint", ep.Path), zap.Error(err))
		return apperror.NewUnavailableError("operator unavailable", err)
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
