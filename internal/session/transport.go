package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Credential headers, one pair per credential class.
const (
	HeaderSystemSessionID         = "X-System-Session-Id"
	HeaderSystemSessionIdentifier = "X-System-Session-Identifier"
	HeaderUserSessionID           = "X-User-Session-Id"
	HeaderUserSessionIdentifier   = "X-User-Session-Identifier"
)

var (
	// ErrUserSessionRequired is returned, before dispatch, for user-required
	// endpoints when no user pair exists.
	ErrUserSessionRequired = errors.New("user session required")
	// ErrNoSystemSession is returned when no credential can be attached.
	ErrNoSystemSession = errors.New("system session not established")
	// ErrUndeclaredEndpoint is returned for paths missing from the manifest.
	ErrUndeclaredEndpoint = errors.New("endpoint not declared in session manifest")
)

var (
	dispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_session_requests_total",
		Help: "Operator requests dispatched, by endpoint class and attached pair.",
	}, []string{"class", "pair"})
	refused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_session_requests_refused_total",
		Help: "Operator requests cancelled before reaching the network.",
	}, []string{"reason"})
)

// Transport is the SessionRouter: an http.RoundTripper that classifies every
// outbound operator request, attaches the matching credential pair and
// watches responses for session expiry.
type Transport struct {
	base     http.RoundTripper
	prefix   string
	store    *Store
	recovery *Recovery
	logger   *zap.Logger
}

// NewTransport wraps base. pathPrefix is the operator base URL path that
// precedes every manifest path (for example "/api").
func NewTransport(base http.RoundTripper, pathPrefix string, store *Store, recovery *Recovery, logger *zap.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:     base,
		prefix:   strings.TrimRight(pathPrefix, "/"),
		store:    store,
		recovery: recovery,
		logger:   logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	path := strings.TrimPrefix(req.URL.Path, t.prefix)
	ep, ok := Lookup(path)
	if !ok {
		closeBody(req)
		refused.WithLabelValues("undeclared").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUndeclaredEndpoint, path)
	}

	kind, pair, err := t.selectPair(ep)
	if err != nil {
		closeBody(req)
		if errors.Is(err, ErrUserSessionRequired) {
			refused.WithLabelValues("no_user_session").Inc()
			t.logger.Info("user-required request cancelled before dispatch",
				zap.String("device_id", t.store.DeviceID()),
				zap.String("endpoint", ep.Path),
			)
			t.recovery.HandleExpiry(req.Context(), "sign in to continue")
		} else {
			refused.WithLabelValues("no_system_session").Inc()
		}
		return nil, fmt.Errorf("%s: %w", ep.Path, err)
	}

	out := req.Clone(req.Context())
	attach(out.Header, kind, pair)
	dispatched.WithLabelValues(ep.Class.String(), string(kind)).Inc()

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if flag, ok := peekFlag(resp); ok && flag == ride.FlagSessionExpired {
		t.logger.Warn("operator signalled session expiry",
			zap.String("device_id", t.store.DeviceID()),
			zap.String("endpoint", ep.Path),
			zap.String("pair", string(kind)),
		)
		t.recovery.HandleExpiry(req.Context(), "session expired")
	}
	return resp, nil
}

// selectPair applies the credential policy for ep. An empty kind means the
// request goes out without credentials (operator authorization bootstrap).
func (t *Transport) selectPair(ep Endpoint) (Kind, Pair, error) {
	switch ep.Class {
	case ClassSystemOnly:
		if p, ok := t.store.System(); ok {
			return KindSystem, p, nil
		}
		if ep == EndpointAuthorization {
			return "", Pair{}, nil
		}
		return "", Pair{}, ErrNoSystemSession
	case ClassUserRequired:
		if p, ok := t.store.User(); ok {
			return KindUser, p, nil
		}
		return "", Pair{}, ErrUserSessionRequired
	default:
		if p, ok := t.store.User(); ok {
			return KindUser, p, nil
		}
		if p, ok := t.store.System(); ok {
			return KindSystem, p, nil
		}
		return "", Pair{}, ErrNoSystemSession
	}
}

func attach(h http.Header, kind Kind, p Pair) {
	switch kind {
	case KindSystem:
		h.Set(HeaderSystemSessionID, p.SessionID)
		h.Set(HeaderSystemSessionIdentifier, p.SessionIdentifier)
	case KindUser:
		h.Set(HeaderUserSessionID, p.SessionID)
		h.Set(HeaderUserSessionIdentifier, p.SessionIdentifier)
	}
}

// peekFlag reads the envelope status flag and restores the body.
func peekFlag(resp *http.Response) (int, bool) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return 0, false
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return 0, false
	}

	var env struct {
		Flag *int `json:"flag"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Flag == nil {
		return 0, false
	}
	return *env.Flag, true
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
