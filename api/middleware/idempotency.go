package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/creatorhub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/creatorhub-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"

	createReplayWindow   = 24 * time.Hour
	checkoutReplayWindow = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can block its key.
	inFlightTTL = time.Minute
)

// replayWindows lists the routes that require an Idempotency-Key, keyed by
// "METHOD pattern".
var replayWindows = map[string]time.Duration{
	"POST /api/v1/releases":           createReplayWindow,
	"POST /api/v1/scripts":            createReplayWindow,
	"POST /api/v1/photos":             createReplayWindow,
	"POST /api/v1/donations/checkout": checkoutReplayWindow,
}

// storedResponse is what a key holds. A record without Status is a
// reservation for a request that is still running.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) pending() bool { return s.Status == 0 }

// Idempotency replays the first response for a repeated Idempotency-Key on
// the routes in replayWindows. Keys are scoped per actor and path. A reused
// key with a different body is rejected, as is a key whose first request is
// still running. 5xx responses are not stored so clients can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window, ok := replayWindow(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if clientKey == "" {
				fail(pkgerrors.New(pkgerrors.CodeValidation, IdempotencyKeyHeader+" header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), clientKey)
			fingerprint := fingerprintBody(body)

			reserved, err := reserve(ctx, store, key, fingerprint)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				prior, err := load(ctx, store, key)
				switch {
				case err != nil:
					fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
				case prior == nil:
					// Expired between SETNX and GET.
					fail(pkgerrors.New(pkgerrors.CodeConflict, "request in progress, retry"))
				case prior.Fingerprint != fingerprint:
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case prior.pending():
					fail(pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
				default:
					replay(w, prior)
				}
				return
			}

			capture := &bodyCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			// The reservation must be settled even if the client went away.
			settleCtx := context.WithoutCancel(ctx)
			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(settleCtx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			record, _ := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err := store.Set(settleCtx, key, string(record), window); err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func replayWindow(method, pattern string) (time.Duration, bool) {
	window, ok := replayWindows[method+" "+pattern]
	return window, ok
}

func reserve(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	marker, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
	return store.SetNX(ctx, key, string(marker), inFlightTTL)
}

func load(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record storedResponse
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func replay(w http.ResponseWriter, record *storedResponse) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write(record.Body)
}

func idempotencyScope(r *http.Request) string {
	actor := "anonymous"
	if id := UserIDFromContext(r.Context()); !id.IsZero() {
		actor = id.Hex()
	}
	return actor + "|" + r.Method + "|" + r.URL.Path
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if pattern := routePatternOf(r); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

type bodyCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *bodyCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *bodyCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *bodyCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
