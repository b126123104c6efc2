package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/creatorhub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

// maxRateLimitBody bounds how much of the body is buffered to find the donor
// email.
const maxRateLimitBody = 1 << 20

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy is a fixed-window budget for one traffic surface, counted
// per client IP and per donor email. A zero limit disables that counter.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewRateLimitPolicy builds a policy with the supplied window and limits.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

// rateRule is one counter of a policy. subject returns the value to count
// against, or "" when the request carries nothing to count.
type rateRule struct {
	kind    string
	limit   int
	subject func(r *http.Request) (string, error)
}

func (p RateLimitPolicy) rules() []rateRule {
	if p.window <= 0 {
		return nil
	}
	var rules []rateRule
	if p.ipLimit > 0 {
		rules = append(rules, rateRule{kind: "ip", limit: p.ipLimit, subject: func(r *http.Request) (string, error) {
			return clientIP(r), nil
		}})
	}
	if p.emailLimit > 0 {
		rules = append(rules, rateRule{kind: "email", limit: p.emailLimit, subject: donorEmailHash})
	}
	return rules
}

// RateLimit rejects requests with RATE_LIMIT_EXCEEDED once any counter of policy
// exceeds its limit within the window. Store failures surface as
// DEPENDENCY_ERROR rather than letting traffic through unmetered.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := policy.rules()
	return func(next http.Handler) http.Handler {
		if len(rules) == 0 || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, rule := range rules {
				subject, err := rule.subject(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				if subject == "" {
					continue
				}
				key := store.RateLimitKey(policy.name + ":" + rule.kind + ":" + subject)
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(rule.limit) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":   policy.name,
							"scope":    rule.kind,
							"subject":  subject,
							"attempts": count,
							"limit":    rule.limit,
						}), "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second).Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// donorEmailHash buffers the body, restores it for the next handler and
// returns the sha256 of the normalized donorEmail field. Raw emails never
// reach redis keys or logs.
func donorEmailHash(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitBody))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))

	var payload struct {
		DonorEmail string `json:"donorEmail"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	email := strings.ToLower(strings.TrimSpace(payload.DonorEmail))
	if email == "" {
		return "", nil
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:]), nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
