package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cartdash/cartdash-backend/api/responses"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/logger"
	pkgredis "github.com/cartdash/cartdash-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	ttl     time.Duration
}

var idempotencyRules = []idempotencyRule{
	// 24h TTL endpoints
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/branch/orders/", "/assign"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/branch/", "/reassign"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/partner/orders/", "/accept"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/partner/orders/", "/reject"), ttl: defaultIdempotencyTTL},
	// 7d TTL endpoints; COD capture at delivery must never double-apply.
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/partner/orders/", "/status"), ttl: criticalIdempotencyTTL},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

type idempotencyHandler struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
	next  http.Handler
	ttl   time.Duration
}

func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Group-level mounting runs before chi resolves the leaf route,
			// so rules match on the raw path rather than the route pattern.
			ttl, guarded := routeTTL(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			h := &idempotencyHandler{store: store, logg: logg, next: next, ttl: ttl}
			h.serve(w, r)
		})
	}
}

func (h *idempotencyHandler) serve(w http.ResponseWriter, r *http.Request) {
	clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if clientKey == "" {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	requestHash := hashBody(body)
	storeKey := h.store.IdempotencyKey(buildScope(r), clientKey)

	if replayed := h.replayIfStored(w, r, storeKey, requestHash); replayed {
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	h.next.ServeHTTP(capture, r)
	h.persist(r.Context(), storeKey, requestHash, capture)
}

// replayIfStored answers from the stored record when the key was seen
// before. Returns true when this request needs no further handling,
// including the error cases it already answered.
func (h *idempotencyHandler) replayIfStored(w http.ResponseWriter, r *http.Request, storeKey, requestHash string) bool {
	stored, err := h.store.Get(r.Context(), storeKey)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return true
	}
	if stored == "" {
		return false
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return true
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), h.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return true
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
	return true
}

// persist stores the captured response. Failures here only lose replay
// protection for this key, so they log instead of failing the request
// that already succeeded.
func (h *idempotencyHandler) persist(ctx context.Context, storeKey, requestHash string, capture *responseCapture) {
	status := capture.statusOrDefault()
	// Server faults are transient; storing them would replay the failure
	// at the retry the key exists to make safe.
	if status >= http.StatusInternalServerError {
		return
	}
	record := idempotencyRecord{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		h.logError(ctx, "marshal idempotency record", err)
		return
	}
	if _, err := h.store.SetNX(ctx, storeKey, string(payload), h.ttl); err != nil {
		h.logError(ctx, "persist idempotency record", err)
	}
}

func (h *idempotencyHandler) logError(ctx context.Context, msg string, err error) {
	if h.logg == nil || err == nil {
		return
	}
	h.logg.Error(ctx, msg, err)
}

// buildScope keys records per actor and route so one caller's key can
// never replay another caller's response.
func buildScope(r *http.Request) string {
	parts := []string{
		UserIDFromContext(r.Context()),
		BranchIDFromContext(r.Context()),
		PartnerIDFromContext(r.Context()),
		r.Method,
		r.URL.Path,
	}
	return strings.Join(parts, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.matcher(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusOrDefault() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
