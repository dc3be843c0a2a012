package httpapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/riskibarqy/fpl-assistant/internal/platform/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BodyCapture controls whether request bodies are copied onto the
// http_request log event, and how many bytes of them.
type BodyCapture struct {
	Enabled  bool
	MaxBytes int
}

func RequestLogging(logger *logging.Logger, capture BodyCapture, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequestLogging")
		defer span.End()

		var body []byte
		var bodyTruncated bool
		if capture.Enabled {
			body, bodyTruncated = captureRequestBody(r, capture.MaxBytes)
		}

		started := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		args := []any{
			"http_method", r.Method,
			"http_path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(started).Milliseconds(),
		}
		if len(body) > 0 {
			args = append(args, "http_request_body", string(body))
			if bodyTruncated {
				args = append(args, "http_request_body_truncated", true)
			}
		}

		logger.InfoContext(ctx, "http_request", args...)
	})
}

// captureRequestBody reads up to maxBytes of the body for logging and stitches
// everything it consumed back in front of the remaining stream, so handlers
// still see the full payload.
func captureRequestBody(r *http.Request, maxBytes int) ([]byte, bool) {
	if maxBytes <= 0 || r.Body == nil || r.Body == http.NoBody {
		return nil, false
	}

	read, _ := io.ReadAll(io.LimitReader(r.Body, int64(maxBytes)+1))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(read), r.Body))

	if len(read) > maxBytes {
		return read[:maxBytes], true
	}
	return read, false
}

func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "fpl-assistant-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

func shouldTraceRequest(path string) bool {
	normalized := strings.ToLower(strings.TrimSpace(path))
	switch normalized {
	case "/healthz", "/health", "/livez", "/readyz":
		return false
	default:
		return true
	}
}

func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := false
	allowMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		candidate := strings.TrimSpace(origin)
		if candidate == "" {
			continue
		}
		if candidate == "*" {
			allowAll = true
			continue
		}
		allowMap[candidate] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.CORS")
		defer span.End()

		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		allowed := allowAll
		if !allowed {
			_, allowed = allowMap[origin]
		}
		if allowed {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,Accept")
			w.Header().Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
