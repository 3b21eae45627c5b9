package audit

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/platinummonkey/contactbook/pkg/auth"
	"github.com/platinummonkey/contactbook/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Config bounds what the middleware captures and how long a write may take
type Config struct {
	// MaxBodyBytes caps the stored body; longer bodies are stored truncated
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// WriteTimeout bounds a single history write
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the default capture settings
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 1 << 20,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder appends history records
type Recorder interface {
	Record(ctx context.Context, record *HistoryRecord) error
}

// Middleware records every request made with a resolved principal
type Middleware struct {
	recorder Recorder
	config   Config
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewMiddleware creates a new audit middleware. metrics may be nil.
func NewMiddleware(recorder Recorder, config Config, metrics *observability.Metrics) *Middleware {
	defaults := DefaultConfig()
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	return &Middleware{
		recorder: recorder,
		config:   config,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Handler wraps an HTTP handler with request history recording.
// The record is written before next runs; failures never reach the client.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		logger := observability.FromContext(r.Context()).WithFields(map[string]interface{}{
			"account_id": principal.AccountID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		record := &HistoryRecord{
			UserID:      principal.AccountID,
			HTTPMethod:  r.Method,
			Path:        r.URL.Path,
			Timestamp:   m.now().UTC(),
			QueryString: queryString(r.URL),
		}

		if capturesBody(r.Method) {
			body, truncated, err := captureBody(r, m.config.MaxBodyBytes)
			if err != nil {
				logger.WithError(err).Warn("failed to capture request body")
				m.metrics.RecordAuditCaptureFailure()
			}
			if truncated {
				logger.WithField("max_body_bytes", m.config.MaxBodyBytes).Debug("request body truncated for history")
			}
			record.BodyContent = storableBody(body, truncated)
		}

		// Detached so a client disconnect does not drop the record
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), m.config.WriteTimeout)
		ctx, span := observability.StartSpan(ctx, "audit.record",
			attribute.Int64("account.id", principal.AccountID),
			attribute.Int("audit.body_bytes", len(record.BodyContent)),
		)
		err := m.recorder.Record(ctx, record)
		observability.EndSpan(span, err)
		cancel()

		m.metrics.RecordAuditWrite(err)
		if err != nil {
			logger.WithError(err).Error("failed to record request history")
		}

		next.ServeHTTP(w, r)
	})
}

func capturesBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

func queryString(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

// storableBody makes captured bytes safe for a TEXT column. A rune cut by
// truncation is dropped, invalid bytes become U+FFFD and NULs are removed.
func storableBody(b []byte, truncated bool) string {
	if truncated && len(b) > 0 {
		i := len(b) - 1
		for i > 0 && len(b)-i < utf8.UTFMax && !utf8.RuneStart(b[i]) {
			i--
		}
		if !utf8.FullRune(b[i:]) {
			b = b[:i]
		}
	}
	return strings.ReplaceAll(strings.ToValidUTF8(string(b), "\uFFFD"), "\x00", "")
}

// replayBody serves captured bytes followed by whatever the original body had left
type replayBody struct {
	io.Reader
	io.Closer
}

type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}

// captureBody reads up to limit bytes of the request body for storage.
// On return r.Body always yields the complete original stream: the bytes read
// here, then the unread remainder, or the read error if one occurred.
func captureBody(r *http.Request, limit int64) (captured []byte, truncated bool, err error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, false, nil
	}

	original := r.Body
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(original, limit+1))

	read := buf.Bytes()
	switch {
	case err != nil:
		r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(read), errReader{err: err}), Closer: original}
	case n > limit:
		r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(read), original), Closer: original}
	default:
		r.Body = replayBody{Reader: bytes.NewReader(read), Closer: original}
	}

	if n > limit {
		return read[:limit], true, err
	}
	return read, false, err
}
