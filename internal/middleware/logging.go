package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mattn/go-isatty"
)

// Logger is the process-wide structured logger.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// requestKeys are copied from the context onto every record logged with it.
var requestKeys = []contextKey{RequestIDKey, UserIDKey, TraceIDKey}

// requestAttrs decorates records with the request identifiers found in ctx.
type requestAttrs struct {
	slog.Handler
}

func (h requestAttrs) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range requestKeys {
		if v := ctx.Value(key); v != nil {
			r.AddAttrs(slog.Any(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestAttrs{h.Handler.WithAttrs(attrs)}
}

func (h requestAttrs) WithGroup(name string) slog.Handler {
	return requestAttrs{h.Handler.WithGroup(name)}
}

func init() {
	Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"))
}

// NewLogger builds the request-aware logger. Output is JSON unless w is an
// interactive terminal outside production. Development also logs debug.
func NewLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "development" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if env != "production" && isTerminal(w) {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(requestAttrs{handler})
}

// SetupLogger replaces the global logger once the environment is known.
func SetupLogger(env string) {
	Logger = NewLogger(os.Stdout, env)
	slog.SetDefault(Logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// ContextMiddleware puts the request ID on the request context so services
// and repositories log it. The user ID is added later by AuthRequired and
// the trace ID by TracingMiddleware.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(context.WithValue(c.UserContext(), RequestIDKey, rid))
		}
		return c.Next()
	}
}

// StructuredLogger writes one access log line per request.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			"status", status,
			"method", c.Method(),
			"route", c.Route().Path,
			"path", c.Path(),
			"ip", c.IP(),
			"latency", time.Since(start),
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			attrs = append(attrs, "user_agent", ua)
		}

		ctx := c.UserContext()
		switch {
		case err != nil:
			Logger.ErrorContext(ctx, "request failed", append(attrs, "error", err)...)
		case status >= fiber.StatusInternalServerError:
			Logger.WarnContext(ctx, "request returned server error", attrs...)
		default:
			Logger.InfoContext(ctx, "request processed", attrs...)
		}
		return err
	}
}
