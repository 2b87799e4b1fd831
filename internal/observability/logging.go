// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
)

// scoped writes through slog.Default with a fixed attribute, so loggers
// built at package init follow the logger installed later at startup.
type scoped struct {
	key, value string
}

func (s scoped) logger() *slog.Logger {
	return slog.Default().With(s.key, s.value)
}

// RepoLogger logs repository activity for one table.
type RepoLogger struct {
	scoped
}

func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{scoped{"table", table}}
}

// LogWrite records a mutation at debug level.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, attrs ...any) {
	l.logger().DebugContext(ctx, "repository write", append([]any{"operation", operation}, attrs...)...)
}

func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	l.logger().ErrorContext(ctx, "repository error", "operation", operation, "error", err)
}

// WSLogger logs socket lifecycle events for one hub and keeps the
// connection gauge and drop counter for it in step.
type WSLogger struct {
	scoped
}

func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{scoped{"hub", hub}}
}

func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	WebSocketConnections.WithLabelValues(l.value).Inc()
	l.logger().InfoContext(ctx, "websocket connected", "user_id", userID)
}

func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	WebSocketConnections.WithLabelValues(l.value).Dec()
	l.logger().InfoContext(ctx, "websocket disconnected", "user_id", userID, "reason", reason)
}

// LogError reports a failed socket operation. op names the failing step
// ("read", "write").
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, op string) {
	l.logger().WarnContext(ctx, "websocket error", "user_id", userID, "op", op, "error", err)
}

// LogDrop records a message dropped for a slow client.
func (l *WSLogger) LogDrop(ctx context.Context, userID uint, reason string) {
	WebSocketBackpressureDrops.WithLabelValues(l.value, reason).Inc()
	l.logger().WarnContext(ctx, "websocket message dropped", "user_id", userID, "reason", reason)
}
