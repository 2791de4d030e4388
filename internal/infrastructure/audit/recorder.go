// Package audit writes the audit trail as structured log entries.
package audit

import (
	"context"

	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LoggerName is the zap logger name that carries audit entries, so that
// log shipping can route them separately
const LoggerName = "audit"

// ZapRecorder implements shared.AuditRecorder on a dedicated zap logger
type ZapRecorder struct {
	logger *zap.Logger
}

// NewZapRecorder creates a recorder writing below base as "audit"
func NewZapRecorder(base *zap.Logger) *ZapRecorder {
	return &ZapRecorder{logger: base.Named(LoggerName)}
}

// Record implements shared.AuditRecorder
func (r *ZapRecorder) Record(ctx context.Context, entry shared.AuditEntry) {
	fields := []zap.Field{
		zap.String("action", string(entry.Action)),
		zap.String("actor", entry.Actor),
	}
	if entry.Subject != nil {
		fields = append(fields,
			zap.String("subject_type", entry.Subject.AuditType()),
			zap.String("subject_id", entry.Subject.AuditKey()),
		)
	}
	if entry.Detail != "" {
		fields = append(fields, zap.String("detail", entry.Detail))
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	logger.WithTraceContext(ctx, r.logger).Info("Audit", fields...)
}

var _ shared.AuditRecorder = (*ZapRecorder)(nil)
