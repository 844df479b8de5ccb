package authapi

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pm_auth_operations_total",
	Help: "Auth endpoint outcomes by operation and result.",
}, []string{"op", "result"})

// audit records one endpoint outcome as a log event and a counter increment.
// Attributes must never carry passwords or raw tokens.
func (h *Handler) audit(ctx context.Context, op, result string, attrs ...any) {
	authOps.WithLabelValues(op, result).Inc()

	level := slog.LevelInfo
	if result == "error" {
		level = slog.LevelError
	}
	h.log.Log(ctx, level, "auth."+op+"."+result, attrs...)
}
