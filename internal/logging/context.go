package logging

import (
	"context"
	"log/slog"
	"strings"
)

type contextKey int

const (
	probeIDKey contextKey = iota
	deviceKey
)

// WithProbeID stores the probe identifier used to correlate log lines.
func WithProbeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, probeIDKey, strings.TrimSpace(id))
}

// ProbeIDFromContext returns the probe identifier stored by WithProbeID.
func ProbeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(probeIDKey).(string)
	return id, ok && id != ""
}

// WithDevice stores the device path being probed.
func WithDevice(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, deviceKey, strings.TrimSpace(path))
}

// DeviceFromContext returns the device path stored by WithDevice.
func DeviceFromContext(ctx context.Context) (string, bool) {
	path, ok := ctx.Value(deviceKey).(string)
	return path, ok && path != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if device, ok := DeviceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldDevice, device))
	}
	if id, ok := ProbeIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProbeID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.New(NoopHandler{})
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
