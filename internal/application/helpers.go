package application

import "log/slog"

func actorLockKey(actorID string) string {
	if actorID == "" {
		return ""
	}
	return "actor:" + actorID
}

func deviceLockKey(deviceID string) string {
	if deviceID == "" {
		return ""
	}
	return "device:" + deviceID
}

// logAttrs carries the shared structured-logging keys for the service core.
func (s *Service) logAttrs(operation, outcome string, extra ...any) []any {
	attrs := []any{
		slog.String("module", "security_session"),
		slog.String("layer", "application"),
		slog.String("operation", operation),
		slog.String("outcome", outcome),
	}
	return append(attrs, extra...)
}
