package incident

import "log/slog"

// LogAlerter is the fallback alert channel when no broker is configured:
// critical incidents land in the structured log at ERROR so log-based
// alerting can pick them up.
type LogAlerter struct {
	logger *slog.Logger
}

// NewLogAlerter builds the fallback alerter.
func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger}
}

func (a *LogAlerter) Alert(payload any) error {
	a.logger.Error("CRITICAL security incident", "incident", payload)
	return nil
}
