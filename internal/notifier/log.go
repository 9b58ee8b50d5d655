package notifier

import "github.com/rs/zerolog/log"

// Log logs every event at debug level through the package-global zerolog
// logger, mirroring the pack's own node-execution debug tracing in
// internal/application/executor/node_executors.go (e.g. its
// `log.Debug().Str("node_id", nodeID).Msgf(...)` calls) rather than the
// slog logger used for ambient app-level logging.
type Log struct{}

// NewLog constructs a Log notifier. It always writes through the shared
// zerolog/log package logger, consistent with how the pack's executor
// emits node-level debug events.
func NewLog() *Log {
	return &Log{}
}

// Notify implements Notifier.
func (l *Log) Notify(e Event) {
	log.Debug().
		Str("kind", string(e.Kind)).
		Str("document_id", e.DocumentID).
		Str("node_id", e.NodeID).
		Int("iteration", e.Iteration).
		Int("level", e.Level).
		Str("detail", e.Detail).
		Msg("scheduler event")
}
