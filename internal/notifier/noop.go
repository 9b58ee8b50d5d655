package notifier

// Noop discards every event; the default for library/embedded use and the
// CLI (SPEC_FULL §4.8).
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(Event) {}
