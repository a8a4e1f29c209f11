package metrics

// Outcome enumerates publish result categories for counters.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Recorder defines observability hooks for sync and publish operations.
// Implementations may forward to Prometheus; the NoopRecorder allows optional
// injection.
type Recorder interface {
	IncSyncResult(prefix string, success bool)
	IncPublishOutcome(prefix string, outcome Outcome)
	IncPushAttempt(prefix string)
	IncRetriesExhausted(prefix string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSyncResult(string, bool)        {}
func (NoopRecorder) IncPublishOutcome(string, Outcome) {}
func (NoopRecorder) IncPushAttempt(string)             {}
func (NoopRecorder) IncRetriesExhausted(string)        {}
