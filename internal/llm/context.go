package llm

import "context"

// Purposes recorded on request events.
const (
	PurposeItemGeneration = "item-generation"
	PurposePreview        = "item-preview"
)

type contextKey int

const (
	purposeKey contextKey = iota
	subjectKey
)

// Subject identifies who a request was made for.
type Subject struct {
	StudentID string
	SessionID string
}

// WithPurpose attaches a purpose label to the context for event logging.
// An existing label is kept so callers can override the generator default.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	if _, ok := ctx.Value(purposeKey).(string); ok {
		return ctx
	}
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithSubject attaches the student and session a request serves.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey, s)
}

// SubjectFrom returns the subject attached by WithSubject, if any.
func SubjectFrom(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey).(Subject)
	return s, ok
}
