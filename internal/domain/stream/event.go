package stream

// Kind discriminates stream events.
type Kind int

const (
	// KindDelta carries an incremental answer segment.
	KindDelta Kind = iota
	// KindDone ends a complete answer.
	KindDone
	// KindError ends an incomplete answer.
	KindError
)

// Event is one element of an answer stream. Exactly one terminal event ends a stream.
type Event struct {
	kind   Kind
	text   string
	reason string
}

// Delta wraps an incremental segment.
func Delta(text string) Event { return Event{kind: KindDelta, text: text} }

// Done marks normal completion.
func Done() Event { return Event{kind: KindDone} }

// Error marks abnormal termination with a caller-safe reason.
func Error(reason string) Event { return Event{kind: KindError, reason: reason} }

// Kind returns the event kind.
func (e Event) Kind() Kind { return e.kind }

// Text returns the delta payload.
func (e Event) Text() string { return e.text }

// Reason returns the failure reason of an Error event.
func (e Event) Reason() string { return e.reason }

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool { return e.kind != KindDelta }

// Answer accumulates a stream on the receiving side.
type Answer struct {
	buf      []byte
	complete bool
	failed   bool
	reason   string
}

// Apply folds one event into the answer. Events after a terminal are ignored
// and reported as false.
func (a *Answer) Apply(e Event) bool {
	if a.complete || a.failed {
		return false
	}
	switch e.kind {
	case KindDelta:
		a.buf = append(a.buf, e.text...)
	case KindDone:
		a.complete = true
	case KindError:
		a.failed = true
		a.reason = e.reason
	}
	return true
}

// Text returns the accumulated answer.
func (a *Answer) Text() string { return string(a.buf) }

// Complete reports whether Done was received.
func (a *Answer) Complete() bool { return a.complete }

// Incomplete reports whether an Error terminal was received.
func (a *Answer) Incomplete() bool { return a.failed }

// Reason returns the Error reason, if any.
func (a *Answer) Reason() string { return a.reason }
