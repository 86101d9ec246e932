package dispatcher

import (
	"errors"

	"github.com/jsubiabreIBM/Elefante-sub000/pkg/elefante"
)

// envelope carries the {success, error, retry, hint} shape spec.md §7
// mandates on every tool response, plus the
// MANDATORY_PROTOCOLS_READ_THIS_FIRST reminder list §4.10 requires on every
// successful call. Per-tool Out structs embed this as their first field so
// json.Marshal flattens it alongside the tool-specific payload fields.
type envelope struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Retry   bool     `json:"retry,omitempty"`
	Hint    string   `json:"hint,omitempty"`
	Reminders []string `json:"MANDATORY_PROTOCOLS_READ_THIS_FIRST,omitempty"`
}

// genericReminders are included on every successful tool call, ahead of any
// tool-specific reminder appended by the caller.
var genericReminders = []string{
	"Memories are durable facts, not scratch notes — write content a future session would want recalled verbatim.",
	"Prefer elefanteMemorySearch before elefanteMemoryAdd to avoid creating a near-duplicate.",
}

// ok builds a successful envelope, appending any tool-specific reminders
// after the generic ones.
func ok(extra ...string) envelope {
	reminders := make([]string, 0, len(genericReminders)+len(extra))
	reminders = append(reminders, genericReminders...)
	reminders = append(reminders, extra...)
	return envelope{Success: true, Reminders: reminders}
}

// fail translates any error into the envelope's {error, retry, hint} fields.
// Errors that are not an *elefante.Error (a programmer error or an
// unexpected adapter panic recovery, for instance) surface with their raw
// message and no retry/hint — the dispatcher never lets a raw error escape
// silently, but it also never fabricates a hint it wasn't given.
func fail(err error) envelope {
	var e *elefante.Error
	if errors.As(err, &e) {
		return envelope{Success: false, Error: e.Error(), Retry: e.Retry, Hint: e.Hint}
	}
	return envelope{Success: false, Error: err.Error()}
}
