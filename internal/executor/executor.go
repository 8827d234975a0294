// Package executor defines the boundary to the browser automation service
// that performs and verifies YouTube engagement actions.
package executor

import "context"

// Result reports which actions the automation service performed or observed.
// Keys are action names: like, subscribe, comment, watch.
type Result struct {
	Actions map[string]bool `json:"actions"`
	Details string          `json:"details,omitempty"`
}

// Done reports whether every action implied by the terms succeeded.
func (r *Result) Done(terms map[string]int) bool {
	if r == nil {
		return false
	}
	for term, n := range terms {
		if n <= 0 {
			continue
		}
		if !r.Actions[actionFor(term)] {
			return false
		}
	}
	return true
}

func actionFor(term string) string {
	switch term {
	case "likes":
		return "like"
	case "subs":
		return "subscribe"
	case "comments":
		return "comment"
	case "watch_seconds":
		return "watch"
	}
	return term
}

// Executor performs our side of an exchange and verifies the partner's side.
//
// Execute runs the agreed actions against the partner's video. Verify checks
// whether the partner performed the agreed actions against ours. Both return
// a Result even on error when a partial result is available.
type Executor interface {
	Execute(ctx context.Context, exchangeUUID, videoURL string, terms map[string]int) (*Result, error)
	Verify(ctx context.Context, exchangeUUID, videoURL string, terms map[string]int) (*Result, error)
}
