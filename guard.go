package auth

import (
	"context"
)

// GuardState is the state of one protected navigation
type GuardState int

const (
	StateChecking GuardState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s GuardState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "checking"
	}
}

// GuardReason tells why a navigation ended unauthenticated
type GuardReason int

const (
	ReasonNone GuardReason = iota
	ReasonMissing
	ReasonCorrupt
	ReasonNotAuthenticated
)

func (r GuardReason) String() string {
	switch r {
	case ReasonMissing:
		return "missing"
	case ReasonCorrupt:
		return "corrupt"
	case ReasonNotAuthenticated:
		return "not_authenticated"
	default:
		return "none"
	}
}

// GuardDecision is the outcome of Evaluate
type GuardDecision struct {
	State  GuardState
	Reason GuardReason
	Record *SessionRecord
}

// Notify reports whether the visitor should see the "please log in"
// notice. A corrupt record redirects silently.
func (d GuardDecision) Notify() bool {
	return d.State == StateUnauthenticated && d.Reason != ReasonCorrupt
}

// Evaluate reads the Session Record and decides the navigation. It only
// looks at local storage, the auth API is not called. A corrupt record
// clears both scopes.
func Evaluate(ctx context.Context, store *CredentialStore) GuardDecision {
	record, result := store.LookupUser(ctx)

	switch result {
	case LookupCorrupt:
		if err := store.Clear(ctx); err != nil {
			store.logger.Error("guard could not clear corrupt session", "visitor", store.Visitor(), "error", err)
		}
		return GuardDecision{State: StateUnauthenticated, Reason: ReasonCorrupt}
	case LookupMissing:
		return GuardDecision{State: StateUnauthenticated, Reason: ReasonMissing}
	}

	if record == nil || !record.IsAuthenticated {
		return GuardDecision{State: StateUnauthenticated, Reason: ReasonNotAuthenticated}
	}

	return GuardDecision{State: StateAuthenticated, Record: record}
}
