package auth

import (
	"encoding/json"
)

// Scope selects where a visitor's credentials live
type Scope int

const (
	// ScopeSession lives as long as the browser session
	ScopeSession Scope = iota
	// ScopePersistent survives browser restarts ("remember me")
	ScopePersistent
)

// ScopeFor maps the remember me choice to a scope
func ScopeFor(rememberMe bool) Scope {
	if rememberMe {
		return ScopePersistent
	}
	return ScopeSession
}

// Other returns the opposite scope
func (s Scope) Other() Scope {
	if s == ScopePersistent {
		return ScopeSession
	}
	return ScopePersistent
}

func (s Scope) String() string {
	if s == ScopePersistent {
		return "persistent"
	}
	return "session"
}

// readOrder is the order reads consult the scopes
var readOrder = [...]Scope{ScopePersistent, ScopeSession}

// StoredSession is what SetSession writes in a single envelope
type StoredSession struct {
	Token         string
	RefreshCookie string
	User          *SessionRecord
}

// envelope is the single blob stored per visitor and scope
type envelope struct {
	AuthToken     string         `json:"auth_token,omitempty"`
	User          *SessionRecord `json:"user,omitempty"`
	RefreshCookie string         `json:"refresh_cookie,omitempty"`
}

func (e envelope) empty() bool {
	return e.AuthToken == "" && e.User == nil && e.RefreshCookie == ""
}

// merge fills the fields e lacks from o
func (e envelope) merge(o envelope) envelope {
	if e.AuthToken == "" {
		e.AuthToken = o.AuthToken
	}
	if e.User == nil {
		e.User = o.User
	}
	if e.RefreshCookie == "" {
		e.RefreshCookie = o.RefreshCookie
	}
	return e
}

type rawEnvelope struct {
	AuthToken     *string         `json:"auth_token"`
	User          json.RawMessage `json:"user"`
	RefreshCookie *string         `json:"refresh_cookie"`
}

// decodeEnvelope parses blob. A blob that is not an object fails as a
// whole. A user field that does not parse is dropped and reported with
// userCorrupt so the token survives.
func decodeEnvelope(blob []byte) (env envelope, userCorrupt bool, err error) {
	var raw rawEnvelope
	if err = json.Unmarshal(blob, &raw); err != nil {
		return envelope{}, false, ErrCorruptSession
	}

	if raw.AuthToken != nil {
		env.AuthToken = *raw.AuthToken
	}
	if raw.RefreshCookie != nil {
		env.RefreshCookie = *raw.RefreshCookie
	}

	if len(raw.User) > 0 && string(raw.User) != "null" {
		user := &SessionRecord{}
		if uerr := json.Unmarshal(raw.User, user); uerr != nil {
			return env, true, nil
		}
		env.User = user
	}

	return env, false, nil
}

func encodeEnvelope(env envelope) ([]byte, error) {
	return json.Marshal(env)
}
