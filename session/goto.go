package session

import (
	"encoding/json"
	"errors"
	"net/url"
)

// GotoVar is the session variable key under which a GotoState is stashed.
const GotoVar = "goto"

// ErrGotoBroken is returned when a stored go-to record is structurally
// invalid and must be discarded rather than replayed.
var ErrGotoBroken = errors.New("goto state broken")

// GotoState preserves the destination and in-flight request data of a
// request that was detoured through re-authentication. On replay the saved
// URI and session id must match the current request before the preserved
// parameters are trusted.
type GotoState struct {
	URI         string     `json:"uri"`
	Referrer    string     `json:"referrer,omitempty"`
	RouteName   string     `json:"route_name,omitempty"`
	FormParams  url.Values `json:"form_params,omitempty"`
	QueryParams url.Values `json:"query_params,omitempty"`
	SessionID   string     `json:"session_id"`
}

// Matches reports whether the stored record may be replayed against the
// given request URI and session.
func (g *GotoState) Matches(uri, sessionID string) bool {
	return g.URI == uri && g.SessionID == sessionID
}

// EncodeGoto serializes a go-to record for the session variable store.
func EncodeGoto(g *GotoState) (string, error) {
	if g == nil || g.URI == "" {
		return "", ErrGotoBroken
	}
	data, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeGoto parses a stored go-to record. Any structural defect (malformed
// JSON, wrong shape, missing uri) yields ErrGotoBroken so callers discard
// the record instead of replaying it.
func DecodeGoto(s string) (*GotoState, error) {
	var g GotoState
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return nil, ErrGotoBroken
	}
	if g.URI == "" {
		return nil, ErrGotoBroken
	}
	return &g, nil
}
