package goLogin

import (
	"context"
	"errors"
	"net/url"

	"github.com/MrEthical07/goLogin/session"
)

// SessionState classifies the session behind the current request.
type SessionState int

const (
	// StateNoSession means no session record was resolvable at all.
	StateNoSession SessionState = iota
	// StateInvalid covers structurally rejected requests and session
	// records marked not valid.
	StateInvalid
	// StateHardLocked means the account behind the session carries the
	// administrative hard lock.
	StateHardLocked
	// StateHardExpired means the session is past its absolute lifetime and
	// has been discarded.
	StateHardExpired
	// StateSoftExpired means the session is past its normal TTL but still
	// inside the prolongation window.
	StateSoftExpired
	// StateValid means the session is usable as-is.
	StateValid
)

func (s SessionState) String() string {
	switch s {
	case StateNoSession:
		return "no-session"
	case StateInvalid:
		return "invalid"
	case StateHardLocked:
		return "hard-locked"
	case StateHardExpired:
		return "hard-expired"
	case StateSoftExpired:
		return "soft-expired"
	case StateValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Outcome is what the integration layer should do with the request.
type Outcome int

const (
	// OutcomeProceed passes the request through.
	OutcomeProceed Outcome = iota
	// OutcomeBadRequest short-circuits a structurally invalid request.
	OutcomeBadRequest
	// OutcomeDenied blocks the request outright (hard-locked account).
	OutcomeDenied
	// OutcomeRedirect sends the user to Decision.RedirectTo.
	OutcomeRedirect
)

// RequestState is the slice of an inbound request the state machine needs.
// Form and Query are never mutated; cleaned copies come back on the
// Decision.
type RequestState struct {
	// SessionHandle is the raw session id or signed session token carried
	// by the request, empty when absent.
	SessionHandle string
	URI           string
	Referrer      string
	RouteName     string
	Form          url.Values
	Query         url.Values
	// ParamsInvalid is set when the host's validator layer already rejected
	// the request shape.
	ParamsInvalid bool
	// HasCredentials is set when the request itself carries fresh login
	// credentials.
	HasCredentials bool
}

// Decision is the state machine's verdict plus the cleaned (and possibly
// goto-merged) request parameters.
type Decision struct {
	State SessionState
	// Authenticating is the orthogonal flag: the request targets the login
	// or auth route and carries fresh credentials.
	Authenticating bool
	Outcome        Outcome
	RedirectTo     string
	Session        *session.Record
	Form           url.Values
	Query          url.Values
}

// ResolveSession classifies the current session and applies the go-to
// preservation/replay side effects. Evaluation order: invalid params, no
// session, hard lock, hard expiry, soft expiry, then the valid path with
// go-to replay. Credential fields are stripped from the returned parameters
// on every non-authenticating path.
func (e *Engine) ResolveSession(ctx context.Context, req *RequestState) (*Decision, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if req == nil {
		req = &RequestState{}
	}

	authRoute := req.RouteName != "" &&
		(req.RouteName == e.config.Session.LoginRoute || req.RouteName == e.config.Session.AuthRoute)
	authenticating := authRoute && req.HasCredentials

	d := &Decision{
		Authenticating: authenticating,
		Form:           cloneValues(req.Form),
		Query:          cloneValues(req.Query),
	}
	if !authenticating {
		e.stripCredentials(d.Form)
		e.stripCredentials(d.Query)
	}

	if req.ParamsInvalid {
		d.State = StateInvalid
		d.Outcome = OutcomeBadRequest
		return d, nil
	}

	sid := e.sessionIDFromHandle(req.SessionHandle)
	if sid == "" {
		d.State = StateNoSession
		d.Outcome = OutcomeProceed
		return d, nil
	}

	rec, err := e.sessionStore.Get(ctx, sid)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			d.State = StateNoSession
			d.Outcome = OutcomeProceed
			return d, nil
		case errors.Is(err, session.ErrSessionCorrupt):
			// Unreadable record: discard it and detour through the generic
			// session-error destination, never a raw error message.
			_ = e.sessionStore.Delete(ctx, sid)
			e.emitAudit(ctx, auditEventSessionError, false, "", sid, ErrSessionError, nil)
			d.State = StateInvalid
			d.Outcome = OutcomeRedirect
			d.RedirectTo = e.config.Session.ErrorDestination
			return d, nil
		default:
			return nil, err
		}
	}
	d.Session = rec

	// Hard lock is checked before anything else about the session; it
	// overrides every other outcome.
	if e.provider != nil {
		lock, lerr := e.provider.GetLockState(ctx, rec.UserID)
		if lerr == nil && lock.HardLocked() {
			e.emitAudit(ctx, auditEventAccessLocked, false, rec.UserID, rec.ID, ErrAccountLocked, nil)
			d.State = StateHardLocked
			d.Outcome = OutcomeDenied
			return d, nil
		}
	}

	now := e.now()

	if rec.HardExpired(now) {
		_ = e.sessionStore.Delete(ctx, rec.ID)
		e.metricInc(MetricSessionExpired)
		e.emitAudit(ctx, auditEventSessionExpired, false, rec.UserID, rec.ID, ErrSessionExpired, nil)
		d.State = StateHardExpired
		d.Outcome = OutcomeRedirect
		d.RedirectTo = e.config.Session.ExpiredDestination
		return d, nil
	}

	if rec.SoftExpired(now) && !authRoute && !req.HasCredentials {
		// Forced detour: preserve the request so it survives
		// re-authentication, then send the user to prolongation.
		g := &session.GotoState{
			URI:         req.URI,
			Referrer:    req.Referrer,
			RouteName:   req.RouteName,
			FormParams:  e.preserveParams(req.Form),
			QueryParams: e.preserveParams(req.Query),
			SessionID:   rec.ID,
		}
		if encoded, gerr := session.EncodeGoto(g); gerr == nil {
			if perr := e.sessionStore.PutVar(ctx, rec.ID, session.GotoVar, encoded); perr == nil {
				e.metricInc(MetricGotoSaved)
				e.emitAudit(ctx, auditEventGotoSaved, true, rec.UserID, rec.ID, nil, func() map[string]string {
					return map[string]string{"uri": req.URI}
				})
			}
		}
		d.State = StateSoftExpired
		d.Outcome = OutcomeRedirect
		d.RedirectTo = e.config.Session.ProlongateDestination
		return d, nil
	}

	live := rec.Live(now)
	switch {
	case live:
		d.State = StateValid
	case rec.SoftExpired(now):
		d.State = StateSoftExpired
	default:
		d.State = StateInvalid
		if !authenticating {
			e.emitAudit(ctx, auditEventSessionError, false, rec.UserID, rec.ID, ErrSessionError, nil)
			d.Outcome = OutcomeRedirect
			d.RedirectTo = e.config.Session.ErrorDestination
			return d, nil
		}
	}
	d.Outcome = OutcomeProceed

	if live || authenticating {
		if err := e.replayGoto(ctx, req, rec, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// replayGoto consumes a stored go-to record if it matches the current
// request. A broken record is discarded and turns the decision into a
// redirect to the session-error destination; a mismatching record is left
// untouched; it is only ever deleted when successfully consumed.
func (e *Engine) replayGoto(ctx context.Context, req *RequestState, rec *session.Record, d *Decision) error {
	stored, err := e.sessionStore.GetVar(ctx, rec.ID, session.GotoVar)
	if err != nil {
		if errors.Is(err, session.ErrVarNotFound) {
			return nil
		}
		return err
	}

	g, derr := session.DecodeGoto(stored)
	if derr != nil {
		_ = e.sessionStore.DeleteVar(ctx, rec.ID, session.GotoVar)
		e.metricInc(MetricGotoCorrupt)
		e.emitAudit(ctx, auditEventGotoCorrupt, false, rec.UserID, rec.ID, ErrSessionError, nil)
		d.Outcome = OutcomeRedirect
		d.RedirectTo = e.config.Session.ErrorDestination
		return nil
	}

	switch {
	case g.Matches(req.URI, rec.ID):
		mergeValues(d.Form, g.FormParams)
		mergeValues(d.Query, g.QueryParams)
		if err := e.sessionStore.DeleteVar(ctx, rec.ID, session.GotoVar); err != nil {
			return err
		}
		e.metricInc(MetricGotoReplayed)
		e.emitAudit(ctx, auditEventGotoReplayed, true, rec.UserID, rec.ID, nil, func() map[string]string {
			return map[string]string{"uri": g.URI}
		})
	case d.Authenticating && g.SessionID == rec.ID:
		// Login just completed on this session: send the user back to the
		// preserved destination with their in-flight data.
		mergeValues(d.Form, g.FormParams)
		mergeValues(d.Query, g.QueryParams)
		if err := e.sessionStore.DeleteVar(ctx, rec.ID, session.GotoVar); err != nil {
			return err
		}
		e.metricInc(MetricGotoReplayed)
		e.emitAudit(ctx, auditEventGotoReplayed, true, rec.UserID, rec.ID, nil, func() map[string]string {
			return map[string]string{"uri": g.URI}
		})
		d.Outcome = OutcomeRedirect
		d.RedirectTo = g.URI
	default:
		// Saved for a different request; not ours to consume.
	}
	return nil
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func mergeValues(dst, src url.Values) {
	for k, vals := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = append([]string(nil), vals...)
		}
	}
}

// stripCredentials removes password fields in place so secrets never echo
// downstream.
func (e *Engine) stripCredentials(v url.Values) {
	for _, field := range e.config.Session.CredentialFields {
		delete(v, field)
	}
}

// preserveParams clones request parameters for go-to storage, dropping the
// session id field and every credential field.
func (e *Engine) preserveParams(v url.Values) url.Values {
	if len(v) == 0 {
		return nil
	}
	out := cloneValues(v)
	delete(out, e.config.Session.SessionField)
	e.stripCredentials(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
