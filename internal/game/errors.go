// internal/game/errors.go
package game

import "errors"

// ErrorKind classifies a failure for reporting purposes.
type ErrorKind int

const (
	// KindRuleViolation covers client mistakes: wrong state, wrong turn, not a participant, busy.
	KindRuleViolation ErrorKind = iota
	// KindNotFound covers unknown session or tournament ids.
	KindNotFound
	// KindUpstream covers failed or timed-out calls to sibling services.
	KindUpstream
	// KindInternal covers invariant violations. Reported to the client like a rule violation.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRuleViolation:
		return "rule_violation"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_unavailable"
	default:
		return "internal"
	}
}

// Error is a domain failure that is reported to the offending client only.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func ruleViolation(code, msg string) *Error {
	return &Error{Kind: KindRuleViolation, Code: code, Message: msg}
}

var (
	ErrSessionNotFound = &Error{Kind: KindNotFound, Code: "session_not_found", Message: "session not found"}
	ErrUserNotFound    = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrUpstream        = &Error{Kind: KindUpstream, Code: "upstream_unavailable", Message: "a dependent service is unavailable, try again"}
	ErrInternal        = &Error{Kind: KindInternal, Code: "internal", Message: "request could not be processed"}

	ErrBusy           = ruleViolation("already_busy", "user is already in a game or in matchmaking")
	ErrSelfInvite     = ruleViolation("self_invite", "cannot invite yourself")
	ErrBlocked        = ruleViolation("blocked", "cannot play with this user")
	ErrNotInvited     = ruleViolation("not_invited", "you are not the invited player")
	ErrNotCreator     = ruleViolation("not_creator", "only the creator can do that")
	ErrNotParticipant = ruleViolation("not_participant", "you are not part of this session")
	ErrWrongState     = ruleViolation("wrong_state", "session is not in a state that allows this")
	ErrNotQueued      = ruleViolation("not_queued", "you are not in matchmaking")
	ErrNotYourTurn    = ruleViolation("not_your_turn", "it is not your turn")
	ErrInvalidMove    = ruleViolation("invalid_move", "move is not valid")
)

// KindOf extracts the ErrorKind of err, defaulting to KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the client-facing code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal.Code
}
