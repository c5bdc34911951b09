// internal/models/session.go
package models

// SessionKind describes how a session came to exist.
type SessionKind string

const (
	KindCustom          SessionKind = "custom"
	KindRandom          SessionKind = "random"
	KindTournamentMatch SessionKind = "tournament"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"     // custom only: creator present, invitee not yet joined
	StatusInLobby    SessionStatus = "in_lobby"    // both sides present, exchanging readiness
	StatusInProgress SessionStatus = "in_progress" // moves accepted
	StatusFinished   SessionStatus = "finished"
)

// EndReason is reported in gameEnded events.
type EndReason string

const (
	ReasonQuit       EndReason = "quit"
	ReasonTimeout    EndReason = "timeout"
	ReasonRules      EndReason = "rules"
	ReasonDisconnect EndReason = "disconnect"
)
