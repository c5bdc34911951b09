// internal/models/tournament.go
package models

// TournamentStatus is the lifecycle state of a bracket.
type TournamentStatus string

const (
	TournamentOpen       TournamentStatus = "open"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentFinished   TournamentStatus = "finished"
)
