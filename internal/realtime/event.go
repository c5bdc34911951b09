// internal/realtime/event.go
package realtime

import "encoding/json"

// Envelope is the wire format in both directions: one event per message.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound is an Envelope as read from a client, with the payload left raw
// until the event name selects its shape.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client -> server events.
const (
	EventCreateCustomGame = "createCustomGame"
	EventJoinCustomGame   = "joinCustomGame"
	EventCancelCustomGame = "cancelCustomGame"
	EventJoinMatchmaking  = "joinMatchmaking"
	EventLeaveMatchmaking = "leaveMatchmaking"
	EventSetReady         = "setReady"
	EventQuit             = "quit"
	EventMakeMove         = "makeMove"
	EventCreateTournament = "createTournament"
	EventJoinTournament   = "joinTournament"
	EventLeaveTournament  = "leaveTournament"
	EventStartTournament  = "startTournament"
	EventTournamentReady  = "tournamentReady"
	EventPing             = "ping"
)

// Server -> client events.
const (
	EventCustomGameCreated  = "customGameCreated"
	EventGameInvite         = "gameInvite"
	EventOpponentJoined     = "opponentJoined"
	EventReadyStatus        = "readyStatus"
	EventGameCancelled      = "gameCancelled"
	EventMatched            = "matched"
	EventMatchmakingJoined  = "matchmakingJoined"
	EventMatchmakingLeft    = "matchmakingLeft"
	EventGameStarted        = "gameStarted"
	EventMoveMade           = "moveMade"
	EventStateUpdate        = "stateUpdate"
	EventInvalidMove        = "invalidMove"
	EventGameEnded          = "gameEnded"
	EventError              = "error"
	EventPong               = "pong"
	EventTournamentCreated  = "tournamentCreated"
	EventParticipantJoined  = "participantJoined"
	EventParticipantLeft    = "participantLeft"
	EventTournamentStarted  = "tournamentStarted"
	EventRoundAdvanced      = "roundAdvanced"
	EventTournamentFinished = "tournamentFinished"
)
