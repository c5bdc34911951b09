// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game gateway.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Auth token was missing, invalid or expired.
	SupersededError       websocket.StatusCode = 3002 // The same user opened a newer connection.
)

// Subprotocol is the only subprotocol the gateway speaks.
const Subprotocol = "versus"
