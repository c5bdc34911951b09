// internal/models/identity.go
package models

import "github.com/google/uuid"

// Identity is one side of a match or one tournament participant.
type Identity struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}

// Side identifies which slot of a session a user occupies. SideA always moves first.
type Side int

const (
	SideA Side = iota
	SideB
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// MarshalText lets sides appear as "A"/"B" in event payloads.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
