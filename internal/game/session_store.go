// internal/game/session_store.go
package game

import "github.com/google/uuid"

// sessionStore is the in-memory registry of live sessions with a per-user
// index. It is not synchronized: the Manager's lock guards it.
type sessionStore[S any] struct {
	sessions map[uuid.UUID]*Session[S]
	byUser   map[uuid.UUID]map[uuid.UUID]struct{}
}

func newSessionStore[S any]() *sessionStore[S] {
	return &sessionStore[S]{
		sessions: make(map[uuid.UUID]*Session[S]),
		byUser:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (st *sessionStore[S]) add(s *Session[S]) {
	st.sessions[s.ID] = s
	for _, uid := range s.members() {
		st.index(uid, s.ID)
	}
}

// index records that userID is present in session id.
func (st *sessionStore[S]) index(userID, id uuid.UUID) {
	set, ok := st.byUser[userID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		st.byUser[userID] = set
	}
	set[id] = struct{}{}
}

func (st *sessionStore[S]) get(id uuid.UUID) (*Session[S], bool) {
	s, ok := st.sessions[id]
	return s, ok
}

func (st *sessionStore[S]) remove(s *Session[S]) {
	delete(st.sessions, s.ID)
	for _, uid := range s.members() {
		if set, ok := st.byUser[uid]; ok {
			delete(set, s.ID)
			if len(set) == 0 {
				delete(st.byUser, uid)
			}
		}
	}
}

// forUser returns every live session the user is present in.
func (st *sessionStore[S]) forUser(userID uuid.UUID) []*Session[S] {
	set := st.byUser[userID]
	out := make([]*Session[S], 0, len(set))
	for id := range set {
		if s, ok := st.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (st *sessionStore[S]) len() int {
	return len(st.sessions)
}
