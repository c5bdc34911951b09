// internal/realtime/registry.go
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Conn is a single user's live push channel. The gateway owns the socket and
// drains OutChan from its write pump.
type Conn struct {
	UserID  uuid.UUID
	Cancel  func() // stops the connection's read/write pumps
	OutChan chan Envelope

	closeOnce sync.Once
}

// NewConn builds a connection with a bounded outbound queue.
func NewConn(userID uuid.UUID, cancel func(), buffer int) *Conn {
	return &Conn{
		UserID:  userID,
		Cancel:  cancel,
		OutChan: make(chan Envelope, buffer),
	}
}

// Write pushes a message onto OutChan without blocking. Returns false when the
// queue is full and the message was dropped.
func (c *Conn) Write(env Envelope) bool {
	select {
	case c.OutChan <- env:
		return true
	default:
		return false
	}
}

// Close cancels the connection's pumps. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		if c.Cancel != nil {
			c.Cancel()
		}
	})
}

// Registry maps a user to their live push channel. Delivery is at-most-once
// and best effort: there is no queuing for offline users and no retry.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Conn
	log   *logrus.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]*Conn),
		log:   logger,
	}
}

// Register installs conn as the user's channel. A previous connection for the
// same user is closed and replaced.
func (r *Registry) Register(userID uuid.UUID, conn *Conn) {
	r.mu.Lock()
	old, existed := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if existed && old != conn {
		r.log.WithField("user", userID).Info("Registry: replacing existing connection")
		old.Close()
	}
}

// Unregister removes the user's channel if it is still conn. It reports
// whether a removal happened, so a superseded connection does not log the
// user out from under the new one.
func (r *Registry) Unregister(userID uuid.UUID, conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.conns[userID]
	if !ok || (conn != nil && current != conn) {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Send delivers one event to one user. It never blocks and never fails: an
// absent user or a full queue drops the message.
func (r *Registry) Send(userID uuid.UUID, event string, payload any) {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if !conn.Write(Envelope{Event: event, Data: payload}) {
		r.log.WithFields(logrus.Fields{
			"user":  userID,
			"event": event,
		}).Warn("Registry: outbound queue full, dropped message")
	}
}

// IsOnline reports whether the user currently has a registered channel.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
