package maestro

import "sync"

// FrameSender transmits one outbound frame over the live connection.
type FrameSender interface {
	SendFrame(frame interface{}) error
}

// SessionContext is the shared session/connection reference handed to
// widgets that emit frames back to the server. The protocol client pushes
// updates through SetID and SetSender whenever either changes; consumers
// never poll for staleness.
type SessionContext struct {
	mu     sync.RWMutex
	id     string
	sender FrameSender
}

func NewSessionContext() *SessionContext {
	return &SessionContext{}
}

// SetID adopts a server-assigned session identifier.
func (s *SessionContext) SetID(id string) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

func (s *SessionContext) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetSender installs the live connection reference.
func (s *SessionContext) SetSender(sender FrameSender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

// Send transmits a frame through the current connection.
func (s *SessionContext) Send(frame interface{}) error {
	s.mu.RLock()
	sender := s.sender
	s.mu.RUnlock()

	if sender == nil {
		return NewSendRejectedError("no active connection")
	}
	return sender.SendFrame(frame)
}

// Reset clears the session identifier on full client reset.
func (s *SessionContext) Reset() {
	s.mu.Lock()
	s.id = ""
	s.mu.Unlock()
}
