// Package session keeps per-conversation chat history, either in memory
// or in Redis when multiple processes need to share it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session ID has no history.
var ErrSessionNotFound = errors.New("session not found")

// Roles stored in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists conversation history per session.
type Store interface {
	Append(ctx context.Context, sessionID string, msg Message) error
	History(ctx context.Context, sessionID string) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Stats summarizes one session's history.
type Stats struct {
	Messages          int           `json:"messages"`
	UserMessages      int           `json:"user_messages"`
	AssistantMessages int           `json:"assistant_messages"`
	Duration          time.Duration `json:"duration"`
}

// ComputeStats derives session statistics from a message history.
func ComputeStats(msgs []Message) Stats {
	stats := Stats{Messages: len(msgs)}
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			stats.UserMessages++
		case RoleAssistant:
			stats.AssistantMessages++
		}
	}
	if len(msgs) > 1 {
		stats.Duration = msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp)
	}
	return stats
}

// MemoryStore keeps history in process memory. Suitable for the CLI,
// where a session lives and dies with the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Message)}
}

// Append adds a message to the session, creating it if needed.
func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], msg)
	return nil
}

// History returns a copy of the session's messages in order.
func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Clear removes the session's history.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
