package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser    = "user"
	RoleAgent   = "agent"
	RoleSystem  = "system"
	RolePending = "pending"
)

// Message is one entry of a conversation's history
type Message struct {
	ID        string
	Role      string
	Content   string // Raw content as typed or returned by the agent
	Rendered  string // Cached rendered markdown (agent messages only)
	Timestamp time.Time
}

func newMessage(role, content string) Message {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Message{
		ID:        id.String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (m Message) IsPending() bool {
	return m.Role == RolePending
}
