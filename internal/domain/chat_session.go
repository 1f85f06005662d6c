package domain

import "time"

const (
	KindChatSession  = "chat_session"
	DefaultChatTitle = "Sesi Chat Baru"
)

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatSession struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type CreateChatSessionRequest struct {
	UserID string `json:"userId" validate:"required"`
	Title  string `json:"title" validate:"max=200"`
}

type AddChatMessageRequest struct {
	Role    string `json:"role" validate:"required,max=32"`
	Content string `json:"content" validate:"required"`
}
