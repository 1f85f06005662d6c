package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/repository"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Chat event names pushed to a user's live connections.
const (
	EventChatCreated = "chat_created"
	EventChatMessage = "chat_message"
	EventChatDeleted = "chat_deleted"
)

// EventPublisher delivers an event to every live connection of a user.
type EventPublisher interface {
	Publish(userID, event string, payload interface{}) error
}

type ChatDeletedPayload struct {
	SessionID string `json:"session_id"`
}

type ChatService struct {
	sessions        repository.ChatSessionRepository
	publisher       EventPublisher
	logger          *slog.Logger
	conflictRetries uint64
	retryBase       time.Duration
	now             func() time.Time
}

// NewChatService builds the service. publisher may be nil when no live
// connections are served.
func NewChatService(sessions repository.ChatSessionRepository, publisher EventPublisher, logger *slog.Logger) *ChatService {
	return &ChatService{
		sessions:        sessions,
		publisher:       publisher,
		logger:          logger,
		conflictRetries: 5,
		retryBase:       20 * time.Millisecond,
		now:             time.Now,
	}
}

func (s *ChatService) Create(ctx context.Context, caller domain.Caller, req *domain.CreateChatSessionRequest) (*domain.ChatSession, error) {
	if !caller.CanAccess(req.UserID) {
		return nil, domain.ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = domain.DefaultChatTitle
	}

	now := s.now().UTC()
	session := &domain.ChatSession{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Title:     title,
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, &domain.StorageError{Op: "create chat session", Err: err}
	}

	s.publish(session.UserID, EventChatCreated, session)
	return session, nil
}

func (s *ChatService) ListByUser(ctx context.Context, caller domain.Caller, userID string) ([]*domain.ChatSession, error) {
	if !caller.CanAccess(userID) {
		return nil, domain.ErrForbidden
	}

	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list chat sessions", Err: err}
	}
	return sessions, nil
}

func (s *ChatService) Get(ctx context.Context, caller domain.Caller, id string) (*domain.ChatSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, chatStorageError("get chat session", err)
	}
	if !caller.CanAccess(session.UserID) {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// AddMessage appends a message, re-reading and retrying when another writer
// updated the session first.
func (s *ChatService) AddMessage(ctx context.Context, caller domain.Caller, id string, req *domain.AddChatMessageRequest) (*domain.ChatSession, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}

	msg := domain.ChatMessage{
		Role:      req.Role,
		Content:   req.Content,
		Timestamp: s.now().UTC(),
	}

	var updated *domain.ChatSession
	backoff := retry.WithMaxRetries(s.conflictRetries, retry.NewExponential(s.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		session, err := s.sessions.AppendMessage(ctx, id, msg)
		if errors.Is(err, repository.ErrConflict) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, chatStorageError("append chat message", err)
	}

	s.publish(updated.UserID, EventChatMessage, updated)
	return updated, nil
}

func (s *ChatService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	session, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		return chatStorageError("delete chat session", err)
	}

	s.publish(session.UserID, EventChatDeleted, &ChatDeletedPayload{SessionID: id})
	return nil
}

func (s *ChatService) publish(userID, event string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(userID, event, payload); err != nil {
		s.logger.Warn("failed to publish chat event", "event", event, "user_id", userID, "error", err)
	}
}

func chatStorageError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrNotFound
	}
	return &domain.StorageError{Op: op, Err: err}
}
