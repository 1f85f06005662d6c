package repository

import (
	"context"
	"slices"

	"ummahbook-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *domain.ChatSession) error
	FindByID(ctx context.Context, id string) (*domain.ChatSession, error)
	// ListByUser returns the user's sessions, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]*domain.ChatSession, error)
	// AppendMessage adds msg at the revision it read. ErrConflict means a
	// concurrent writer won and the caller may retry.
	AppendMessage(ctx context.Context, id string, msg domain.ChatMessage) (*domain.ChatSession, error)
	Delete(ctx context.Context, id string) error
}

// chatSessionDoc carries the CouchDB revision and document kind alongside the session.
type chatSessionDoc struct {
	Rev  string `json:"_rev,omitempty"`
	Kind string `json:"kind"`
	domain.ChatSession
}

type chatSessionRepository struct {
	client *kivik.Client
	dbName string
}

func NewChatSessionRepository(client *kivik.Client, dbName string) ChatSessionRepository {
	return &chatSessionRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *chatSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	db := r.client.DB(r.dbName)

	key := docID("chat_session", session.ID)
	doc := &chatSessionDoc{Kind: domain.KindChatSession, ChatSession: *session}
	if _, err := db.Put(ctx, key, doc); err != nil {
		return storageError("COUCHDB_PUT", key, err, "failed to create chat session")
	}

	return nil
}

func (r *chatSessionRepository) get(ctx context.Context, db *kivik.DB, id string) (*chatSessionDoc, error) {
	key := docID("chat_session", id)

	var doc chatSessionDoc
	if err := db.Get(ctx, key).ScanDoc(&doc); err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, storageError("COUCHDB_GET", key, err, "failed to get chat session")
	}
	return &doc, nil
}

func (r *chatSessionRepository) FindByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	doc, err := r.get(ctx, r.client.DB(r.dbName), id)
	if err != nil {
		return nil, err
	}
	return &doc.ChatSession, nil
}

func (r *chatSessionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.ChatSession, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"kind":    domain.KindChatSession,
			"user_id": userID,
		},
	}

	rows := db.Find(ctx, query)
	defer rows.Close()

	sessions := []*domain.ChatSession{}
	for rows.Next() {
		var session domain.ChatSession
		if err := rows.ScanDoc(&session); err != nil {
			id, _ := rows.ID()
			return nil, storageError("COUCHDB_SCAN", id, err, "failed to scan chat session")
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("COUCHDB_FIND", "", err, "failed to list chat sessions")
	}

	slices.SortStableFunc(sessions, func(a, b *domain.ChatSession) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	return sessions, nil
}

func (r *chatSessionRepository) AppendMessage(ctx context.Context, id string, msg domain.ChatMessage) (*domain.ChatSession, error) {
	db := r.client.DB(r.dbName)

	doc, err := r.get(ctx, db, id)
	if err != nil {
		return nil, err
	}

	doc.Messages = append(doc.Messages, msg)
	doc.UpdatedAt = msg.Timestamp

	key := docID("chat_session", id)
	if _, err := db.Put(ctx, key, doc); err != nil {
		if isConflict(err) {
			return nil, ErrConflict
		}
		return nil, storageError("COUCHDB_PUT", key, err, "failed to append chat message")
	}

	return &doc.ChatSession, nil
}

func (r *chatSessionRepository) Delete(ctx context.Context, id string) error {
	db := r.client.DB(r.dbName)

	doc, err := r.get(ctx, db, id)
	if err != nil {
		return err
	}

	key := docID("chat_session", id)
	if _, err := db.Delete(ctx, key, doc.Rev); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		if isConflict(err) {
			return ErrConflict
		}
		return storageError("COUCHDB_DELETE", key, err, "failed to delete chat session")
	}
	return nil
}
