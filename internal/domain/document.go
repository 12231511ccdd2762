package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when a document cannot be located for the
// requesting user.
var ErrDocumentNotFound = errors.New("document not found")

// ErrMissingTitle rejects documents without a title.
var ErrMissingTitle = errors.New("title is required")

// Document is one editable file owned by a user.
type Document struct {
	ID        string
	UserID    string
	Title     string
	Language  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cursor models the pagination token for document listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// DocumentStore captures persistence operations for documents.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc Document) error
	// DocumentByID returns (nil, nil) when no document matches for the user.
	DocumentByID(ctx context.Context, userID, id string) (*Document, error)
	// UpdateDocument returns the updated row, or (nil, nil) when no document
	// matches for the user.
	UpdateDocument(ctx context.Context, userID, id, title, content string, updatedAt time.Time) (*Document, error)
	DocumentsByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Document, *Cursor, error)
}

// Library manages a user's editor documents.
type Library struct {
	store DocumentStore
	now   func() time.Time
}

// NewLibrary constructs a Library.
func NewLibrary(store DocumentStore) *Library {
	return &Library{store: store, now: time.Now}
}

// CreateDocument persists a new document for the user.
func (l *Library) CreateDocument(ctx context.Context, userID, title, language, content string) (*Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	now := l.now().UTC()
	doc := Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Language:  strings.TrimSpace(language),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument fetches one of the user's documents by ID.
func (l *Library) GetDocument(ctx context.Context, userID, id string) (*Document, error) {
	doc, err := l.store.DocumentByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// UpdateDocument replaces the title and content of one of the user's
// documents.
func (l *Library) UpdateDocument(ctx context.Context, userID, id, title, content string) (*Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	doc, err := l.store.UpdateDocument(ctx, userID, id, title, content, l.now().UTC())
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments fetches the user's documents newest first with cursor
// pagination.
func (l *Library) ListDocuments(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Document, *Cursor, error) {
	return l.store.DocumentsByUser(ctx, userID, cursor, limit)
}
