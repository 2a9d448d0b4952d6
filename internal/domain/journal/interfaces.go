package journal

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yanqian/health-journal/internal/infra/llm/chatgpt"
)

var (
	// ErrEntryNotFound is returned by repositories for unknown ids.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrVersionConflict is returned when an update races another writer.
	ErrVersionConflict = errors.New("entry version conflict")
)

// Repository persists day logs. Update must only succeed when the stored
// version equals expectedVersion, and it bumps the version by one.
type Repository interface {
	Create(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id uuid.UUID) (Entry, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
	Update(ctx context.Context, entry Entry, expectedVersion int) (Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BlobStore keeps recorded clips.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (StoredObject, error)
	URL(ctx context.Context, key string) (string, error)
}

// StoredObject captures persisted blob metadata.
type StoredObject struct {
	Key      string
	Size     int64
	MimeType string
	ETag     string
}

// ChatClient is the LLM backend used for extraction and transcription.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
	CreateTranscription(ctx context.Context, req chatgpt.TranscriptionRequest) (chatgpt.TranscriptionResponse, error)
}
