package store

import (
	"context"
	"errors"

	"github.com/Praneeth-A/onebox/internal/models"
)

// ErrNotFound is returned when no document exists for the requested id.
var ErrNotFound = errors.New("email document not found")

// EmailStore is the index store consumed by the sync engine. Writes are keyed
// by fingerprint; saving an id that already exists is a no-op, which makes the
// store the only synchronization primitive shared across account goroutines.
type EmailStore interface {
	// EnsureSchema creates the email index if it does not exist. Idempotent.
	EnsureSchema(ctx context.Context) error

	// Exists reports whether a document with the given id is already indexed.
	Exists(ctx context.Context, id string) (bool, error)

	// GetByID returns the document with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.EmailDocument, error)

	// Save indexes the document under doc.ID. Saving an existing id is a no-op.
	Save(ctx context.Context, doc *models.EmailDocument) error

	// CountByAccountFolder returns indexed message counts grouped by
	// account, folder and folder type.
	CountByAccountFolder(ctx context.Context) ([]models.FolderCount, error)
}
