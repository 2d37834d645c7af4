package ports

import (
	"context"

	"github.com/stoik/phish-verdict/internal/domain"
)

// Storage defines the contract for persisting and querying scan history
type Storage interface {
	// SaveScan persists one scan; the record ID and CreatedAt are filled in when zero
	SaveScan(ctx context.Context, record *domain.ScanRecord) error

	// ListScans returns a user's scans, newest first
	ListScans(ctx context.Context, userID string, limit int) ([]domain.ScanRecord, error)

	// Lifecycle
	Close() error
}
