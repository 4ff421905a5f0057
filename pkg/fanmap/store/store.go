package store

import (
	"context"
	"time"

	"github.com/cognicore/fanmap/pkg/fanmap/model"
)

// Store persists artifact bundles. Saving replaces the current bundle
// (last writer wins); loading always returns all three artifacts of a single
// training run or an error.
type Store interface {
	Close() error

	SaveBundle(ctx context.Context, b *model.Bundle) error
	LoadBundle(ctx context.Context) (*model.Bundle, error)
	ListBundles(ctx context.Context, limit int) ([]BundleInfo, error)
}

// BundleInfo summarises a stored training run.
type BundleInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Target     string    `json:"target"`
	K          int       `json:"k"`
	Features   int       `json:"features"`
	Silhouette float64   `json:"silhouette"`
	Current    bool      `json:"current"`
}

// Info derives the summary of a bundle.
func Info(b *model.Bundle) BundleInfo {
	return BundleInfo{
		ID:         b.ID,
		CreatedAt:  b.CreatedAt,
		Target:     b.Target,
		K:          b.K(),
		Features:   len(b.TopFeatures),
		Silhouette: b.Silhouette,
	}
}
