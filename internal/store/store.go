package store

import (
	"context"

	"github.com/me/goramble/pkg/model"
)

// Store persists expansion runs and the instances they produced.
type Store interface {
	// Expansions
	SaveExpansion(ctx context.Context, exp *model.Expansion, instances []*model.ExperimentInstance) error
	GetExpansion(ctx context.Context, id string) (*model.Expansion, error)
	ListExpansions(ctx context.Context, opts model.ListOptions) ([]*model.Expansion, int, error)

	// Instances
	GetInstance(ctx context.Context, id string) (*model.ExperimentInstance, error)
	ListInstances(ctx context.Context, opts model.ListOptions) ([]*model.ExperimentInstance, int, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
