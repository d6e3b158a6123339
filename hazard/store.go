package hazard

import (
	"context"

	"github.com/paulmach/orb"
)

// Store returns the zones intersecting a bounding box.
type Store interface {
	ZonesIn(ctx context.Context, bound orb.Bound) ([]Zone, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, bound orb.Bound) ([]Zone, error)

func (f StoreFunc) ZonesIn(ctx context.Context, bound orb.Bound) ([]Zone, error) {
	return f(ctx, bound)
}
