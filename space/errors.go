package space

import (
	"fmt"

	"github.com/qrigid/engine/broadphase"
	"github.com/qrigid/engine/entity"
)

// Re-exported so callers can errors.Is against a single package surface
// without reaching into entity/broadphase directly (spec §7's surfaced
// kinds: InvalidArgument, MissingEntity; DomainError belongs to the fixed
// package and is never raised at the Space boundary).
var (
	ErrInvalidArgument = entity.ErrInvalidArgument
	ErrMissingEntity   = broadphase.ErrMissingEntity
)

func invalidArgf(format string, args ...interface{}) error {
	return fmt.Errorf("space: "+format+": %w", append(args, ErrInvalidArgument)...)
}

func missingEntityf(format string, args ...interface{}) error {
	return fmt.Errorf("space: "+format+": %w", append(args, ErrMissingEntity)...)
}
