package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

// PositionService maintains the dense, gap-free 0..N-1 ordering of blocks
// within a dashboard. Every position mutation runs inside one transaction so
// no observer sees duplicate or missing positions; all other code paths go
// through this service and never write the position column directly.
type PositionService interface {
	// Insert persists the block. With at == nil the block appends at the
	// end; otherwise existing blocks at position >= *at shift right and
	// the block takes *at. Agent-sourced blocks pass at=0 to prepend.
	Insert(ctx context.Context, block *types.Block, at *int) (*types.Block, error)

	// Delete removes the block and closes the position gap: every block
	// with a greater position shifts left by one.
	Delete(ctx context.Context, blockID uuid.UUID) error

	// Move re-positions one block, shifting only the blocks strictly
	// between the old and new position.
	Move(ctx context.Context, blockID uuid.UUID, newPosition int) error

	// Reorder assigns position = index for each id. The id set must match
	// the dashboard's current block set exactly; partial reorders fail
	// with ReorderMismatchError.
	Reorder(ctx context.Context, dashboardID uuid.UUID, orderedIDs []uuid.UUID) error
}

type positionService struct {
	db     *gorm.DB
	log    *logger.Logger
	blocks repos.BlockRepo
}

func NewPositionService(db *gorm.DB, baseLog *logger.Logger, blockRepo repos.BlockRepo) PositionService {
	return &positionService{
		db:     db,
		log:    baseLog.With("service", "PositionService"),
		blocks: blockRepo,
	}
}

func (s *positionService) Insert(ctx context.Context, block *types.Block, at *int) (*types.Block, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.blocks.CountByDashboard(ctx, tx, block.DashboardID)
		if err != nil {
			return err
		}

		position := int(count)
		if at != nil {
			position = clampPosition(*at, int(count))
			if err := s.blocks.ShiftPositions(ctx, tx, block.DashboardID, position, +1); err != nil {
				return err
			}
		}

		block.Position = position
		now := time.Now().UTC()
		if block.CreatedAt.IsZero() {
			block.CreatedAt = now
		}
		block.UpdatedAt = now
		_, err = s.blocks.Create(ctx, tx, block)
		return err
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (s *positionService) Delete(ctx context.Context, blockID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		block, err := s.blocks.GetByID(ctx, tx, blockID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewBlockNotFound(blockID)
			}
			return err
		}
		if err := s.blocks.Delete(ctx, tx, blockID); err != nil {
			return err
		}
		// Close the gap; position is the display order with no separate
		// sort key, so this is mandatory.
		return s.blocks.ShiftPositions(ctx, tx, block.DashboardID, block.Position+1, -1)
	})
}

func (s *positionService) Move(ctx context.Context, blockID uuid.UUID, newPosition int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		block, err := s.blocks.GetByID(ctx, tx, blockID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewBlockNotFound(blockID)
			}
			return err
		}

		count, err := s.blocks.CountByDashboard(ctx, tx, block.DashboardID)
		if err != nil {
			return err
		}
		target := clampPosition(newPosition, int(count)-1)
		if target == block.Position {
			return nil
		}

		// Only the interval between old and new position shifts; the
		// moving block itself is excluded.
		if target > block.Position {
			// moving down: intermediates shift up by one
			err = s.blocks.ShiftPositionRange(ctx, tx, block.DashboardID, block.Position+1, target, -1, block.ID)
		} else {
			// moving up: intermediates shift down by one
			err = s.blocks.ShiftPositionRange(ctx, tx, block.DashboardID, target, block.Position-1, +1, block.ID)
		}
		if err != nil {
			return err
		}
		return s.blocks.SetPosition(ctx, tx, block.ID, target)
	})
}

func (s *positionService) Reorder(ctx context.Context, dashboardID uuid.UUID, orderedIDs []uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.blocks.ListByDashboard(ctx, tx, dashboardID)
		if err != nil {
			return err
		}
		if len(current) != len(orderedIDs) {
			return &ReorderMismatchError{DashboardID: dashboardID}
		}
		existing := make(map[uuid.UUID]bool, len(current))
		for _, block := range current {
			existing[block.ID] = true
		}
		for _, id := range orderedIDs {
			if !existing[id] {
				return &ReorderMismatchError{DashboardID: dashboardID}
			}
			delete(existing, id)
		}

		for index, id := range orderedIDs {
			if err := s.blocks.SetPosition(ctx, tx, id, index); err != nil {
				return err
			}
		}
		return nil
	})
}

func clampPosition(position, max int) int {
	if position < 0 {
		return 0
	}
	if position > max {
		return max
	}
	return position
}
