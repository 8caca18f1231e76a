package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type CreateBlockInput struct {
	DashboardID uuid.UUID
	Title       string
	Description string
	Type        string
	Size        int
	Content     *types.BlockContent
	Position    *int
	CreatedBy   uuid.UUID
}

type UpdateBlockInput struct {
	Title       *string
	Description *string
	Size        *int
	Text        *string
}

// BlockService owns block CRUD. All position effects delegate to the
// position engine.
type BlockService interface {
	Create(ctx context.Context, input CreateBlockInput) (*types.Block, error)
	Get(ctx context.Context, blockID uuid.UUID) (*types.Block, error)
	ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*types.Block, error)
	Update(ctx context.Context, blockID uuid.UUID, input UpdateBlockInput) (*types.Block, error)
	Delete(ctx context.Context, blockID uuid.UUID) error
	Move(ctx context.Context, blockID uuid.UUID, newPosition int) error
	Reorder(ctx context.Context, dashboardID uuid.UUID, orderedIDs []uuid.UUID) error
}

type blockService struct {
	log        *logger.Logger
	blocks     repos.BlockRepo
	dashboards repos.DashboardRepo
	turns      repos.ChatTurnRepo
	positions  PositionService
}

func NewBlockService(
	baseLog *logger.Logger,
	blockRepo repos.BlockRepo,
	dashboardRepo repos.DashboardRepo,
	turnRepo repos.ChatTurnRepo,
	positionService PositionService,
) BlockService {
	return &blockService{
		log:        baseLog.With("service", "BlockService"),
		blocks:     blockRepo,
		dashboards: dashboardRepo,
		turns:      turnRepo,
		positions:  positionService,
	}
}

func validBlockType(t string) bool {
	switch t {
	case types.BlockTypeAI, types.BlockTypeChart, types.BlockTypeTable, types.BlockTypeText, types.BlockTypeMetric:
		return true
	}
	return false
}

func (s *blockService) Create(ctx context.Context, input CreateBlockInput) (*types.Block, error) {
	if _, err := s.dashboards.GetByID(ctx, nil, input.DashboardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDashboardNotFound(input.DashboardID)
		}
		return nil, err
	}
	if !validBlockType(input.Type) {
		return nil, fmt.Errorf("invalid block type %q", input.Type)
	}

	size := input.Size
	if size == 0 {
		size = 6
	} else if size < 1 || size > 12 {
		return nil, fmt.Errorf("block size must be between 1 and 12")
	}

	block := &types.Block{
		DashboardID: input.DashboardID,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Size:        size,
		CreatedBy:   input.CreatedBy,
	}
	if input.Content != nil {
		if err := block.EncodeContent(input.Content); err != nil {
			return nil, err
		}
	}
	return s.positions.Insert(ctx, block, input.Position)
}

func (s *blockService) Get(ctx context.Context, blockID uuid.UUID) (*types.Block, error) {
	block, err := s.blocks.GetByID(ctx, nil, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewBlockNotFound(blockID)
		}
		return nil, err
	}
	return block, nil
}

func (s *blockService) ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*types.Block, error) {
	if _, err := s.dashboards.GetByID(ctx, nil, dashboardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDashboardNotFound(dashboardID)
		}
		return nil, err
	}
	return s.blocks.ListByDashboard(ctx, nil, dashboardID)
}

func (s *blockService) Update(ctx context.Context, blockID uuid.UUID, input UpdateBlockInput) (*types.Block, error) {
	block, err := s.Get(ctx, blockID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		block.Title = *input.Title
	}
	if input.Description != nil {
		block.Description = *input.Description
	}
	if input.Size != nil {
		if *input.Size < 1 || *input.Size > 12 {
			return nil, fmt.Errorf("block size must be between 1 and 12")
		}
		block.Size = *input.Size
	}
	if input.Text != nil {
		content, err := block.DecodeContent()
		if err != nil {
			return nil, err
		}
		content.Text = *input.Text
		if err := block.EncodeContent(content); err != nil {
			return nil, err
		}
	}
	block.UpdatedAt = time.Now().UTC()
	return s.blocks.Update(ctx, nil, block)
}

func (s *blockService) Delete(ctx context.Context, blockID uuid.UUID) error {
	if err := s.positions.Delete(ctx, blockID); err != nil {
		return err
	}
	// Chat history belongs to the block; drop it with the block.
	if err := s.turns.DeleteByBlock(ctx, nil, blockID); err != nil {
		s.log.Warn("Failed to delete chat turns for deleted block", "block_id", blockID, "error", err)
	}
	return nil
}

func (s *blockService) Move(ctx context.Context, blockID uuid.UUID, newPosition int) error {
	return s.positions.Move(ctx, blockID, newPosition)
}

func (s *blockService) Reorder(ctx context.Context, dashboardID uuid.UUID, orderedIDs []uuid.UUID) error {
	if _, err := s.dashboards.GetByID(ctx, nil, dashboardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewDashboardNotFound(dashboardID)
		}
		return err
	}
	return s.positions.Reorder(ctx, dashboardID, orderedIDs)
}
