package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BlockTypeAI     = "ai"
	BlockTypeChart  = "chart"
	BlockTypeTable  = "table"
	BlockTypeText   = "text"
	BlockTypeMetric = "metric"
)

// BlockContent is the JSON body of a block. ChartData is present for chart
// and ai blocks; DataSourceID links the block back to the relation it was
// generated from so follow-up prompts resolve against the same data.
type BlockContent struct {
	ChartData    *ChartPayload `json:"chart_data,omitempty"`
	Text         string        `json:"text,omitempty"`
	DataSourceID *uuid.UUID    `json:"data_source_id,omitempty"`
	LastPrompt   string        `json:"last_prompt,omitempty"`
	GeneratedAt  *time.Time    `json:"generated_at,omitempty"`
}

// Block is one positioned visual unit on a dashboard. Within a dashboard,
// positions are a dense 0..N-1 sequence maintained by the position engine;
// nothing else writes the position column.
type Block struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DashboardID uuid.UUID      `gorm:"type:uuid;not null;index;column:dashboard_id" json:"dashboard_id"`
	Title       string         `gorm:"column:title" json:"title"`
	Description string         `gorm:"column:description" json:"description"`
	Type        string         `gorm:"not null;column:type" json:"type"`
	Size        int            `gorm:"not null;default:6;column:size" json:"size"`
	Content     datatypes.JSON `gorm:"column:content" json:"content"`
	Position    int            `gorm:"not null;column:position" json:"position"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Block) TableName() string {
	return "block"
}

func (b *Block) DecodeContent() (*BlockContent, error) {
	var content BlockContent
	if len(b.Content) == 0 {
		return &content, nil
	}
	if err := json.Unmarshal(b.Content, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

func (b *Block) EncodeContent(content *BlockContent) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	b.Content = datatypes.JSON(raw)
	return nil
}
