package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatTurn is one per-block prompt/result pair. Append-only; never mutated;
// deletable individually. The chart snapshot is the reconciled payload as it
// was at generation time.
type ChatTurn struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BlockID     uuid.UUID      `gorm:"type:uuid;not null;index;column:block_id" json:"block_id"`
	Question    string         `gorm:"not null;column:question" json:"question"`
	ChartData   datatypes.JSON `gorm:"column:chart_data" json:"chart_data"`
	GeneratedAt time.Time      `gorm:"not null;index" json:"generated_at"`
}

func (ChatTurn) TableName() string {
	return "chat_turn"
}

func (t *ChatTurn) DecodeChart() (*ChartPayload, error) {
	if len(t.ChartData) == 0 {
		return nil, nil
	}
	var payload ChartPayload
	if err := json.Unmarshal(t.ChartData, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (t *ChatTurn) EncodeChart(payload *ChartPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	t.ChartData = datatypes.JSON(raw)
	return nil
}
