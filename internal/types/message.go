package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

// MessageMetadata carries the charts an assistant message produced.
type MessageMetadata struct {
	Charts []ChartPayload `json:"charts,omitempty"`
}

// Message is append-only; messages are strictly ordered by creation time
// within a conversation.
type Message struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID      `gorm:"type:uuid;not null;index;column:conversation_id" json:"conversation_id"`
	Role           string         `gorm:"not null;column:role" json:"role"`
	Content        string         `gorm:"column:content" json:"content"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Message) TableName() string {
	return "message"
}

func (m *Message) DecodeMetadata() (*MessageMetadata, error) {
	var meta MessageMetadata
	if len(m.Metadata) == 0 {
		return &meta, nil
	}
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Message) EncodeMetadata(meta *MessageMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	m.Metadata = datatypes.JSON(raw)
	return nil
}
