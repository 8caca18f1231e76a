package types

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is one Epesi Agent thread on a dashboard. Title is derived
// from the first prompt; UpdatedAt always reflects the latest message.
type Conversation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DashboardID uuid.UUID `gorm:"type:uuid;not null;index;column:dashboard_id" json:"dashboard_id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversation"
}
