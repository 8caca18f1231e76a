package types

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index;column:organization_id" json:"organization_id"`
	Name           string    `gorm:"not null;column:name" json:"name"`
	Description    string    `gorm:"column:description" json:"description"`
	CreatedBy      uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string {
	return "project"
}
