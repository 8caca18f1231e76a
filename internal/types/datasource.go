package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DataSource holds one ingested relation. Fields is the inferred field list
// (JSON array of strings), Rows the normalized records. Both are immutable
// after ingestion; generation requests reference them, never copy them.
type DataSource struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index;column:organization_id" json:"organization_id"`
	Name           string         `gorm:"not null;column:name" json:"name"`
	Fields         datatypes.JSON `gorm:"column:fields" json:"fields"`
	Rows           datatypes.JSON `gorm:"column:rows" json:"rows"`
	RowCount       int            `gorm:"column:row_count" json:"row_count"`
	CreatedBy      uuid.UUID      `gorm:"type:uuid;column:created_by" json:"created_by"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (DataSource) TableName() string {
	return "data_source"
}
