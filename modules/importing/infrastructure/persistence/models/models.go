package models

import (
	"database/sql"
	"time"
)

type ImportBatch struct {
	ID         string
	TenantID   string
	EntityType string
	RowCount   int
	Status     string
	CreatedBy  sql.NullInt64
	CreatedAt  time.Time
}

type MatchPattern struct {
	TenantID   string
	EntityType string
	ColumnKey  string
	RawValue   string
	TargetID   int64
	CreatedAt  time.Time
}
