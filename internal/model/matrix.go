package model

import "time"

// MatrixWildcardClient matches any client in a productivity matrix lookup.
const MatrixWildcardClient = "*"

// MatrixWildcardShiftCount matches any shift count in a lookup.
const MatrixWildcardShiftCount = 0

// ProductivityMatrixEntry is one reference row of the productivity matrix:
// (site, client, shift count) -> productivity factor. Rows are maintained
// through catalog administration only, never by downtime entry.
type ProductivityMatrixEntry struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Site       string    `gorm:"size:64;not null;uniqueIndex:idx_matrix_key" json:"site"`
	Client     string    `gorm:"size:64;not null;uniqueIndex:idx_matrix_key" json:"client"`
	ShiftCount int       `gorm:"not null;uniqueIndex:idx_matrix_key" json:"shift_count"`
	Factor     float64   `gorm:"not null" json:"factor"`
	CreatedAt  time.Time `gorm:"not null" json:"-"`
	UpdatedAt  time.Time `gorm:"not null" json:"-"`
}
