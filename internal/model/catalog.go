package model

import "time"

// Site represents a manufacturing site.
type Site struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`

	// Associations
	Buildings []Building `gorm:"foreignKey:SiteID" json:"buildings,omitempty"`
}

// Building represents a production building. A building belongs to
// exactly one site.
type Building struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	SiteID    int64     `gorm:"index;not null;uniqueIndex:idx_building_site_name" json:"site_id"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_building_site_name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`

	// Associations
	Site Site `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Client represents a customer in the client reference set.
type Client struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

// Service represents a responsible department (Maintenance, Supply, ...).
type Service struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}
