package store

// Filter is the query contract of the repository: optional predicates
// combined with logical AND.
type Filter struct {
	DateFrom string `form:"from"`
	DateTo   string `form:"to"`
	Week     string `form:"week"`
	Site     string `form:"site"`
	Client   string `form:"client"`
	Service  string `form:"service"`
	Status   string `form:"status"`
	// Search is a free-text substring match over description, reference
	// and station.
	Search string `form:"q"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// AggregateRow is one group of the aggregate contract. Group columns not
// part of the requested grouping stay empty.
type AggregateRow struct {
	Site    string `gorm:"column:site" json:"site,omitempty"`
	Service string `gorm:"column:service" json:"service,omitempty"`
	Client  string `gorm:"column:client" json:"client,omitempty"`
	Week    string `gorm:"column:week_label" json:"week,omitempty"`
	Month   string `gorm:"column:month_label" json:"month,omitempty"`

	Count       int64   `gorm:"column:record_count" json:"count"`
	TotalHours  float64 `gorm:"column:total_hours" json:"total_hours"`
	TotalImpact float64 `gorm:"column:total_impact" json:"total_impact"`
	AvgImpact   float64 `gorm:"column:avg_impact" json:"avg_impact"`
}

// CatalogKind names one replaceable reference catalog.
type CatalogKind string

const (
	CatalogSites    CatalogKind = "sites"
	CatalogClients  CatalogKind = "clients"
	CatalogServices CatalogKind = "services"
	CatalogMatrix   CatalogKind = "matrix"
)

// SiteEntry declares one site and its buildings for a bulk replace.
type SiteEntry struct {
	Name      string   `json:"name" binding:"required"`
	Buildings []string `json:"buildings"`
}

// MatrixEntry declares one productivity matrix row for a bulk replace.
type MatrixEntry struct {
	Site       string  `json:"site" binding:"required"`
	Client     string  `json:"client" binding:"required"`
	ShiftCount int     `json:"shift_count"`
	Factor     float64 `json:"factor" binding:"required"`
}

// CatalogUpdate carries the replacement entries for one catalog kind.
// Exactly one of the slices is consulted, depending on the kind.
type CatalogUpdate struct {
	Sites  []SiteEntry   `json:"sites"`
	Names  []string      `json:"names"`
	Matrix []MatrixEntry `json:"matrix"`
}
