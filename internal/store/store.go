package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"downtime-tracker-backend/internal/calendar"
	"downtime-tracker-backend/internal/impact"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/validate"
)

// ErrNotFound is returned for operations on a non-existent record id.
var ErrNotFound = errors.New("record not found")

// ErrReferentialViolation is returned when a catalog replace would orphan
// existing downtime records that reference a removed entry.
var ErrReferentialViolation = errors.New("catalog entry is still referenced by downtime records")

// ErrUnknownDimension is returned for a group-by dimension outside
// {site, service, client, week, month}.
var ErrUnknownDimension = errors.New("unknown group-by dimension")

// Store defines the repository contract consumed by the presentation layer.
type Store interface {
	DB() *gorm.DB

	Create(ctx context.Context, in validate.Input) (model.DowntimeRecord, error)
	Get(ctx context.Context, id int64) (model.DowntimeRecord, error)
	Update(ctx context.Context, id int64, patch validate.Input) (model.DowntimeRecord, error)
	Delete(ctx context.Context, id int64) error
	Query(ctx context.Context, f Filter) ([]model.DowntimeRecord, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Aggregate(ctx context.Context, f Filter, groupBy []string) ([]AggregateRow, error)

	Catalogs(ctx context.Context) (CatalogView, error)
	ReplaceCatalog(ctx context.Context, kind CatalogKind, update CatalogUpdate) error
}

// gormStore implements Store using GORM. Every mutation runs the full
// validate -> normalize -> score pipeline inside a single transaction over
// a per-transaction catalog snapshot; no partially computed record is ever
// persisted.
type gormStore struct {
	db        *gorm.DB
	validator validate.Validator
	calc      impact.Calculator
	now       func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, v validate.Validator, c impact.Calculator) Store {
	return &gormStore{db: db, validator: v, calc: c, now: time.Now}
}

// DB exposes the underlying handle for collaborators that manage their own
// tables (push subscriptions).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Create runs the computation pipeline over the input and persists the
// finalized record. The assigned id comes from the store's autoincrement,
// so concurrent creates cannot collide.
func (s *gormStore) Create(ctx context.Context, in validate.Input) (model.DowntimeRecord, error) {
	var rec model.DowntimeRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = s.compute(tx, in)
		if err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return model.DowntimeRecord{}, err
	}
	return rec, nil
}

// Get fetches a single record by id.
func (s *gormStore) Get(ctx context.Context, id int64) (model.DowntimeRecord, error) {
	var rec model.DowntimeRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DowntimeRecord{}, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.DowntimeRecord{}, err
	}
	return rec, nil
}

// Update merges the patch over the stored record and re-runs the whole
// pipeline; a stale stored impact value is never trusted. The record is
// replaced atomically as a whole.
func (s *gormStore) Update(ctx context.Context, id int64, patch validate.Input) (model.DowntimeRecord, error) {
	var rec model.DowntimeRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored model.DowntimeRecord
		if err := tx.First(&stored, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("record %d: %w", id, ErrNotFound)
			}
			return err
		}

		var err error
		rec, err = s.compute(tx, validate.Merge(stored, patch))
		if err != nil {
			return err
		}
		rec.ID = stored.ID
		rec.CreatedAt = stored.CreatedAt
		return tx.Save(&rec).Error
	})
	if err != nil {
		return model.DowntimeRecord{}, err
	}
	return rec, nil
}

// Delete removes a record. No cascading side effects.
func (s *gormStore) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.DowntimeRecord{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("record %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// compute is the pipeline shared by Create and Update: validation against
// a fresh catalog snapshot, calendar normalization, impact scoring.
func (s *gormStore) compute(tx *gorm.DB, in validate.Input) (model.DowntimeRecord, error) {
	cats, matrix, err := loadReferenceSnapshot(tx)
	if err != nil {
		return model.DowntimeRecord{}, fmt.Errorf("failed to load reference catalogs: %w", err)
	}

	rec, err := s.validator.Validate(in, cats, s.now())
	if err != nil {
		return model.DowntimeRecord{}, err
	}

	norm, err := calendar.Normalize(rec.Date, rec.StartTime, rec.EndTime)
	if err != nil {
		return model.DowntimeRecord{}, err
	}
	rec.Date = norm.Date
	rec.StartTime = norm.StartTime
	rec.EndTime = norm.EndTime
	rec.DurationHours = norm.DurationHours
	rec.WeekLabel = norm.WeekLabel
	rec.MonthLabel = norm.MonthLabel
	rec.Year = norm.Year

	rec.ImpactPct, err = s.calc.Compute(matrix, rec.Site, rec.Client, rec.ShiftCount, rec.DurationHours)
	if err != nil {
		return model.DowntimeRecord{}, err
	}
	return rec, nil
}

// loadReferenceSnapshot reads the catalogs and the productivity matrix as
// immutable in-memory snapshots bound to the current transaction.
func loadReferenceSnapshot(tx *gorm.DB) (validate.Catalogs, impact.Matrix, error) {
	var sites []model.Site
	if err := tx.Preload("Buildings").Find(&sites).Error; err != nil {
		return validate.Catalogs{}, nil, err
	}
	var clients []model.Client
	if err := tx.Find(&clients).Error; err != nil {
		return validate.Catalogs{}, nil, err
	}
	var services []model.Service
	if err := tx.Find(&services).Error; err != nil {
		return validate.Catalogs{}, nil, err
	}
	var entries []model.ProductivityMatrixEntry
	if err := tx.Find(&entries).Error; err != nil {
		return validate.Catalogs{}, nil, err
	}

	cats := validate.Catalogs{
		Buildings: make(map[string][]string, len(sites)),
		Clients:   make(map[string]struct{}, len(clients)),
		Services:  make(map[string]struct{}, len(services)),
	}
	for _, site := range sites {
		names := make([]string, len(site.Buildings))
		for i, b := range site.Buildings {
			names[i] = b.Name
		}
		cats.Buildings[site.Name] = names
	}
	for _, c := range clients {
		cats.Clients[c.Name] = struct{}{}
	}
	for _, sv := range services {
		cats.Services[sv.Name] = struct{}{}
	}

	return cats, impact.NewMatrix(entries), nil
}

// applyFilter translates the AND-combined predicates into the query.
func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <= ?", f.DateTo)
	}
	if f.Week != "" {
		q = q.Where("week_label = ?", f.Week)
	}
	if f.Site != "" {
		q = q.Where("site = ?", f.Site)
	}
	if f.Client != "" {
		q = q.Where("client = ?", f.Client)
	}
	if f.Service != "" {
		q = q.Where("service = ?", f.Service)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		q = q.Where("description LIKE ? OR reference LIKE ? OR station LIKE ?", term, term, term)
	}
	return q
}

// Query returns the matching records ordered by date descending with id
// descending as the deterministic tie-break. The ordering plus
// limit/offset makes the sequence restartable.
func (s *gormStore) Query(ctx context.Context, f Filter) ([]model.DowntimeRecord, error) {
	q := applyFilter(s.db.WithContext(ctx).Model(&model.DowntimeRecord{}), f).
		Order("date DESC, id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var records []model.DowntimeRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records matching the filter.
func (s *gormStore) Count(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := applyFilter(s.db.WithContext(ctx).Model(&model.DowntimeRecord{}), f).Count(&n).Error
	return n, err
}

// aggregateColumns maps the public group-by names onto table columns.
var aggregateColumns = map[string]string{
	"site":    "site",
	"service": "service",
	"client":  "client",
	"week":    "week_label",
	"month":   "month_label",
}

// Aggregate sums stored duration and impact values grouped by any subset
// of {site, service, client, week, month}. Impacts are read as persisted;
// they are never recomputed at query time.
func (s *gormStore) Aggregate(ctx context.Context, f Filter, groupBy []string) ([]AggregateRow, error) {
	selects := []string{
		"COUNT(*) as record_count",
		"COALESCE(SUM(duration_hours), 0) as total_hours",
		"COALESCE(SUM(impact_pct), 0) as total_impact",
		"COALESCE(AVG(impact_pct), 0) as avg_impact",
	}
	var groups []string
	for _, g := range groupBy {
		col, ok := aggregateColumns[strings.ToLower(strings.TrimSpace(g))]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownDimension, g)
		}
		selects = append(selects, col)
		groups = append(groups, col)
	}

	q := applyFilter(s.db.WithContext(ctx).Model(&model.DowntimeRecord{}), f).
		Select(strings.Join(selects, ", "))
	if len(groups) > 0 {
		q = q.Group(strings.Join(groups, ", ")).Order(strings.Join(groups, ", "))
	}

	var rows []AggregateRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
