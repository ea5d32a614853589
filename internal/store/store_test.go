package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"downtime-tracker-backend/internal/calendar"
	"downtime-tracker-backend/internal/impact"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/validate"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// newTestStore spins up a dedicated in-memory SQLite database with the
// reference catalogs seeded.
func newTestStore(t *testing.T) (*gormStore, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(
		&model.Site{},
		&model.Building{},
		&model.Client{},
		&model.Service{},
		&model.ProductivityMatrixEntry{},
		&model.DowntimeRecord{},
	))

	berrechid := model.Site{Name: "Berrechid"}
	temara := model.Site{Name: "Temara"}
	require.NoError(t, db.Create(&berrechid).Error)
	require.NoError(t, db.Create(&temara).Error)
	require.NoError(t, db.Create(&model.Building{SiteID: berrechid.ID, Name: "Bât A"}).Error)
	require.NoError(t, db.Create(&model.Building{SiteID: berrechid.ID, Name: "Bât B"}).Error)
	require.NoError(t, db.Create(&model.Building{SiteID: temara.ID, Name: "TEM"}).Error)
	require.NoError(t, db.Create(&model.Client{Name: "ACME"}).Error)
	require.NoError(t, db.Create(&model.Client{Name: "Globex"}).Error)
	require.NoError(t, db.Create(&model.Service{Name: "Maintenance"}).Error)
	require.NoError(t, db.Create(&model.Service{Name: "Supply"}).Error)
	require.NoError(t, db.Create(&model.ProductivityMatrixEntry{
		Site: "Berrechid", Client: "ACME", ShiftCount: 2, Factor: 0.8,
	}).Error)
	require.NoError(t, db.Create(&model.ProductivityMatrixEntry{
		Site: "Temara", Client: "*", ShiftCount: 1, Factor: 1.0,
	}).Error)

	s := NewGormStore(db, validate.Validator{}, impact.Calculator{ReferencePeriodHours: 8}).(*gormStore)
	s.now = func() time.Time { return time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC) }
	return s, db
}

func submission() validate.Input {
	return validate.Input{
		Date:        strPtr("2026-01-30"),
		Site:        strPtr("Berrechid"),
		Building:    strPtr("Bât A"),
		StartTime:   strPtr("22:00"),
		EndTime:     strPtr("02:00"),
		Client:      strPtr("ACME"),
		Service:     strPtr("Maintenance"),
		ShiftCount:  intPtr(2),
		Description: strPtr("Conveyor jam on line 3"),
		Reference:   strPtr("REF-1042"),
	}
}

func TestCreateComputesAndPersists(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, submission())
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.Equal(t, 4.0, rec.DurationHours, "overnight 22:00->02:00 is four hours")
	assert.Equal(t, "2026-S05", rec.WeekLabel)
	assert.Equal(t, "2026-M01", rec.MonthLabel)
	assert.Equal(t, 2026, rec.Year)
	assert.Equal(t, 40.0, rec.ImpactPct, "(4/8) x 0.8 x 100")
	assert.Equal(t, model.StatusOpen, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.Before(rec.CreatedAt))

	// Round trip: the stored record equals the returned one, computed
	// fields included.
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.DurationHours, got.DurationHours)
	assert.Equal(t, rec.WeekLabel, got.WeekLabel)
	assert.Equal(t, rec.ImpactPct, got.ImpactPct)
	assert.Equal(t, rec.Description, got.Description)
}

func TestCreateFailsWithoutMatrixEntry(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := submission()
	in.Client = strPtr("Globex") // no (Berrechid, Globex, 2) row, no wildcard

	_, err := s.Create(ctx, in)
	assert.ErrorIs(t, err, impact.ErrMissingFactor)

	// The failed pipeline must leave nothing behind.
	n, err := s.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateUsesWildcardFallback(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := submission()
	in.Site = strPtr("Temara")
	in.Building = strPtr("TEM")
	in.Client = strPtr("Globex")
	in.ShiftCount = intPtr(1)

	rec, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.ImpactPct, "(4/8) x 1.0 x 100 via wildcard client")
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := submission()
	in.Site = strPtr("Atlantis")
	in.Service = nil

	_, err := s.Create(ctx, in)
	var errs validate.Errors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
}

func TestCreateRejectsEmptyInterval(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := submission()
	in.EndTime = strPtr("22:00")

	_, err := s.Create(ctx, in)
	assert.ErrorIs(t, err, calendar.ErrInvalidInterval)
}

func TestUpdateRecomputesImpact(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, submission())
	require.NoError(t, err)

	// Shortening the interval must recompute duration and impact.
	updated, err := s.Update(ctx, rec.ID, validate.Input{EndTime: strPtr("00:00")})
	require.NoError(t, err)
	assert.Equal(t, 2.0, updated.DurationHours)
	assert.Equal(t, 20.0, updated.ImpactPct)
	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, rec.CreatedAt.UTC(), updated.CreatedAt.UTC(), "created_at is immutable")
}

func TestUpdateIsIdempotentExceptTimestamp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, submission())
	require.NoError(t, err)

	patch := validate.Input{Status: strPtr(model.StatusResolved)}
	first, err := s.Update(ctx, rec.ID, patch)
	require.NoError(t, err)
	second, err := s.Update(ctx, rec.ID, patch)
	require.NoError(t, err)

	first.UpdatedAt = second.UpdatedAt
	assert.Equal(t, first, second)
}

func TestUpdateMissingRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, 4242, validate.Input{Status: strPtr(model.StatusResolved)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, submission())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err = s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Updating a deleted id fails with not-found, same as deleting twice.
	_, err = s.Update(ctx, rec.ID, validate.Input{Status: strPtr(model.StatusResolved)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound)
}

func seedRecords(t *testing.T, s *gormStore) []model.DowntimeRecord {
	t.Helper()
	ctx := context.Background()

	var out []model.DowntimeRecord
	for _, tc := range []struct {
		date, start, end, service, desc string
	}{
		{"2026-01-26", "08:00", "10:00", "Maintenance", "robot cell fault"},
		{"2026-01-28", "14:00", "15:30", "Supply", "missing components"},
		{"2026-01-30", "22:00", "02:00", "Maintenance", "conveyor jam"},
		{"2026-01-30", "06:00", "07:00", "Supply", "late delivery"},
	} {
		in := submission()
		in.Date = strPtr(tc.date)
		in.StartTime = strPtr(tc.start)
		in.EndTime = strPtr(tc.end)
		in.Service = strPtr(tc.service)
		in.Description = strPtr(tc.desc)
		rec, err := s.Create(ctx, in)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestQueryOrderingAndFilters(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seeded := seedRecords(t, s)

	// Date descending, then id descending for same-day records.
	all, err := s.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, seeded[3].ID, all[0].ID)
	assert.Equal(t, seeded[2].ID, all[1].ID)
	assert.Equal(t, seeded[1].ID, all[2].ID)
	assert.Equal(t, seeded[0].ID, all[3].ID)

	// Predicates are AND-combined.
	got, err := s.Query(ctx, Filter{Service: "Maintenance", DateFrom: "2026-01-29"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "conveyor jam", got[0].Description)

	// Free-text search over description.
	got, err = s.Query(ctx, Filter{Search: "delivery"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "late delivery", got[0].Description)

	// Week filter.
	got, err = s.Query(ctx, Filter{Week: "2026-S05"})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// Pagination restarts deterministically.
	page1, err := s.Query(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	page2, err := s.Query(ctx, Filter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	assert.Equal(t, all[0].ID, page1[0].ID)
	assert.Equal(t, all[2].ID, page2[0].ID)
}

func TestAggregate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedRecords(t, s)

	// Grand totals with no grouping.
	rows, err := s.Aggregate(ctx, Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4), rows[0].Count)
	assert.InDelta(t, 8.5, rows[0].TotalHours, 1e-9) // 2 + 1.5 + 4 + 1

	// Grouped by service: sums of stored values.
	rows, err = s.Aggregate(ctx, Filter{}, []string{"service"})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byService := make(map[string]AggregateRow)
	for _, r := range rows {
		byService[r.Service] = r
	}
	assert.Equal(t, int64(2), byService["Maintenance"].Count)
	assert.InDelta(t, 6.0, byService["Maintenance"].TotalHours, 1e-9)
	assert.InDelta(t, 60.0, byService["Maintenance"].TotalImpact, 1e-9) // 20 + 40
	assert.InDelta(t, 30.0, byService["Maintenance"].AvgImpact, 1e-9)
	assert.Equal(t, int64(2), byService["Supply"].Count)

	_, err = s.Aggregate(ctx, Filter{}, []string{"machine"})
	assert.Error(t, err)
}

func TestReplaceCatalogProtection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedRecords(t, s)

	// Dropping a referenced service is refused.
	err := s.ReplaceCatalog(ctx, CatalogServices, CatalogUpdate{Names: []string{"Maintenance"}})
	assert.ErrorIs(t, err, ErrReferentialViolation)

	// The refused replace leaves the catalog untouched.
	view, err := s.Catalogs(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Services, 2)

	// Replacing with a superset succeeds.
	err = s.ReplaceCatalog(ctx, CatalogServices, CatalogUpdate{
		Names: []string{"Maintenance", "Supply", "Quality"},
	})
	require.NoError(t, err)
	view, err = s.Catalogs(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Services, 3)

	// Dropping a referenced site is refused; dropping an unreferenced
	// one succeeds.
	err = s.ReplaceCatalog(ctx, CatalogSites, CatalogUpdate{
		Sites: []SiteEntry{{Name: "Temara", Buildings: []string{"TEM"}}},
	})
	assert.ErrorIs(t, err, ErrReferentialViolation)

	err = s.ReplaceCatalog(ctx, CatalogSites, CatalogUpdate{
		Sites: []SiteEntry{{Name: "Berrechid", Buildings: []string{"Bât A", "Bât B"}}},
	})
	require.NoError(t, err)

	// Dropping a referenced building is refused even when its site stays.
	err = s.ReplaceCatalog(ctx, CatalogSites, CatalogUpdate{
		Sites: []SiteEntry{{Name: "Berrechid", Buildings: []string{"Bât B"}}},
	})
	assert.ErrorIs(t, err, ErrReferentialViolation)
}

func TestReplaceMatrixAffectsFutureComputationsOnly(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	before, err := s.Create(ctx, submission())
	require.NoError(t, err)

	err = s.ReplaceCatalog(ctx, CatalogMatrix, CatalogUpdate{
		Matrix: []MatrixEntry{{Site: "Berrechid", Client: "ACME", ShiftCount: 2, Factor: 0.4}},
	})
	require.NoError(t, err)

	// Stored impacts are untouched by matrix edits.
	got, err := s.Get(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.ImpactPct)

	// New records pick up the new factor.
	after, err := s.Create(ctx, submission())
	require.NoError(t, err)
	assert.Equal(t, 20.0, after.ImpactPct)
}
