package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"downtime-tracker-backend/internal/model"
)

// CatalogView is the read contract over the reference data.
type CatalogView struct {
	Sites    []model.Site                    `json:"sites"`
	Clients  []model.Client                  `json:"clients"`
	Services []model.Service                 `json:"services"`
	Matrix   []model.ProductivityMatrixEntry `json:"matrix"`
}

// Catalogs returns the current reference catalogs.
func (s *gormStore) Catalogs(ctx context.Context) (CatalogView, error) {
	var view CatalogView
	db := s.db.WithContext(ctx)
	if err := db.Preload("Buildings").Order("name").Find(&view.Sites).Error; err != nil {
		return CatalogView{}, err
	}
	if err := db.Order("name").Find(&view.Clients).Error; err != nil {
		return CatalogView{}, err
	}
	if err := db.Order("name").Find(&view.Services).Error; err != nil {
		return CatalogView{}, err
	}
	if err := db.Order("site, client, shift_count").Find(&view.Matrix).Error; err != nil {
		return CatalogView{}, err
	}
	return view, nil
}

// ReplaceCatalog bulk-replaces one reference catalog. The replace is
// refused with ErrReferentialViolation when it would remove an entry that
// existing downtime records still reference; history is never silently
// detached.
func (s *gormStore) ReplaceCatalog(ctx context.Context, kind CatalogKind, update CatalogUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case CatalogSites:
			return replaceSites(tx, update.Sites)
		case CatalogClients:
			return replaceClients(tx, update.Names)
		case CatalogServices:
			return replaceServices(tx, update.Names)
		case CatalogMatrix:
			// Records carry their computed impact; matrix rows are not
			// referenced by history and may be replaced freely.
			return replaceMatrix(tx, update.Matrix)
		default:
			return fmt.Errorf("unknown catalog kind %q", kind)
		}
	})
}

func replaceSites(tx *gorm.DB, entries []SiteEntry) error {
	keep := make(map[string]map[string]struct{}, len(entries))
	for _, e := range entries {
		buildings := make(map[string]struct{}, len(e.Buildings))
		for _, b := range e.Buildings {
			buildings[b] = struct{}{}
		}
		keep[e.Name] = buildings
	}

	// Every site and (site, building) pair referenced by history must
	// survive the replace.
	type pair struct {
		Site     string
		Building string
	}
	var referenced []pair
	if err := tx.Model(&model.DowntimeRecord{}).
		Distinct("site", "building").
		Find(&referenced).Error; err != nil {
		return err
	}
	for _, p := range referenced {
		buildings, ok := keep[p.Site]
		if !ok {
			return fmt.Errorf("site %q: %w", p.Site, ErrReferentialViolation)
		}
		if p.Building != "" {
			if _, ok := buildings[p.Building]; !ok {
				return fmt.Errorf("building %q of site %q: %w", p.Building, p.Site, ErrReferentialViolation)
			}
		}
	}

	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Building{}).Error; err != nil {
		return err
	}
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Site{}).Error; err != nil {
		return err
	}
	for _, e := range entries {
		site := model.Site{Name: e.Name}
		if err := tx.Create(&site).Error; err != nil {
			return err
		}
		for _, b := range e.Buildings {
			if err := tx.Create(&model.Building{SiteID: site.ID, Name: b}).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func replaceClients(tx *gorm.DB, names []string) error {
	if err := checkNamesReferenced(tx, "client", names); err != nil {
		return err
	}
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Client{}).Error; err != nil {
		return err
	}
	for _, name := range names {
		if err := tx.Create(&model.Client{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}

func replaceServices(tx *gorm.DB, names []string) error {
	if err := checkNamesReferenced(tx, "service", names); err != nil {
		return err
	}
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Service{}).Error; err != nil {
		return err
	}
	for _, name := range names {
		if err := tx.Create(&model.Service{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}

func replaceMatrix(tx *gorm.DB, entries []MatrixEntry) error {
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ProductivityMatrixEntry{}).Error; err != nil {
		return err
	}
	for _, e := range entries {
		row := model.ProductivityMatrixEntry{
			Site:       e.Site,
			Client:     e.Client,
			ShiftCount: e.ShiftCount,
			Factor:     e.Factor,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// checkNamesReferenced verifies that every distinct non-empty value of the
// given record column survives in the replacement set.
func checkNamesReferenced(tx *gorm.DB, column string, names []string) error {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	var referenced []string
	if err := tx.Model(&model.DowntimeRecord{}).
		Distinct(column).
		Where(column+" <> ''").
		Pluck(column, &referenced).Error; err != nil {
		return err
	}
	for _, name := range referenced {
		if _, ok := keep[name]; !ok {
			return fmt.Errorf("%s %q: %w", column, name, ErrReferentialViolation)
		}
	}
	return nil
}
