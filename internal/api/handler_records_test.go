package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"downtime-tracker-backend/config"
	"downtime-tracker-backend/internal/impact"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/store"
	"downtime-tracker-backend/internal/validate"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
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
		&model.PushSubscription{},
	))

	site := model.Site{Name: "Berrechid"}
	require.NoError(t, db.Create(&site).Error)
	require.NoError(t, db.Create(&model.Building{SiteID: site.ID, Name: "Bât A"}).Error)
	require.NoError(t, db.Create(&model.Client{Name: "ACME"}).Error)
	require.NoError(t, db.Create(&model.Service{Name: "Maintenance"}).Error)
	require.NoError(t, db.Create(&model.ProductivityMatrixEntry{
		Site: "Berrechid", Client: "ACME", ShiftCount: 2, Factor: 0.8,
	}).Error)

	appStore := store.NewGormStore(db, validate.Validator{}, impact.Calculator{ReferencePeriodHours: 8})
	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.CacheTTLSeconds = 1

	return NewRouter(appStore, cfg, nil)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const createBody = `{
	"date": "2026-01-30",
	"site": "Berrechid",
	"building": "Bât A",
	"start_time": "22:00",
	"end_time": "02:00",
	"client": "ACME",
	"service": "Maintenance",
	"shift_count": 2,
	"description": "conveyor jam"
}`

func TestCreateRecordEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/records", createBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec model.DowntimeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 4.0, rec.DurationHours)
	assert.Equal(t, "2026-S05", rec.WeekLabel)
	assert.Equal(t, 40.0, rec.ImpactPct)
	assert.Equal(t, model.StatusOpen, rec.Status)
}

func TestCreateRecordValidationFailure(t *testing.T) {
	router := setupRouter(t)

	body := strings.Replace(createBody, "Berrechid", "Atlantis", 2)
	w := doJSON(t, router, http.MethodPost, "/api/records", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Errors []validate.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "site", resp.Errors[0].Field)
}

func TestCreateRecordMissingFactor(t *testing.T) {
	router := setupRouter(t)

	body := strings.Replace(createBody, `"shift_count": 2`, `"shift_count": 3`, 1)
	w := doJSON(t, router, http.MethodPost, "/api/records", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no productivity factor")
}

func TestRecordLifecycleEndpoints(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/records", createBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var rec model.DowntimeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))

	// Read it back.
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/records/%d", rec.ID), "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Patch the status; impact stays recomputed, not stale.
	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/records/%d", rec.ID),
		`{"status": "Resolved"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.DowntimeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, model.StatusResolved, updated.Status)
	assert.Equal(t, 40.0, updated.ImpactPct)

	// Delete, then every further operation is 404.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/records/%d", rec.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/records/%d", rec.ID),
		`{"status": "Open"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/records/%d", rec.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRecordsFilter(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/records", createBody)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/records?site=Berrechid&q=conveyor", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int64                  `json:"total"`
		Items []model.DowntimeRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Items, 1)

	w = doJSON(t, router, http.MethodGet, "/api/records?status=Resolved", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
}

func TestStatsEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/records", createBody)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/stats?group_by=site,week", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Groups []store.AggregateRow `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, "Berrechid", resp.Groups[0].Site)
	assert.Equal(t, "2026-S05", resp.Groups[0].Week)
	assert.Equal(t, int64(1), resp.Groups[0].Count)
	assert.InDelta(t, 40.0, resp.Groups[0].TotalImpact, 1e-9)

	w = doJSON(t, router, http.MethodGet, "/api/stats?group_by=machine", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplaceCatalogEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/records", createBody)
	require.Equal(t, http.StatusCreated, w.Code)

	// Dropping the referenced client is refused.
	w = doJSON(t, router, http.MethodPut, "/api/catalogs/clients", `{"names": ["Globex"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// A superset replace goes through.
	w = doJSON(t, router, http.MethodPut, "/api/catalogs/clients", `{"names": ["ACME", "Globex"]}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/catalogs/machines", `{"names": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/catalogs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view store.CatalogView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Clients, 2)
}
