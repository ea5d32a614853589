// Package validate checks a candidate downtime record against field-level
// and cross-field constraints before it enters the computation pipeline.
// All failures are collected and reported together so the caller can show
// every problem at once.
package validate

import (
	"fmt"
	"strings"
	"time"

	"downtime-tracker-backend/internal/calendar"
	"downtime-tracker-backend/internal/model"
)

// Input is a raw record submission. Optional fields are pointers so that
// "absent" and "empty" are distinguishable and the required-field checks
// are exhaustive.
type Input struct {
	Date        *string `json:"date"`
	Site        *string `json:"site"`
	Building    *string `json:"building"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Client      *string `json:"client"`
	Service     *string `json:"service"`
	SubFamily   *string `json:"sub_family"`
	Process     *string `json:"process"`
	Station     *string `json:"station"`
	ShiftCount  *int    `json:"shift_count"`
	ShiftLabel  *string `json:"shift_label"`
	Description *string `json:"description"`
	Reference   *string `json:"reference"`
	Requester   *string `json:"requester"`
	Handler     *string `json:"handler"`
	Status      *string `json:"status"`
}

// Catalogs is an immutable snapshot of the reference sets a record is
// validated against. It is fetched per transaction, never shared mutable
// state.
type Catalogs struct {
	Buildings map[string][]string // site name -> building names
	Clients   map[string]struct{}
	Services  map[string]struct{}
}

// HasSite reports whether the site exists in the snapshot.
func (c Catalogs) HasSite(site string) bool {
	_, ok := c.Buildings[site]
	return ok
}

// HasBuilding reports whether the building is registered under the site.
func (c Catalogs) HasBuilding(site, building string) bool {
	for _, b := range c.Buildings[site] {
		if b == building {
			return true
		}
	}
	return false
}

// FieldError describes a single validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Errors is the collected set of validation failures for one submission.
type Errors []FieldError

func (e Errors) Error() string {
	reasons := make([]string, len(e))
	for i, fe := range e {
		reasons[i] = fe.Field + ": " + fe.Reason
	}
	return "validation failed: " + strings.Join(reasons, "; ")
}

const (
	minShiftCount = 1
	maxShiftCount = 3
)

// Validator holds the cross-field validation tunables.
type Validator struct {
	// FutureTolerance is how far past "today" a record date may lie.
	// Downtime is recorded for past or current shifts.
	FutureTolerance int // days
}

// Validate checks the input against the catalog snapshot. On success it
// returns the normalized but unscored record: user fields trimmed and
// defaulted, derived fields left zero for the downstream stages.
func (v Validator) Validate(in Input, cats Catalogs, now time.Time) (model.DowntimeRecord, error) {
	var errs Errors
	fail := func(field, reason string) {
		errs = append(errs, FieldError{Field: field, Reason: reason})
	}

	date := trimmed(in.Date)
	site := trimmed(in.Site)
	building := trimmed(in.Building)
	start := trimmed(in.StartTime)
	end := trimmed(in.EndTime)
	client := trimmed(in.Client)
	service := trimmed(in.Service)
	shiftLabel := trimmed(in.ShiftLabel)
	status := trimmed(in.Status)

	// Required fields.
	if date == "" {
		fail("date", "required")
	}
	if site == "" {
		fail("site", "required")
	}
	if start == "" {
		fail("start_time", "required")
	}
	if end == "" {
		fail("end_time", "required")
	}
	if service == "" {
		fail("service", "required")
	}
	if in.ShiftCount == nil {
		fail("shift_count", "required")
	} else if *in.ShiftCount < minShiftCount || *in.ShiftCount > maxShiftCount {
		fail("shift_count", fmt.Sprintf("must be between %d and %d", minShiftCount, maxShiftCount))
	}

	// Catalog membership.
	if site != "" && !cats.HasSite(site) {
		fail("site", fmt.Sprintf("unknown site %q", site))
	}
	if building != "" && site != "" && cats.HasSite(site) && !cats.HasBuilding(site, building) {
		fail("building", fmt.Sprintf("building %q is not registered under site %q", building, site))
	}
	if client != "" {
		if _, ok := cats.Clients[client]; !ok {
			fail("client", fmt.Sprintf("unknown client %q", client))
		}
	}
	if service != "" {
		if _, ok := cats.Services[service]; !ok {
			fail("service", fmt.Sprintf("unknown service %q", service))
		}
	}

	// Enumerations.
	if status == "" {
		status = model.StatusOpen
	}
	switch status {
	case model.StatusOpen, model.StatusInProgress, model.StatusResolved:
	default:
		fail("status", fmt.Sprintf("unknown status %q", status))
	}
	if shiftLabel != "" {
		switch shiftLabel {
		case model.ShiftMorning, model.ShiftAfternoon, model.ShiftNight:
		default:
			fail("shift_label", fmt.Sprintf("unknown shift label %q", shiftLabel))
		}
	}

	// Date must not lie in the future beyond the tolerance.
	if date != "" {
		if day, err := calendar.ParseDate(date); err != nil {
			fail("date", "expected YYYY-MM-DD")
		} else {
			limit := now.AddDate(0, 0, v.FutureTolerance)
			if day.Format(calendar.DateLayout) > limit.Format(calendar.DateLayout) {
				fail("date", "must not be in the future")
			}
		}
	}

	if len(errs) > 0 {
		return model.DowntimeRecord{}, errs
	}

	rec := model.DowntimeRecord{
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Site:        site,
		Building:    building,
		Client:      client,
		Service:     service,
		SubFamily:   trimmed(in.SubFamily),
		Process:     trimmed(in.Process),
		Station:     trimmed(in.Station),
		ShiftCount:  *in.ShiftCount,
		ShiftLabel:  shiftLabel,
		Description: trimmed(in.Description),
		Reference:   trimmed(in.Reference),
		Requester:   trimmed(in.Requester),
		Handler:     trimmed(in.Handler),
		Status:      status,
	}
	return rec, nil
}

// Merge overlays the patch on top of an existing record and returns the
// equivalent full input, so updates run through the exact same checks as
// creates.
func Merge(rec model.DowntimeRecord, patch Input) Input {
	merged := Input{
		Date:        orElse(patch.Date, rec.Date),
		Site:        orElse(patch.Site, rec.Site),
		Building:    orElse(patch.Building, rec.Building),
		StartTime:   orElse(patch.StartTime, rec.StartTime),
		EndTime:     orElse(patch.EndTime, rec.EndTime),
		Client:      orElse(patch.Client, rec.Client),
		Service:     orElse(patch.Service, rec.Service),
		SubFamily:   orElse(patch.SubFamily, rec.SubFamily),
		Process:     orElse(patch.Process, rec.Process),
		Station:     orElse(patch.Station, rec.Station),
		ShiftLabel:  orElse(patch.ShiftLabel, rec.ShiftLabel),
		Description: orElse(patch.Description, rec.Description),
		Reference:   orElse(patch.Reference, rec.Reference),
		Requester:   orElse(patch.Requester, rec.Requester),
		Handler:     orElse(patch.Handler, rec.Handler),
		Status:      orElse(patch.Status, rec.Status),
	}
	count := rec.ShiftCount
	if patch.ShiftCount != nil {
		count = *patch.ShiftCount
	}
	merged.ShiftCount = &count
	return merged
}

func orElse(p *string, fallback string) *string {
	if p != nil {
		return p
	}
	v := fallback
	return &v
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
