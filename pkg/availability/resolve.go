package availability

import (
	"sort"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/conflict"
	"github.com/arnavshah/staff-scheduler-go/pkg/models"
)

// Resolve answers whether the window [start, end) minutes on date is available.
//
// Date-specific records win outright when any exist for the date; otherwise the
// weekly pattern decides; with neither, the employee is unavailable. Windows
// running past midnight are judged on the portion that falls on date.
func Resolve(records []models.AvailabilityRecord, pattern *models.AvailabilityPattern, date time.Time, start, end int) models.AvailabilityResolution {
	if end > models.MinutesPerDay {
		end = models.MinutesPerDay
	}
	switch {
	case len(records) > 0:
		return resolveRecords(records, start, end)
	case pattern != nil:
		return resolvePattern(pattern, date, start, end)
	default:
		return models.AvailabilityResolution{Available: false, Source: models.SourceDefault}
	}
}

// resolveRecords treats any overlapping unavailable record as blocking and
// otherwise requires the available records to cover the whole window.
func resolveRecords(records []models.AvailabilityRecord, start, end int) models.AvailabilityResolution {
	type span struct {
		start, end int
		kind       models.AvailabilityType
	}
	var open []span
	for _, rec := range records {
		rs, re, err := rec.Window()
		if err != nil {
			continue
		}
		if !rec.IsAvailable {
			if conflict.Overlap(rs, re, start, end) {
				return models.AvailabilityResolution{Available: false, Source: models.SourceRecord, Type: rec.AvailabilityType}
			}
			continue
		}
		open = append(open, span{rs, re, rec.AvailabilityType})
	}

	sort.Slice(open, func(i, j int) bool { return open[i].start < open[j].start })
	cursor := start
	var kind models.AvailabilityType
	for _, sp := range open {
		if sp.start > cursor {
			break
		}
		if sp.end > cursor {
			if kind == "" {
				kind = sp.kind
			}
			cursor = sp.end
		}
		if cursor >= end {
			return models.AvailabilityResolution{Available: true, Source: models.SourceRecord, Type: kind}
		}
	}
	return models.AvailabilityResolution{Available: false, Source: models.SourceRecord, Type: models.AvailabilityUnavailable}
}

func resolvePattern(p *models.AvailabilityPattern, date time.Time, start, end int) models.AvailabilityResolution {
	res := models.AvailabilityResolution{Source: models.SourcePattern, Type: models.AvailabilityUnavailable}
	if !p.Works(date) {
		return res
	}
	ws, we, err := p.Window()
	if err != nil {
		return res
	}
	if (start >= ws && end <= we) || (start+models.MinutesPerDay >= ws && end+models.MinutesPerDay <= we) {
		res.Available = true
		res.Type = models.AvailabilityWorking
	}
	return res
}

// PreviewDay is one materialised pattern day.
type PreviewDay struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// PreviewFromPattern materialises the pattern's working days between from and to without persisting them.
func PreviewFromPattern(p *models.AvailabilityPattern, from, to time.Time) []PreviewDay {
	days := []PreviewDay{}
	if p == nil {
		return days
	}
	for _, d := range models.DateRange(from, to) {
		if !p.Works(d) {
			continue
		}
		days = append(days, PreviewDay{
			Date:      models.FormatDate(d),
			StartTime: p.PreferredStart,
			EndTime:   p.PreferredEnd,
		})
	}
	return days
}
