package models

import "time"

// AvailabilityType classifies a date-specific availability record.
type AvailabilityType string

const (
	AvailabilityWorking     AvailabilityType = "working"
	AvailabilityVacation    AvailabilityType = "vacation"
	AvailabilitySick        AvailabilityType = "sick"
	AvailabilityBreak       AvailabilityType = "break"
	AvailabilityMeeting     AvailabilityType = "meeting"
	AvailabilityUnavailable AvailabilityType = "unavailable"
)

// Valid reports whether t is one of the known availability types.
func (t AvailabilityType) Valid() bool {
	switch t {
	case AvailabilityWorking, AvailabilityVacation, AvailabilitySick,
		AvailabilityBreak, AvailabilityMeeting, AvailabilityUnavailable:
		return true
	}
	return false
}

// AvailabilityRecord is a date-specific override of the weekly pattern.
// An empty StartTime/EndTime covers the whole day.
type AvailabilityRecord struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	EmployeeID       uint             `gorm:"uniqueIndex:idx_availability_key;not null" json:"employee_id"`
	Date             string           `gorm:"uniqueIndex:idx_availability_key;size:10;not null" json:"date"`
	StartTime        string           `gorm:"uniqueIndex:idx_availability_key;size:5;not null;default:''" json:"start_time,omitempty"`
	EndTime          string           `gorm:"size:5;not null;default:''" json:"end_time,omitempty"`
	IsAvailable      bool             `json:"is_available"`
	AvailabilityType AvailabilityType `gorm:"size:16;not null" json:"availability_type"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Window returns the record's span in minutes; whole-day records span [0, 1440).
func (r *AvailabilityRecord) Window() (int, int, error) {
	if r.StartTime == "" && r.EndTime == "" {
		return 0, MinutesPerDay, nil
	}
	s, err := ParseClock(r.StartTime)
	if err != nil {
		return 0, 0, err
	}
	e := MinutesPerDay
	if r.EndTime != "" {
		if e, err = ParseClock(r.EndTime); err != nil {
			return 0, 0, err
		}
	}
	return s, e, nil
}

// AvailabilityPattern is the recurring weekly fallback, one row per employee.
type AvailabilityPattern struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	EmployeeID     uint      `gorm:"uniqueIndex;not null" json:"employee_id"`
	Monday         bool      `json:"monday"`
	Tuesday        bool      `json:"tuesday"`
	Wednesday      bool      `json:"wednesday"`
	Thursday       bool      `json:"thursday"`
	Friday         bool      `json:"friday"`
	Saturday       bool      `json:"saturday"`
	Sunday         bool      `json:"sunday"`
	PreferredStart string    `gorm:"size:5" json:"preferred_start,omitempty"`
	PreferredEnd   string    `gorm:"size:5" json:"preferred_end,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Works reports the working flag for the weekday of date.
func (p *AvailabilityPattern) Works(date time.Time) bool {
	return p.Days()[WeekdayIndex(date.Weekday())]
}

// Days returns the working flags Monday through Sunday.
func (p *AvailabilityPattern) Days() [7]bool {
	return [7]bool{p.Monday, p.Tuesday, p.Wednesday, p.Thursday, p.Friday, p.Saturday, p.Sunday}
}

// Window returns the preferred span in minutes, or the whole day when unset.
func (p *AvailabilityPattern) Window() (int, int, error) {
	if p.PreferredStart == "" || p.PreferredEnd == "" {
		return 0, MinutesPerDay, nil
	}
	return ClockSpan(p.PreferredStart, p.PreferredEnd)
}

// AvailabilitySource names which layer decided an availability question.
type AvailabilitySource string

const (
	SourceRecord  AvailabilitySource = "record"
	SourcePattern AvailabilitySource = "pattern"
	SourceDefault AvailabilitySource = "default"
)

// AvailabilityResolution is the outcome of resolving a time or window against records and pattern.
type AvailabilityResolution struct {
	Available bool               `json:"available"`
	Source    AvailabilitySource `json:"source"`
	Type      AvailabilityType   `json:"type,omitempty"`
}
