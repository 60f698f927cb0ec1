package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	// FreePeriod marks a period without a class.
	FreePeriod = "FREE"
	// PeriodsPerDay is the fixed length of a day timetable.
	PeriodsPerDay = 7
)

// DaySchedule is one teacher's timetable for a weekday.
type DaySchedule struct {
	TeacherID string         `db:"teacher_id" json:"teacher_id"`
	Weekday   int            `db:"weekday" json:"weekday"`
	Periods   pq.StringArray `db:"periods" json:"periods"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Label returns the class label for a 1-based period. Missing cells read as FREE.
func (d DaySchedule) Label(period int) string {
	if period < 1 || period > len(d.Periods) {
		return FreePeriod
	}
	label := strings.TrimSpace(d.Periods[period-1])
	if IsFreeLabel(label) {
		return FreePeriod
	}
	return label
}

// IsFree reports whether the teacher has no class in the period.
func (d DaySchedule) IsFree(period int) bool {
	return d.Label(period) == FreePeriod
}

// IsFreeLabel reports whether a raw cell value denotes a free period.
func IsFreeLabel(label string) bool {
	label = strings.TrimSpace(label)
	return label == "" || strings.EqualFold(label, FreePeriod)
}

// NormalizePeriods pads or truncates to PeriodsPerDay cells, mapping blanks to FREE.
func NormalizePeriods(in []string) pq.StringArray {
	out := make(pq.StringArray, PeriodsPerDay)
	for i := range out {
		out[i] = FreePeriod
		if i < len(in) && !IsFreeLabel(in[i]) {
			out[i] = strings.TrimSpace(in[i])
		}
	}
	return out
}

// ScheduleWeekday maps a calendar date to the timetable weekday. Sundays have no
// timetable of their own and use Monday's.
func ScheduleWeekday(date time.Time) time.Weekday {
	if wd := date.Weekday(); wd != time.Sunday {
		return wd
	}
	return time.Monday
}

// FreeTeacher lists a teacher available in a given period.
type FreeTeacher struct {
	TeacherID string          `db:"teacher_id" json:"teacher_id"`
	FullName  string          `db:"full_name" json:"full_name"`
	Category  TeacherCategory `db:"category" json:"category"`
	Subjects  pq.StringArray  `db:"subjects" json:"subjects"`
}

// ScheduleImportError describes a rejected CSV row.
type ScheduleImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ScheduleImportResult summarises a weekday CSV import.
type ScheduleImportResult struct {
	Weekday  int                   `json:"weekday"`
	Imported int                   `json:"imported"`
	Errors   []ScheduleImportError `json:"errors,omitempty"`
}
