package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchQuality ranks how well a substitute fits the vacated period.
type MatchQuality string

const (
	QualityIdeal      MatchQuality = "IDEAL"
	QualityAcceptable MatchQuality = "ACCEPTABLE"
	QualitySuboptimal MatchQuality = "SUBOPTIMAL"
	QualityLastResort MatchQuality = "LAST_RESORT"
	QualityNone       MatchQuality = "NONE"
)

// ArrangementStatus records how an arrangement row came to be.
type ArrangementStatus string

const (
	ArrangementAssigned         ArrangementStatus = "ASSIGNED"
	ArrangementUncovered        ArrangementStatus = "UNCOVERED"
	ArrangementManuallyAssigned ArrangementStatus = "MANUALLY_ASSIGNED"
)

// Valid reports whether the status is a supported value.
func (s ArrangementStatus) Valid() bool {
	switch s {
	case ArrangementAssigned, ArrangementUncovered, ArrangementManuallyAssigned:
		return true
	default:
		return false
	}
}

// Arrangement is one substitute decision for a single period of an absence.
type Arrangement struct {
	ID                   string            `db:"id" json:"id"`
	Date                 time.Time         `db:"date" json:"date"`
	AbsentTeacherID      string            `db:"absent_teacher_id" json:"absent_teacher_id"`
	AbsentName           string            `db:"absent_name" json:"absent_name"`
	AbsentCategory       TeacherCategory   `db:"absent_category" json:"absent_category"`
	ReplacementTeacherID *string           `db:"replacement_teacher_id" json:"replacement_teacher_id"`
	ReplacementName      *string           `db:"replacement_name" json:"replacement_name"`
	ReplacementCategory  *TeacherCategory  `db:"replacement_category" json:"replacement_category"`
	ClassLabel           string            `db:"class_label" json:"class_label"`
	Subject              string            `db:"subject" json:"subject"`
	Period               int               `db:"period" json:"period"`
	MatchQuality         MatchQuality      `db:"match_quality" json:"match_quality"`
	Status               ArrangementStatus `db:"status" json:"status"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
}

// Covered reports whether someone is teaching the period.
func (a Arrangement) Covered() bool {
	return a.ReplacementTeacherID != nil && *a.ReplacementTeacherID != ""
}

// ArrangementFilter narrows arrangement listings.
type ArrangementFilter struct {
	Date      *time.Time
	From      *time.Time
	To        *time.Time
	TeacherID string
	Status    ArrangementStatus
	Page      int
	PageSize  int
}

// PlanResult is the outcome of planning one absence.
type PlanResult struct {
	TeacherID    string        `json:"teacher_id"`
	Date         time.Time     `json:"date"`
	OK           bool          `json:"ok"`
	Existing     bool          `json:"existing"`
	Arrangements []Arrangement `json:"arrangements"`
}

// Replacement is the matcher's answer for one period.
type Replacement struct {
	Found               bool            `json:"found"`
	NotNeeded           bool            `json:"not_needed"`
	TeacherID           string          `json:"teacher_id,omitempty"`
	Name                string          `json:"name,omitempty"`
	Category            TeacherCategory `json:"category,omitempty"`
	AbsentTeacherID     string          `json:"absent_teacher_id"`
	AbsentName          string          `json:"absent_name"`
	AbsentCategory      TeacherCategory `json:"absent_category"`
	ClassLabel          string          `json:"class_label,omitempty"`
	Subject             string          `json:"subject,omitempty"`
	Period              int             `json:"period"`
	Quality             MatchQuality    `json:"match_quality"`
	WorkloadBeforeMatch int             `json:"workload_before_match"`
}

// PeriodCoverage aggregates arrangements by period.
type PeriodCoverage struct {
	Period  int `db:"period" json:"period"`
	Total   int `db:"total" json:"total"`
	Covered int `db:"covered" json:"covered"`
}

// QualityCount aggregates arrangements by match quality.
type QualityCount struct {
	Quality MatchQuality `db:"match_quality" json:"match_quality"`
	Count   int          `db:"count" json:"count"`
}

// CoverageSummary reports how many vacated periods were covered in a date range.
type CoverageSummary struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Total     int              `json:"total"`
	Covered   int              `json:"covered"`
	Uncovered int              `json:"uncovered"`
	Manual    int              `json:"manual"`
	Rate      decimal.Decimal  `json:"rate"`
	ByQuality []QualityCount   `json:"by_quality"`
	ByPeriod  []PeriodCoverage `json:"by_period"`
}

// ArrangementSlot marks a replacement teacher as occupied in a period.
type ArrangementSlot struct {
	TeacherID string `db:"replacement_teacher_id" json:"teacher_id"`
	Period    int    `db:"period" json:"period"`
}
