package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// TeacherCategory is the seniority band used to rank substitutes.
type TeacherCategory string

const (
	CategoryPGT TeacherCategory = "PGT"
	CategoryTGT TeacherCategory = "TGT"
	CategoryPRT TeacherCategory = "PRT"
)

// ParseCategory upper-cases and trims raw input. Unrecognised values are kept verbatim
// and report false from Valid.
func ParseCategory(raw string) TeacherCategory {
	return TeacherCategory(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether the category is one of the known bands.
func (c TeacherCategory) Valid() bool {
	switch c {
	case CategoryPGT, CategoryTGT, CategoryPRT:
		return true
	default:
		return false
	}
}

// Teacher represents an instructor record.
type Teacher struct {
	ID        string          `db:"id" json:"id"`
	FullName  string          `db:"full_name" json:"full_name"`
	Category  TeacherCategory `db:"category" json:"category"`
	Subjects  pq.StringArray  `db:"subjects" json:"subjects"`
	Email     *string         `db:"email" json:"email,omitempty"`
	Phone     *string         `db:"phone" json:"phone,omitempty"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Category  TeacherCategory
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
