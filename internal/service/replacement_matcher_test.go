package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

// 2026-10-12 is a Monday.
var matchDate = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

const (
	freeSlot = models.FreePeriod
	busySlot = "X-A ENGLISH"
)

func rosterTeacher(id string, category models.TeacherCategory, subjects ...string) models.Teacher {
	return models.Teacher{ID: id, FullName: "Teacher " + id, Category: category, Subjects: pq.StringArray(subjects), Active: true}
}

func rosterDay(id string, periods ...string) models.DaySchedule {
	return models.DaySchedule{TeacherID: id, Weekday: int(time.Monday), Periods: models.NormalizePeriods(periods)}
}

func allFree(id string) models.DaySchedule {
	return rosterDay(id, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot)
}

func TestMatcherPrefersSameCategorySameSubject(t *testing.T) {
	roster := newDayRoster(matchDate,
		[]models.DaySchedule{
			rosterDay("T001", "XI-A MATH", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot),
			allFree("T002"),
			allFree("T003"),
			allFree("T004"),
		},
		[]models.Teacher{
			rosterTeacher("T001", models.CategoryPGT, "Maths"),
			rosterTeacher("T002", models.CategoryTGT, "Mathematics"),
			rosterTeacher("T003", models.CategoryPGT, "Physics"),
			rosterTeacher("T004", models.CategoryPGT, "MATH"),
		})

	rep, err := NewReplacementMatcher().Match(context.Background(), roster, newSnapshotTracker(nil), "T001", 1)
	require.NoError(t, err)
	assert.True(t, rep.Found)
	assert.Equal(t, "T004", rep.TeacherID)
	assert.Equal(t, models.CategoryPGT, rep.Category)
	assert.Equal(t, models.QualityIdeal, rep.Quality)
	assert.Equal(t, string(models.SubjectMath), rep.Subject)
}

func TestMatcherTierFallthrough(t *testing.T) {
	schedules := []models.DaySchedule{rosterDay("T001", "XII-A PHYSICS", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot), allFree("T002")}

	cases := []struct {
		name     string
		absent   models.TeacherCategory
		other    models.Teacher
		quality  models.MatchQuality
		category models.TeacherCategory
	}{
		{"pgt to tgt same subject", models.CategoryPGT, rosterTeacher("T002", models.CategoryTGT, "Physics"), models.QualityAcceptable, models.CategoryTGT},
		{"pgt to pgt any subject", models.CategoryPGT, rosterTeacher("T002", models.CategoryPGT, "History"), models.QualitySuboptimal, models.CategoryPGT},
		{"pgt falls back to prt", models.CategoryPGT, rosterTeacher("T002", models.CategoryPRT, "Physics"), models.QualityLastResort, models.CategoryPRT},
		{"tgt to prt same subject", models.CategoryTGT, rosterTeacher("T002", models.CategoryPRT, "PHY"), models.QualityAcceptable, models.CategoryPRT},
		{"tgt falls back to pgt", models.CategoryTGT, rosterTeacher("T002", models.CategoryPGT, "Physics"), models.QualityLastResort, models.CategoryPGT},
		{"prt to tgt same subject", models.CategoryPRT, rosterTeacher("T002", models.CategoryTGT, "Physics"), models.QualityAcceptable, models.CategoryTGT},
		{"unknown category same subject", "", rosterTeacher("T002", models.CategoryPRT, "Physics"), models.QualityAcceptable, models.CategoryPRT},
		{"unknown category any subject", "", rosterTeacher("T002", models.CategoryPGT, "Music"), models.QualitySuboptimal, models.CategoryPGT},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roster := newDayRoster(matchDate, schedules, []models.Teacher{rosterTeacher("T001", tc.absent, "Physics"), tc.other})
			rep, err := NewReplacementMatcher().Match(context.Background(), roster, newSnapshotTracker(nil), "T001", 1)
			require.NoError(t, err)
			assert.True(t, rep.Found)
			assert.Equal(t, tc.quality, rep.Quality)
			assert.Equal(t, tc.category, rep.Category)
		})
	}
}

func TestMatcherPicksLowestWorkloadAndIncrements(t *testing.T) {
	roster := newDayRoster(matchDate,
		[]models.DaySchedule{rosterDay("T001", "MATH", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot), allFree("T005"), allFree("T006")},
		[]models.Teacher{
			rosterTeacher("T001", models.CategoryPGT, "Math"),
			rosterTeacher("T005", models.CategoryPGT, "Math"),
			rosterTeacher("T006", models.CategoryPGT, "Math"),
		})
	tracker := newSnapshotTracker(map[string]int{"T005": 5, "T006": 3})

	rep, err := NewReplacementMatcher().Match(context.Background(), roster, tracker, "T001", 1)
	require.NoError(t, err)
	assert.Equal(t, "T006", rep.TeacherID)
	assert.Equal(t, 3, rep.WorkloadBeforeMatch)

	load, _ := tracker.Get(context.Background(), "T006")
	assert.Equal(t, 4, load)
	load, _ = tracker.Get(context.Background(), "T005")
	assert.Equal(t, 5, load)
}

func TestMatcherTiesFollowPoolOrder(t *testing.T) {
	roster := newDayRoster(matchDate,
		[]models.DaySchedule{allFree("T009"), rosterDay("T001", "MATH", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot), allFree("T007")},
		[]models.Teacher{
			rosterTeacher("T001", models.CategoryPGT, "Math"),
			rosterTeacher("T007", models.CategoryPGT, "Math"),
			rosterTeacher("T009", models.CategoryPGT, "Math"),
		})
	rep, err := NewReplacementMatcher().Match(context.Background(), roster, newSnapshotTracker(nil), "T001", 1)
	require.NoError(t, err)
	assert.Equal(t, "T009", rep.TeacherID)
}

func TestMatcherFreePeriodNeverNeedsCover(t *testing.T) {
	categories := []models.TeacherCategory{models.CategoryPGT, models.CategoryTGT, models.CategoryPRT, ""}
	for _, category := range categories {
		roster := newDayRoster(matchDate,
			[]models.DaySchedule{rosterDay("T001", freeSlot, "free", " Free ", "", freeSlot, freeSlot, freeSlot), allFree("T002")},
			[]models.Teacher{rosterTeacher("T001", category, "Math"), rosterTeacher("T002", category, "Math")})
		tracker := newSnapshotTracker(nil)
		for period := 1; period <= models.PeriodsPerDay; period++ {
			rep, err := NewReplacementMatcher().Match(context.Background(), roster, tracker, "T001", period)
			require.NoError(t, err)
			assert.True(t, rep.NotNeeded)
			assert.False(t, rep.Found)
		}
		assert.Empty(t, tracker.Deltas())
	}
}

func TestMatcherMissingSchedule(t *testing.T) {
	roster := newDayRoster(matchDate, []models.DaySchedule{allFree("T002")}, []models.Teacher{rosterTeacher("T002", models.CategoryPGT)})
	_, err := NewReplacementMatcher().Match(context.Background(), roster, newSnapshotTracker(nil), "T404", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMissingSchedule))
}

func TestMatcherExcludesUnavailableTeachers(t *testing.T) {
	roster := newDayRoster(matchDate,
		[]models.DaySchedule{
			rosterDay("T001", "MATH", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot),
			allFree("T002"),
			rosterDay("T003", freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot),
			rosterDay("T004", busySlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot, freeSlot),
			allFree("T005"),
		},
		[]models.Teacher{
			rosterTeacher("T001", models.CategoryPGT, "Math"),
			rosterTeacher("T002", models.CategoryPGT, "Math"),
			rosterTeacher("T004", models.CategoryPGT, "Math"),
			rosterTeacher("T005", models.CategoryPGT, "Math"),
		})
	roster.markUnavailable("T002")
	roster.markBusy(1, "T005")

	rep, err := NewReplacementMatcher().Match(context.Background(), roster, newSnapshotTracker(nil), "T001", 1)
	require.NoError(t, err)
	assert.False(t, rep.Found)
	assert.Equal(t, models.QualityNone, rep.Quality)
	assert.Equal(t, "MATH", rep.ClassLabel)
}
