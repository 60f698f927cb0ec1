package service

import (
	"context"
	"time"

	"github.com/noah-isme/sma-arrangement-api/internal/models"
	appErrors "github.com/noah-isme/sma-arrangement-api/pkg/errors"
)

// searchTier is one step of the substitute search.
type searchTier struct {
	category     models.TeacherCategory // empty matches any category
	matchSubject bool
	quality      models.MatchQuality
}

var (
	tiersByCategory = map[models.TeacherCategory][]searchTier{
		models.CategoryPGT: {
			{category: models.CategoryPGT, matchSubject: true, quality: models.QualityIdeal},
			{category: models.CategoryTGT, matchSubject: true, quality: models.QualityAcceptable},
			{category: models.CategoryPGT, quality: models.QualitySuboptimal},
		},
		models.CategoryTGT: {
			{category: models.CategoryTGT, matchSubject: true, quality: models.QualityIdeal},
			{category: models.CategoryPRT, matchSubject: true, quality: models.QualityAcceptable},
			{category: models.CategoryTGT, quality: models.QualitySuboptimal},
		},
		models.CategoryPRT: {
			{category: models.CategoryPRT, matchSubject: true, quality: models.QualityIdeal},
			{category: models.CategoryTGT, matchSubject: true, quality: models.QualityAcceptable},
			{category: models.CategoryPRT, quality: models.QualitySuboptimal},
		},
	}
	// Without a category there is nothing to grade against, so a same-subject pick is
	// recorded as ACCEPTABLE and any free teacher as SUBOPTIMAL.
	unknownCategoryTiers = []searchTier{
		{matchSubject: true, quality: models.QualityAcceptable},
		{quality: models.QualitySuboptimal},
	}
	fallbackTier = searchTier{quality: models.QualityLastResort}
)

// searchTiers returns the ordered tiers for an absent teacher's category, ending with
// the global fallback.
func searchTiers(category models.TeacherCategory) []searchTier {
	tiers, ok := tiersByCategory[category]
	if !ok {
		tiers = unknownCategoryTiers
	}
	out := make([]searchTier, 0, len(tiers)+1)
	out = append(out, tiers...)
	return append(out, fallbackTier)
}

// dayRoster is the read-only view of one school day used while matching.
type dayRoster struct {
	date      time.Time
	weekday   time.Weekday
	schedules map[string]models.DaySchedule
	teachers  map[string]models.Teacher
	// order holds teacher ids with a timetable for the weekday in storage order (by id).
	order       []string
	unavailable map[string]struct{}
	busy        map[int]map[string]struct{}
}

func newDayRoster(date time.Time, schedules []models.DaySchedule, teachers []models.Teacher) *dayRoster {
	r := &dayRoster{
		date:        date,
		weekday:     models.ScheduleWeekday(date),
		schedules:   make(map[string]models.DaySchedule, len(schedules)),
		teachers:    make(map[string]models.Teacher, len(teachers)),
		order:       make([]string, 0, len(schedules)),
		unavailable: make(map[string]struct{}),
		busy:        make(map[int]map[string]struct{}),
	}
	for _, t := range teachers {
		r.teachers[t.ID] = t
	}
	for _, day := range schedules {
		if _, seen := r.schedules[day.TeacherID]; seen {
			continue
		}
		r.schedules[day.TeacherID] = day
		r.order = append(r.order, day.TeacherID)
	}
	return r
}

func (r *dayRoster) markUnavailable(ids ...string) {
	for _, id := range ids {
		r.unavailable[id] = struct{}{}
	}
}

func (r *dayRoster) markBusy(period int, teacherID string) {
	if r.busy[period] == nil {
		r.busy[period] = make(map[string]struct{})
	}
	r.busy[period][teacherID] = struct{}{}
}

func (r *dayRoster) isBusy(period int, teacherID string) bool {
	_, ok := r.busy[period][teacherID]
	return ok
}

// candidates lists teachers free in the period, excluding the absent teacher, anyone
// inactive or away that day, and anyone already covering another class then.
func (r *dayRoster) candidates(absentID string, period int) []models.Teacher {
	var pool []models.Teacher
	for _, id := range r.order {
		if id == absentID {
			continue
		}
		if _, away := r.unavailable[id]; away {
			continue
		}
		teacher, active := r.teachers[id]
		if !active || !r.schedules[id].IsFree(period) || r.isBusy(period, id) {
			continue
		}
		pool = append(pool, teacher)
	}
	return pool
}

// ReplacementMatcher picks the best available substitute for a single period.
type ReplacementMatcher struct{}

// NewReplacementMatcher builds a matcher.
func NewReplacementMatcher() *ReplacementMatcher {
	return &ReplacementMatcher{}
}

// Match runs the tiered search for one period of an absence. The winner's workload is
// incremented on tracker. A FREE period yields NotNeeded; an exhausted search yields a
// result with Found false and quality NONE.
func (m *ReplacementMatcher) Match(ctx context.Context, roster *dayRoster, tracker WorkloadTracker, absentID string, period int) (models.Replacement, error) {
	schedule, ok := roster.schedules[absentID]
	if !ok {
		return models.Replacement{}, appErrors.Clone(appErrors.ErrMissingSchedule, "no schedule found for teacher "+absentID)
	}

	absent := roster.teachers[absentID]
	result := models.Replacement{
		AbsentTeacherID: absentID,
		AbsentName:      absent.FullName,
		AbsentCategory:  absent.Category,
		Period:          period,
		Quality:         models.QualityNone,
	}
	if result.AbsentName == "" {
		result.AbsentName = absentID
	}

	label := schedule.Label(period)
	if label == models.FreePeriod {
		result.NotNeeded = true
		return result, nil
	}
	subject := NormalizeSubject(label)
	result.ClassLabel = label
	result.Subject = string(subject)

	pool := roster.candidates(absentID, period)
	if len(pool) == 0 {
		return result, nil
	}

	for _, tier := range searchTiers(absent.Category) {
		eligible := filterTier(pool, tier, subject)
		if len(eligible) == 0 {
			continue
		}
		winner, load, err := leastLoaded(ctx, tracker, eligible)
		if err != nil {
			return models.Replacement{}, err
		}
		if err := tracker.Increment(ctx, winner.ID, 1); err != nil {
			return models.Replacement{}, err
		}
		result.Found = true
		result.TeacherID = winner.ID
		result.Name = winner.FullName
		result.Category = winner.Category
		result.Quality = tier.quality
		result.WorkloadBeforeMatch = load
		return result, nil
	}
	return result, nil
}

func filterTier(pool []models.Teacher, tier searchTier, subject models.CanonicalSubject) []models.Teacher {
	var out []models.Teacher
	for _, t := range pool {
		if tier.category != "" && t.Category != tier.category {
			continue
		}
		if tier.matchSubject && !TeachesSubject(t.Subjects, subject) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// leastLoaded returns the first candidate with the minimum workload.
func leastLoaded(ctx context.Context, tracker WorkloadTracker, candidates []models.Teacher) (models.Teacher, int, error) {
	best := -1
	bestLoad := 0
	for i, c := range candidates {
		load, err := tracker.Get(ctx, c.ID)
		if err != nil {
			return models.Teacher{}, 0, err
		}
		if best < 0 || load < bestLoad {
			best, bestLoad = i, load
		}
	}
	return candidates[best], bestLoad, nil
}
