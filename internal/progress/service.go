package progress

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/pai-progress/internal/realtime"
	"github.com/p-n-ai/pai-progress/internal/registry"
	"github.com/p-n-ai/pai-progress/internal/suggest"
)

// ErrInvalidInput marks validation rejections (out-of-range progress or score,
// negative points, unknown activity type). Out-of-range values are rejected,
// not clamped, so caller bugs surface instead of being masked.
var ErrInvalidInput = errors.New("invalid input")

// Point awards for chapter and quiz completion.
const (
	chapterPoints      = 100
	quizPoints         = 150
	quizPointThreshold = 70
	streakPoints       = 50
)

const (
	defaultSuggestTimeout = 3 * time.Second
	recentActivityLimit   = 10
)

// ServiceConfig holds dependencies for the progress service.
type ServiceConfig struct {
	Store          Store
	Registry       *registry.Registry
	Suggester      suggest.Provider // optional; fallback suggestions when nil
	Hub            *realtime.Hub    // optional; realtime notifications when set
	SuggestTimeout time.Duration    // bound on the suggestion fetch (default 3s)
	Now            func() time.Time // injectable clock for tests
}

// Service is the public façade over the progress engine. It owns per-user
// serialization: operations for one user run one at a time, different users
// run in parallel.
type Service struct {
	store          Store
	registry       *registry.Registry
	suggester      suggest.Provider
	hub            *realtime.Hub
	suggestTimeout time.Duration
	now            func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates a progress service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore(0)
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.Default()
	}
	timeout := cfg.SuggestTimeout
	if timeout <= 0 {
		timeout = defaultSuggestTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:          store,
		registry:       reg,
		suggester:      cfg.Suggester,
		hub:            cfg.Hub,
		suggestTimeout: timeout,
		now:            now,
		locks:          make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing operations for userID.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// ProgressSummary is the overall progress view returned by GetUserProgress.
type ProgressSummary struct {
	UserID            string           `json:"user_id"`
	TotalChapters     int              `json:"total_chapters"`
	CompletedChapters int              `json:"completed_chapters"`
	CurrentChapter    int              `json:"current_chapter"`
	OverallPercent    int              `json:"overall_percent"`
	TotalPoints       int              `json:"total_points"`
	Level             Level            `json:"level"`
	Streak            LearningStreak   `json:"streak"`
	Achievements      []AchievementDef `json:"achievements"`
	CreatedAt         time.Time        `json:"created_at"`
}

// GetUserProgress returns the user's overall progress, lazily creating the
// record on first access.
func (s *Service) GetUserProgress(userID string) (ProgressSummary, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.summary(userID)
}

func (s *Service) summary(userID string) (ProgressSummary, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return ProgressSummary{}, fmt.Errorf("load user: %w", err)
	}
	entries, err := s.store.Activities(userID)
	if err != nil {
		return ProgressSummary{}, fmt.Errorf("load activities: %w", err)
	}

	return ProgressSummary{
		UserID:            u.UserID,
		TotalChapters:     u.TotalChapters,
		CompletedChapters: u.CompletedChapters,
		CurrentChapter:    u.CurrentChapter,
		OverallPercent:    u.OverallPercent(),
		TotalPoints:       u.TotalPoints,
		Level:             CalculateLevel(u.TotalPoints),
		Streak:            CalculateStreak(entries, s.now()),
		Achievements:      resolveAchievements(u.Achievements),
		CreatedAt:         u.CreatedAt,
	}, nil
}

// ChapterUpdate is a partial update to one chapter's state.
type ChapterUpdate struct {
	Progress  *int           `json:"progress,omitempty"`
	Status    *ChapterStatus `json:"status,omitempty"`
	QuizScore *int           `json:"quiz_score,omitempty"`
}

// ChapterUpdateResult is the state returned after a chapter update.
type ChapterUpdateResult struct {
	Chapter         ChapterState     `json:"chapter"`
	OverallPercent  int              `json:"overall_percent"`
	CompletedCount  int              `json:"completed_chapters"`
	TotalPoints     int              `json:"total_points"`
	Level           Level            `json:"level"`
	NewAchievements []AchievementDef `json:"new_achievements,omitempty"`
}

// UpdateChapterProgress applies a partial update to a chapter. The first
// transition to completed awards chapter points (plus quiz points when the
// score clears the threshold) and stamps CompletedAt exactly once; repeating
// the update is a no-op for points and counters. Unknown chapter ids get a
// fresh ChapterState: the engine trusts the roadmap collaborator and stays
// permissive here.
func (s *Service) UpdateChapterProgress(userID string, chapterID int, upd ChapterUpdate) (ChapterUpdateResult, error) {
	if chapterID <= 0 {
		return ChapterUpdateResult{}, fmt.Errorf("%w: chapter id must be positive, got %d", ErrInvalidInput, chapterID)
	}
	if upd.Progress != nil && (*upd.Progress < 0 || *upd.Progress > 100) {
		return ChapterUpdateResult{}, fmt.Errorf("%w: progress must be 0-100, got %d", ErrInvalidInput, *upd.Progress)
	}
	if upd.QuizScore != nil && (*upd.QuizScore < 0 || *upd.QuizScore > 100) {
		return ChapterUpdateResult{}, fmt.Errorf("%w: quiz score must be 0-100, got %d", ErrInvalidInput, *upd.QuizScore)
	}
	if upd.Status != nil {
		switch *upd.Status {
		case ChapterNotStarted, ChapterInProgress, ChapterCompleted:
		default:
			return ChapterUpdateResult{}, fmt.Errorf("%w: unknown chapter status %q", ErrInvalidInput, *upd.Status)
		}
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.store.User(userID)
	if err != nil {
		return ChapterUpdateResult{}, fmt.Errorf("load user: %w", err)
	}
	pointsBefore := u.TotalPoints

	ch, ok := u.Chapters[chapterID]
	if !ok {
		ch = &ChapterState{ID: chapterID, Status: ChapterNotStarted}
		u.Chapters[chapterID] = ch
	}

	if upd.Progress != nil {
		ch.Progress = *upd.Progress
		if ch.Status == ChapterNotStarted && ch.Progress > 0 {
			ch.Status = ChapterInProgress
		}
	}
	if upd.QuizScore != nil {
		score := *upd.QuizScore
		ch.QuizScore = &score
	}

	firstCompletion := false
	if upd.Status != nil && *upd.Status != ch.Status {
		ch.Status = *upd.Status
		if ch.Status == ChapterCompleted && ch.CompletedAt == nil {
			firstCompletion = true
			at := s.now()
			ch.CompletedAt = &at
			ch.Progress = 100
			u.CompletedChapters++
			if chapterID >= u.CurrentChapter {
				u.CurrentChapter = chapterID + 1
				if u.CurrentChapter > u.TotalChapters {
					u.CurrentChapter = u.TotalChapters
				}
			}
		}
	}
	if ch.Status == ChapterInProgress && chapterID > u.CurrentChapter {
		u.CurrentChapter = chapterID
	}

	if err := s.store.SaveUser(u); err != nil {
		return ChapterUpdateResult{}, fmt.Errorf("save user: %w", err)
	}

	if firstCompletion {
		if _, err := s.store.AppendActivity(userID, ActivityEntry{
			Type:         ActivityChapterCompleted,
			Title:        fmt.Sprintf("Completed chapter %d", chapterID),
			Date:         s.now(),
			PointsEarned: chapterPoints,
			ChapterID:    &chapterID,
		}); err != nil {
			return ChapterUpdateResult{}, fmt.Errorf("log chapter completion: %w", err)
		}
		if ch.QuizScore != nil && *ch.QuizScore >= quizPointThreshold {
			if _, err := s.store.AppendActivity(userID, ActivityEntry{
				Type:         ActivityQuizCompleted,
				Title:        fmt.Sprintf("Passed chapter %d quiz with %d%%", chapterID, *ch.QuizScore),
				Date:         s.now(),
				PointsEarned: quizPoints,
				ChapterID:    &chapterID,
			}); err != nil {
				return ChapterUpdateResult{}, fmt.Errorf("log quiz completion: %w", err)
			}
		}
	}

	earned, err := s.settleProgress(userID, pointsBefore)
	if err != nil {
		return ChapterUpdateResult{}, err
	}

	final, err := s.store.User(userID)
	if err != nil {
		return ChapterUpdateResult{}, fmt.Errorf("reload user: %w", err)
	}
	return ChapterUpdateResult{
		Chapter:         *final.Chapters[chapterID],
		OverallPercent:  final.OverallPercent(),
		CompletedCount:  final.CompletedChapters,
		TotalPoints:     final.TotalPoints,
		Level:           CalculateLevel(final.TotalPoints),
		NewAchievements: earned,
	}, nil
}

// UpdateSkillProgress records a caller-supplied skill target. This signal is
// independent of the derived mastery and the two are never reconciled.
func (s *Service) UpdateSkillProgress(userID, skill string, progress int) (SkillState, error) {
	if skill == "" {
		return SkillState{}, fmt.Errorf("%w: skill name is required", ErrInvalidInput)
	}
	if progress < 0 || progress > 100 {
		return SkillState{}, fmt.Errorf("%w: progress must be 0-100, got %d", ErrInvalidInput, progress)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.store.User(userID)
	if err != nil {
		return SkillState{}, fmt.Errorf("load user: %w", err)
	}
	pointsBefore := u.TotalPoints

	state := SkillState{Skill: skill, Progress: progress, UpdatedAt: s.now()}
	u.SkillProgress[skill] = state
	if err := s.store.SaveUser(u); err != nil {
		return SkillState{}, fmt.Errorf("save user: %w", err)
	}

	if _, err := s.store.AppendActivity(userID, ActivityEntry{
		Type:  ActivitySkillImproved,
		Title: fmt.Sprintf("Updated %s to %d%%", skill, progress),
		Date:  s.now(),
	}); err != nil {
		return SkillState{}, fmt.Errorf("log skill update: %w", err)
	}

	if _, err := s.settleProgress(userID, pointsBefore); err != nil {
		return SkillState{}, err
	}
	return state, nil
}

// ActivityInput is the caller-facing shape for LogActivity.
type ActivityInput struct {
	Type             ActivityType `json:"type"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	TimeSpentMinutes int          `json:"time_spent_minutes"`
	PointsEarned     int          `json:"points_earned"`
	ChapterID        *int         `json:"chapter_id,omitempty"`
}

// LogActivity appends an activity to the user's log. Positive point awards are
// posted to the ledger in the activity type's category.
func (s *Service) LogActivity(userID string, in ActivityInput) (ActivityEntry, error) {
	if _, ok := activityTypeNames[in.Type]; !ok {
		return ActivityEntry{}, fmt.Errorf("%w: unknown activity type %d", ErrInvalidInput, in.Type)
	}
	if in.Title == "" {
		return ActivityEntry{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.TimeSpentMinutes < 0 {
		return ActivityEntry{}, fmt.Errorf("%w: time spent must be non-negative, got %d", ErrInvalidInput, in.TimeSpentMinutes)
	}
	if in.PointsEarned < 0 {
		return ActivityEntry{}, fmt.Errorf("%w: points must be non-negative, got %d", ErrInvalidInput, in.PointsEarned)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Touch the record so lazy init happens even for a pure log call.
	u, err := s.store.User(userID)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("load user: %w", err)
	}
	pointsBefore := u.TotalPoints

	entry, err := s.store.AppendActivity(userID, ActivityEntry{
		Type:             in.Type,
		Title:            in.Title,
		Description:      in.Description,
		Date:             s.now(),
		TimeSpentMinutes: in.TimeSpentMinutes,
		PointsEarned:     in.PointsEarned,
		ChapterID:        in.ChapterID,
	})
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("append activity: %w", err)
	}

	if _, err := s.settleProgress(userID, pointsBefore); err != nil {
		return ActivityEntry{}, err
	}
	return entry, nil
}

// CalculateLearningStreak derives the user's current and longest day streaks.
func (s *Service) CalculateLearningStreak(userID string) (LearningStreak, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.store.Activities(userID)
	if err != nil {
		return LearningStreak{}, fmt.Errorf("load activities: %w", err)
	}
	return CalculateStreak(entries, s.now()), nil
}

// CalculateSkillsMastery derives per-skill mastery for all registered skills.
func (s *Service) CalculateSkillsMastery(userID string) (SkillsMastery, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.store.User(userID)
	if err != nil {
		return SkillsMastery{}, fmt.Errorf("load user: %w", err)
	}
	return CalculateMastery(s.registry, u.Chapters), nil
}

// RoadmapProgress is the per-chapter roadmap view.
type RoadmapProgress struct {
	TotalChapters     int            `json:"total_chapters"`
	CompletedChapters int            `json:"completed_chapters"`
	CurrentChapter    int            `json:"current_chapter"`
	OverallPercent    int            `json:"overall_percent"`
	Chapters          []ChapterState `json:"chapters"`
}

// GetRoadmapProgress returns every roadmap chapter in order, filling untouched
// chapters with a zero state.
func (s *Service) GetRoadmapProgress(userID string) (RoadmapProgress, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	u, err := s.store.User(userID)
	if err != nil {
		return RoadmapProgress{}, fmt.Errorf("load user: %w", err)
	}

	chapters := make([]ChapterState, 0, u.TotalChapters)
	for id := 1; id <= u.TotalChapters; id++ {
		if ch, ok := u.Chapters[id]; ok {
			chapters = append(chapters, *ch)
		} else {
			chapters = append(chapters, ChapterState{ID: id, Status: ChapterNotStarted})
		}
	}
	// Chapters beyond the roadmap length still show up if a caller touched them.
	var extra []int
	for id := range u.Chapters {
		if id > u.TotalChapters {
			extra = append(extra, id)
		}
	}
	sort.Ints(extra)
	for _, id := range extra {
		chapters = append(chapters, *u.Chapters[id])
	}

	return RoadmapProgress{
		TotalChapters:     u.TotalChapters,
		CompletedChapters: u.CompletedChapters,
		CurrentChapter:    u.CurrentChapter,
		OverallPercent:    u.OverallPercent(),
		Chapters:          chapters,
	}, nil
}

// ResetUserProgress destroys all per-user state. The next access starts from
// an empty record. Storage errors propagate: a reset must never silently no-op.
func (s *Service) ResetUserProgress(userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.Reset(userID); err != nil {
		return fmt.Errorf("reset user: %w", err)
	}
	slog.Info("user progress reset", "user_id", userID)
	return nil
}

// settleProgress runs the post-mutation pipeline under the caller-held user
// lock: recompute aggregates, log newly reached streak milestones, evaluate
// achievement rules against aggregates computed before any new award, then
// append the awards. One pass, never recursive: an achievement's own points
// only feed the next mutation's evaluation. pointsBefore is the user's total
// before the mutation; the level comparison runs against it on every settle,
// so a level-up is published even when no achievement fires.
func (s *Service) settleProgress(userID string, pointsBefore int) ([]AchievementDef, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	entries, err := s.store.Activities(userID)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	streak := CalculateStreak(entries, s.now())

	s.maybeLogStreakMilestone(userID, entries, streak)

	snap := snapshotOf(u, streak)
	unlocked := make(map[string]bool, len(u.Achievements))
	for _, id := range u.Achievements {
		unlocked[id] = true
	}

	earned := EvaluateAchievements(snap, unlocked)
	if len(earned) > 0 {
		for _, def := range earned {
			u.Achievements = append(u.Achievements, def.ID)
		}
		if err := s.store.SaveUser(u); err != nil {
			return nil, fmt.Errorf("save achievements: %w", err)
		}

		for _, def := range earned {
			if _, err := s.store.AppendActivity(userID, ActivityEntry{
				Type:         ActivityAchievementEarned,
				Title:        fmt.Sprintf("Unlocked achievement: %s", def.Title),
				Description:  def.Description,
				Date:         s.now(),
				PointsEarned: def.Points,
			}); err != nil {
				return nil, fmt.Errorf("log achievement: %w", err)
			}
			s.publish(realtime.Event{
				UserID: userID,
				Type:   realtime.EventAchievementUnlocked,
				Data:   map[string]any{"id": def.ID, "title": def.Title, "points": def.Points},
			})
			slog.Info("achievement unlocked", "user_id", userID, "achievement", def.ID)
		}
	}

	final, err := s.store.User(userID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	levelBefore := CalculateLevel(pointsBefore)
	if levelAfter := CalculateLevel(final.TotalPoints); levelAfter.Number > levelBefore.Number {
		s.publish(realtime.Event{
			UserID: userID,
			Type:   realtime.EventLevelUp,
			Data:   map[string]any{"level": levelAfter.Name, "number": levelAfter.Number},
		})
		slog.Info("level up", "user_id", userID, "level", levelAfter.Name)
	}
	return earned, nil
}

// maybeLogStreakMilestone appends a streak_milestone activity the first time
// the current streak reaches one of the milestone lengths.
func (s *Service) maybeLogStreakMilestone(userID string, entries []ActivityEntry, streak LearningStreak) {
	milestone := 0
	for _, m := range streakMilestones {
		if streak.CurrentStreak == m {
			milestone = m
			break
		}
	}
	if milestone == 0 {
		return
	}

	title := fmt.Sprintf("%d-day streak!", milestone)
	for _, e := range entries {
		if e.Type == ActivityStreakMilestone && e.Title == title {
			return
		}
	}

	if _, err := s.store.AppendActivity(userID, ActivityEntry{
		Type:         ActivityStreakMilestone,
		Title:        title,
		Description:  fmt.Sprintf("Studied %d days in a row", milestone),
		Date:         s.now(),
		PointsEarned: streakPoints,
	}); err != nil {
		slog.Warn("failed to log streak milestone", "user_id", userID, "error", err)
	}
}

func (s *Service) publish(evt realtime.Event) {
	if s.hub != nil {
		s.hub.Publish(evt)
	}
}

func resolveAchievements(ids []string) []AchievementDef {
	out := make([]AchievementDef, 0, len(ids))
	for _, id := range ids {
		if def, ok := AchievementByID(id); ok {
			def.Qualifies = nil
			out = append(out, def)
		} else {
			out = append(out, AchievementDef{ID: id})
		}
	}
	return out
}
