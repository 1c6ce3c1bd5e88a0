package progress

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// DefaultTotalChapters is the roadmap length assumed for a user created lazily
// before any roadmap is assigned.
const DefaultTotalChapters = 10

// Store persists per-user progress records, the activity log, and the points
// ledger. There is no "user not found": reads lazily create an empty record.
type Store interface {
	// User returns the progress record for userID, creating it if absent.
	User(userID string) (*UserProgress, error)
	// SaveUser overwrites the stored progress record. TotalPoints and
	// CreatedAt are store-owned and not writable here: points flow only
	// through the ledger via AppendActivity.
	SaveUser(u *UserProgress) error
	// AppendActivity appends to the activity log, assigning an id and date if
	// unset. A positive PointsEarned also posts a ledger entry in the activity
	// type's category and increments the user's TotalPoints.
	AppendActivity(userID string, e ActivityEntry) (ActivityEntry, error)
	// Activities returns the full activity log in insertion order.
	Activities(userID string) ([]ActivityEntry, error)
	// Ledger returns all points ledger entries in insertion order.
	Ledger(userID string) ([]LedgerEntry, error)
	// Reset deletes the user's record, log, and ledger. The next access
	// recreates them empty.
	Reset(userID string) error
}

type userRecord struct {
	progress   *UserProgress
	activities []ActivityEntry
	ledger     []LedgerEntry
}

// MemoryStore is the in-memory Store implementation. All accessors hand out
// deep copies, so a reader racing a Reset sees fully-old or fully-new state.
type MemoryStore struct {
	totalChapters int
	users         map[string]*userRecord
	mu            sync.RWMutex
}

// NewMemoryStore creates an in-memory store. totalChapters sets the roadmap
// length for lazily created users; 0 means DefaultTotalChapters.
func NewMemoryStore(totalChapters int) *MemoryStore {
	if totalChapters <= 0 {
		totalChapters = DefaultTotalChapters
	}
	return &MemoryStore{
		totalChapters: totalChapters,
		users:         make(map[string]*userRecord),
	}
}

func (s *MemoryStore) User(userID string) (*UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.record(userID).progress), nil
}

func (s *MemoryStore) SaveUser(u *UserProgress) error {
	if u == nil || u.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(u.UserID)
	saved := cloneUser(u)
	saved.CreatedAt = rec.progress.CreatedAt
	saved.TotalPoints = rec.progress.TotalPoints
	rec.progress = saved
	return nil
}

func (s *MemoryStore) AppendActivity(userID string, e ActivityEntry) (ActivityEntry, error) {
	if e.PointsEarned < 0 {
		return ActivityEntry{}, fmt.Errorf("points_earned must be non-negative, got %d", e.PointsEarned)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(userID)
	if e.ID == "" {
		e.ID = generateID()
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	rec.activities = append(rec.activities, e)

	if e.PointsEarned > 0 {
		rec.ledger = append(rec.ledger, LedgerEntry{
			Category: e.Type.Category(),
			Points:   e.PointsEarned,
			Date:     e.Date,
		})
		rec.progress.TotalPoints += e.PointsEarned
	}
	return e, nil
}

func (s *MemoryStore) Activities(userID string) ([]ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return []ActivityEntry{}, nil
	}
	out := make([]ActivityEntry, len(rec.activities))
	copy(out, rec.activities)
	return out, nil
}

func (s *MemoryStore) Ledger(userID string) ([]LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return []LedgerEntry{}, nil
	}
	out := make([]LedgerEntry, len(rec.ledger))
	copy(out, rec.ledger)
	return out, nil
}

func (s *MemoryStore) Reset(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

// record returns the live record for userID, creating it if absent.
// Callers must hold the write lock.
func (s *MemoryStore) record(userID string) *userRecord {
	rec, ok := s.users[userID]
	if !ok {
		rec = &userRecord{progress: newUserProgress(userID, s.totalChapters)}
		s.users[userID] = rec
	}
	return rec
}

func newUserProgress(userID string, totalChapters int) *UserProgress {
	return &UserProgress{
		UserID:        userID,
		TotalChapters: totalChapters,
		Chapters:      make(map[int]*ChapterState),
		SkillProgress: make(map[string]SkillState),
		Achievements:  []string{},
		CreatedAt:     time.Now(),
	}
}

func cloneUser(u *UserProgress) *UserProgress {
	out := *u
	out.Chapters = make(map[int]*ChapterState, len(u.Chapters))
	for id, ch := range u.Chapters {
		c := *ch
		if ch.QuizScore != nil {
			score := *ch.QuizScore
			c.QuizScore = &score
		}
		if ch.CompletedAt != nil {
			at := *ch.CompletedAt
			c.CompletedAt = &at
		}
		out.Chapters[id] = &c
	}
	out.SkillProgress = make(map[string]SkillState, len(u.SkillProgress))
	for name, sk := range u.SkillProgress {
		out.SkillProgress[name] = sk
	}
	out.Achievements = append([]string{}, u.Achievements...)
	return &out
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
