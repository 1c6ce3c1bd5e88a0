package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. TotalPoints is
// never stored: it is the sum of the points ledger, computed on read, so the
// conservation invariant holds by construction.
//
// Expected schema:
//
//	progress_users(user_id text primary key, total_chapters int, completed_chapters int,
//	               current_chapter int, chapters jsonb, skill_progress jsonb,
//	               achievements jsonb, created_at timestamptz)
//	activity_log(id text primary key, user_id text, type text, title text, description text,
//	             date timestamptz, time_spent_minutes int, points_earned int, chapter_id int)
//	points_ledger(user_id text, category text, points int, date timestamptz)
type PostgresStore struct {
	pool          *pgxpool.Pool
	totalChapters int
}

// NewPostgresStore creates a PostgreSQL-backed progress store. totalChapters
// sets the roadmap length for lazily created users; 0 means
// DefaultTotalChapters.
func NewPostgresStore(pool *pgxpool.Pool, totalChapters int) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if totalChapters <= 0 {
		totalChapters = DefaultTotalChapters
	}
	return &PostgresStore{pool: pool, totalChapters: totalChapters}, nil
}

func (s *PostgresStore) User(userID string) (*UserProgress, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	u, err := s.loadUser(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Lazy init. ON CONFLICT covers a concurrent first touch.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO progress_users (user_id, total_chapters, completed_chapters, current_chapter,
		                             chapters, skill_progress, achievements, created_at)
		 VALUES ($1, $2, 0, 0, '{}'::jsonb, '{}'::jsonb, '[]'::jsonb, NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
		s.totalChapters,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.loadUser(ctx, userID)
}

func (s *PostgresStore) loadUser(ctx context.Context, userID string) (*UserProgress, error) {
	u := &UserProgress{UserID: userID}
	var chapters, skills, achievements []byte

	err := s.pool.QueryRow(ctx,
		`SELECT u.total_chapters, u.completed_chapters, u.current_chapter,
		        u.chapters, u.skill_progress, u.achievements, u.created_at,
		        COALESCE((SELECT SUM(l.points) FROM points_ledger l WHERE l.user_id = u.user_id), 0)
		 FROM progress_users u
		 WHERE u.user_id = $1`,
		userID,
	).Scan(
		&u.TotalChapters,
		&u.CompletedChapters,
		&u.CurrentChapter,
		&chapters,
		&skills,
		&achievements,
		&u.CreatedAt,
		&u.TotalPoints,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := json.Unmarshal(chapters, &u.Chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	if err := json.Unmarshal(skills, &u.SkillProgress); err != nil {
		return nil, fmt.Errorf("decode skill progress: %w", err)
	}
	if err := json.Unmarshal(achievements, &u.Achievements); err != nil {
		return nil, fmt.Errorf("decode achievements: %w", err)
	}
	if u.Chapters == nil {
		u.Chapters = make(map[int]*ChapterState)
	}
	if u.SkillProgress == nil {
		u.SkillProgress = make(map[string]SkillState)
	}
	if u.Achievements == nil {
		u.Achievements = []string{}
	}
	return u, nil
}

func (s *PostgresStore) SaveUser(u *UserProgress) error {
	if u == nil || u.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	chapters, err := json.Marshal(u.Chapters)
	if err != nil {
		return fmt.Errorf("encode chapters: %w", err)
	}
	skills, err := json.Marshal(u.SkillProgress)
	if err != nil {
		return fmt.Errorf("encode skill progress: %w", err)
	}
	achievements, err := json.Marshal(u.Achievements)
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE progress_users
		 SET total_chapters = $2, completed_chapters = $3, current_chapter = $4,
		     chapters = $5::jsonb, skill_progress = $6::jsonb, achievements = $7::jsonb
		 WHERE user_id = $1`,
		u.UserID,
		u.TotalChapters,
		u.CompletedChapters,
		u.CurrentChapter,
		string(chapters),
		string(skills),
		string(achievements),
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %s", u.UserID)
	}
	return nil
}

func (s *PostgresStore) AppendActivity(userID string, e ActivityEntry) (ActivityEntry, error) {
	if e.PointsEarned < 0 {
		return ActivityEntry{}, fmt.Errorf("points_earned must be non-negative, got %d", e.PointsEarned)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if e.ID == "" {
		e.ID = generateID()
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO activity_log (id, user_id, type, title, description, date,
		                           time_spent_minutes, points_earned, chapter_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID,
		userID,
		e.Type.String(),
		e.Title,
		e.Description,
		e.Date,
		e.TimeSpentMinutes,
		e.PointsEarned,
		e.ChapterID,
	)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("insert activity: %w", err)
	}

	if e.PointsEarned > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO points_ledger (user_id, category, points, date)
			 VALUES ($1, $2, $3, $4)`,
			userID,
			string(e.Type.Category()),
			e.PointsEarned,
			e.Date,
		)
		if err != nil {
			return ActivityEntry{}, fmt.Errorf("insert ledger entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ActivityEntry{}, fmt.Errorf("commit append: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Activities(userID string) ([]ActivityEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, type, title, description, date, time_spent_minutes, points_earned, chapter_id
		 FROM activity_log
		 WHERE user_id = $1
		 ORDER BY date ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var typeName string
		if err := rows.Scan(
			&e.ID,
			&typeName,
			&e.Title,
			&e.Description,
			&e.Date,
			&e.TimeSpentMinutes,
			&e.PointsEarned,
			&e.ChapterID,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if t, ok := ParseActivityType(typeName); ok {
			e.Type = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Ledger(userID string) ([]LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT category, points, date
		 FROM points_ledger
		 WHERE user_id = $1
		 ORDER BY date ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	entries := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		var category string
		if err := rows.Scan(&category, &e.Points, &e.Date); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Category = PointsCategory(category)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Reset(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"points_ledger", "activity_log", "progress_users"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table), userID); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}
