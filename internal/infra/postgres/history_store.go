package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-session-service/internal/domain"
)

type historyRow struct {
	bun.BaseModel `bun:"table:quiz_history"`

	ID          string            `bun:"id,pk"`
	UserID      string            `bun:"user_id,notnull"`
	TopicID     string            `bun:"topic_id,notnull"`
	TopicTitle  string            `bun:"topic_title"`
	Subject     string            `bun:"subject"`
	Mode        string            `bun:"mode,notnull"`
	Correct     int               `bun:"correct"`
	Total       int               `bun:"total"`
	Percentage  int               `bun:"percentage"`
	BotScore    *domain.Score     `bun:"bot_score,type:jsonb"`
	TimeSpent   int               `bun:"time_spent"`
	Reason      string            `bun:"reason"`
	Answers     map[string]int    `bun:"answers,type:jsonb"`
	Questions   []domain.Question `bun:"questions,type:jsonb"`
	CompletedAt time.Time         `bun:"completed_at,notnull"`
}

// OpenDB opens a bun handle over the pg driver.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// HistoryStore keeps finished attempts in quiz_history, trimmed to limit rows per user.
type HistoryStore struct {
	db    *bun.DB
	limit int
}

func NewHistoryStore(db *bun.DB, limit int) *HistoryStore {
	return &HistoryStore{db: db, limit: limit}
}

func (s *HistoryStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	row := toRow(entry)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		if s.limit <= 0 {
			return nil
		}
		keep := tx.NewSelect().
			Model((*historyRow)(nil)).
			Column("id").
			Where("user_id = ?", entry.UserID).
			Order("completed_at DESC").
			Limit(s.limit)
		_, err := tx.NewDelete().
			Model((*historyRow)(nil)).
			Where("user_id = ?", entry.UserID).
			Where("id NOT IN (?)", keep).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
		return nil
	})
}

func (s *HistoryStore) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	var rows []historyRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

func (s *HistoryStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.NewDelete().
		Model((*historyRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func toRow(e domain.HistoryEntry) historyRow {
	return historyRow{
		ID:          e.ID,
		UserID:      e.UserID,
		TopicID:     e.TopicID,
		TopicTitle:  e.TopicTitle,
		Subject:     e.Subject,
		Mode:        string(e.Mode),
		Correct:     e.Score.Correct,
		Total:       e.Score.Total,
		Percentage:  e.Score.Percentage,
		BotScore:    e.BotScore,
		TimeSpent:   e.TimeSpent,
		Reason:      string(e.Reason),
		Answers:     e.Answers,
		Questions:   e.Questions,
		CompletedAt: e.CompletedAt,
	}
}

func (r historyRow) toEntry() domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:         r.ID,
		UserID:     r.UserID,
		TopicID:    r.TopicID,
		TopicTitle: r.TopicTitle,
		Subject:    r.Subject,
		Mode:       domain.Mode(r.Mode),
		Score: domain.Score{
			Correct:    r.Correct,
			Total:      r.Total,
			Percentage: r.Percentage,
		},
		BotScore:    r.BotScore,
		TimeSpent:   r.TimeSpent,
		Reason:      domain.FinishReason(r.Reason),
		Answers:     r.Answers,
		Questions:   r.Questions,
		CompletedAt: r.CompletedAt,
	}
}
