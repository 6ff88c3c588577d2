package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
)

var ftsTables = []string{"exams_fts", "exam_pages_fts", "answers_fts", "comments_fts"}

// Stats summarizes the archive contents.
type Stats struct {
	Categories int   `json:"categories"`
	Users      int   `json:"users"`
	Exams      int   `json:"exams"`
	Pages      int   `json:"pages"`
	Answers    int   `json:"answers"`
	Comments   int   `json:"comments"`
	SizeBytes  int64 `json:"size_bytes"`
}

// Stats counts the rows of every archive table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		table string
		dst   *int
	}{
		{"categories", &st.Categories},
		{"users", &st.Users},
		{"exams", &st.Exams},
		{"exam_pages", &st.Pages},
		{"answers", &st.Answers},
		{"comments", &st.Comments},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return st, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	return st, nil
}

func (s *Store) Optimize(ctx context.Context) error {
	for _, t := range ftsTables {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s(%s) VALUES('optimize')", t, t)); err != nil {
			return fmt.Errorf("optimizing %s: %w", t, err)
		}
	}
	_, err := s.db.ExecContext(ctx, "PRAGMA optimize")
	return err
}

func (s *Store) Analyze(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "ANALYZE")
	return err
}

func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *Store) WALCheckpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// RebuildFTS regenerates every full-text index from its content table.
func (s *Store) RebuildFTS(ctx context.Context) error {
	for _, t := range ftsTables {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s(%s) VALUES('rebuild')", t, t)); err != nil {
			return fmt.Errorf("rebuilding %s: %w", t, err)
		}
	}
	return nil
}

// FTSIntegrityCheck verifies every full-text index against its content
// table. A failure means RebuildFTS is needed.
func (s *Store) FTSIntegrityCheck(ctx context.Context) error {
	for _, t := range ftsTables {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES('integrity-check', 1)", t, t)); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
	}
	return nil
}

// IntegrityCheck runs SQLite's integrity check and returns its findings;
// a healthy database yields nil.
func (s *Store) IntegrityCheck(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, fmt.Errorf("checking integrity: %w", err)
	}
	defer closeRows(rows)

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning integrity result: %w", err)
		}
		if !strings.EqualFold(line, "ok") {
			problems = append(problems, line)
		}
	}
	return problems, rows.Err()
}
