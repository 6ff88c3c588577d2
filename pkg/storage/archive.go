package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// Archive is the TOML interchange format the import command reads.
type Archive struct {
	Categories []ArchiveCategory `toml:"categories"`
	Users      []ArchiveUser     `toml:"users"`
	Exams      []ArchiveExam     `toml:"exams"`
}

type ArchiveCategory struct {
	Slug   string   `toml:"slug"`
	Name   string   `toml:"name"`
	Admins []string `toml:"admins"`
}

type ArchiveUser struct {
	Username    string `toml:"username"`
	DisplayName string `toml:"display_name"`
	Admin       bool   `toml:"admin"`
	Payed       bool   `toml:"payed"`
}

type ArchiveExam struct {
	Filename     string          `toml:"filename"`
	DisplayName  string          `toml:"display_name"`
	Category     string          `toml:"category"`
	Public       bool            `toml:"public"`
	NeedsPayment bool            `toml:"needs_payment"`
	Pages        []string        `toml:"pages"`
	Answers      []ArchiveAnswer `toml:"answers"`
}

type ArchiveAnswer struct {
	LongID   string           `toml:"long_id"`
	Author   string           `toml:"author"`
	Text     string           `toml:"text"`
	Comments []ArchiveComment `toml:"comments"`
}

type ArchiveComment struct {
	LongID string `toml:"long_id"`
	Author string `toml:"author"`
	Text   string `toml:"text"`
}

// LoadStats counts what an import wrote.
type LoadStats struct {
	Categories int
	Users      int
	Exams      int
	Pages      int
	Answers    int
	Comments   int
}

// ReadArchive parses a TOML archive file.
func ReadArchive(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return ParseArchive(data)
}

// ParseArchive parses and validates TOML archive data.
func ParseArchive(data []byte) (*Archive, error) {
	var a Archive
	if err := toml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks references between archive sections.
func (a *Archive) Validate() error {
	categories := make(map[string]bool, len(a.Categories))
	for i, c := range a.Categories {
		if c.Slug == "" {
			return fmt.Errorf("category %d: slug is required", i)
		}
		categories[c.Slug] = true
	}
	for i, u := range a.Users {
		if u.Username == "" {
			return fmt.Errorf("user %d: username is required", i)
		}
	}
	for i, e := range a.Exams {
		if e.Filename == "" {
			return fmt.Errorf("exam %d: filename is required", i)
		}
		if !categories[e.Category] {
			return fmt.Errorf("exam %s: unknown category %q", e.Filename, e.Category)
		}
		for j, ans := range e.Answers {
			if ans.Author == "" {
				return fmt.Errorf("exam %s answer %d: author is required", e.Filename, j)
			}
			for k, c := range ans.Comments {
				if c.Author == "" {
					return fmt.Errorf("exam %s answer %d comment %d: author is required", e.Filename, j, k)
				}
			}
		}
	}
	return nil
}

// Load writes the archive in a single transaction. Rows are upserted by
// their natural keys, so loading the same archive twice is harmless.
// Answers and comments without a long id get a fresh UUID.
func (s *Store) Load(ctx context.Context, a *Archive) (LoadStats, error) {
	var stats LoadStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				logger.Warnf("failed to rollback import: %v", err)
			}
		}
	}()

	for _, u := range a.Users {
		if err := upsertUser(ctx, tx, u.Username, u.DisplayName, u.Admin, u.Payed); err != nil {
			return stats, err
		}
		stats.Users++
	}

	categoryIDs := make(map[string]int64, len(a.Categories))
	for _, c := range a.Categories {
		name := c.Name
		if name == "" {
			name = c.Slug
		}
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO categories (slug, display_name) VALUES (?, ?)
			ON CONFLICT(slug) DO UPDATE SET display_name = excluded.display_name
			RETURNING id`, c.Slug, name).Scan(&id)
		if err != nil {
			return stats, fmt.Errorf("storing category %s: %w", c.Slug, err)
		}
		categoryIDs[c.Slug] = id
		stats.Categories++

		for _, admin := range c.Admins {
			if err := ensureUser(ctx, tx, admin); err != nil {
				return stats, err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO category_admins (username, category_id) VALUES (?, ?)", admin, id)
			if err != nil {
				return stats, fmt.Errorf("storing admin %s of %s: %w", admin, c.Slug, err)
			}
		}
	}

	for _, e := range a.Exams {
		if err := loadExam(ctx, tx, e, categoryIDs[e.Category], &stats); err != nil {
			return stats, err
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("committing import: %w", err)
	}
	committed = true
	logger.Infof("imported %d exams, %d pages, %d answers, %d comments",
		stats.Exams, stats.Pages, stats.Answers, stats.Comments)
	return stats, nil
}

func loadExam(ctx context.Context, tx *sql.Tx, e ArchiveExam, categoryID int64, stats *LoadStats) error {
	name := e.DisplayName
	if name == "" {
		name = e.Filename
	}

	var examID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO exams (filename, display_name, category_id, public, needs_payment)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			display_name = excluded.display_name,
			category_id = excluded.category_id,
			public = excluded.public,
			needs_payment = excluded.needs_payment
		RETURNING id`, e.Filename, name, categoryID, e.Public, e.NeedsPayment).Scan(&examID)
	if err != nil {
		return fmt.Errorf("storing exam %s: %w", e.Filename, err)
	}
	stats.Exams++

	for i, text := range e.Pages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exam_pages (exam_id, page_number, text) VALUES (?, ?, ?)
			ON CONFLICT(exam_id, page_number) DO UPDATE SET text = excluded.text`,
			examID, i+1, text)
		if err != nil {
			return fmt.Errorf("storing page %d of %s: %w", i+1, e.Filename, err)
		}
		stats.Pages++
	}
	// Pages past the end of a shorter re-import are stale.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM exam_pages WHERE exam_id = ? AND page_number > ?", examID, len(e.Pages)); err != nil {
		return fmt.Errorf("trimming pages of %s: %w", e.Filename, err)
	}

	for _, ans := range e.Answers {
		if err := ensureUser(ctx, tx, ans.Author); err != nil {
			return err
		}
		longID := ans.LongID
		if longID == "" {
			longID = uuid.NewString()
		}
		var answerID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO answers (long_id, exam_id, author, text) VALUES (?, ?, ?, ?)
			ON CONFLICT(long_id) DO UPDATE SET
				exam_id = excluded.exam_id,
				author = excluded.author,
				text = excluded.text
			RETURNING id`, longID, examID, ans.Author, ans.Text).Scan(&answerID)
		if err != nil {
			return fmt.Errorf("storing answer %s: %w", longID, err)
		}
		stats.Answers++

		for _, c := range ans.Comments {
			if err := ensureUser(ctx, tx, c.Author); err != nil {
				return err
			}
			commentID := c.LongID
			if commentID == "" {
				commentID = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO comments (long_id, answer_id, author, text) VALUES (?, ?, ?, ?)
				ON CONFLICT(long_id) DO UPDATE SET
					answer_id = excluded.answer_id,
					author = excluded.author,
					text = excluded.text`, commentID, answerID, c.Author, c.Text)
			if err != nil {
				return fmt.Errorf("storing comment %s: %w", commentID, err)
			}
			stats.Comments++
		}
	}
	return nil
}

func upsertUser(ctx context.Context, tx *sql.Tx, username, displayName string, admin, payed bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, display_name, is_admin, has_payed) VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			display_name = excluded.display_name,
			is_admin = excluded.is_admin,
			has_payed = excluded.has_payed`, username, displayName, admin, payed)
	if err != nil {
		return fmt.Errorf("storing user %s: %w", username, err)
	}
	return nil
}

// ensureUser creates a bare user row for authors not listed in [[users]].
func ensureUser(ctx context.Context, tx *sql.Tx, username string) error {
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO users (username) VALUES (?)", username); err != nil {
		return fmt.Errorf("storing user %s: %w", username, err)
	}
	return nil
}
