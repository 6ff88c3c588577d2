package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/compsoc-edinburgh/betterinformatics-files-sub000/pkg/access"
)

// LookupCaller loads the payment status and admin scope of username.
// Usernames unknown to the archive resolve to a caller without any rights:
// identity is established upstream, the archive only adds privileges.
func (s *Store) LookupCaller(ctx context.Context, username string) (*access.Caller, error) {
	c := &access.Caller{
		Username: username,
		Scope:    access.AdminScope{Categories: make(map[int64]bool)},
	}

	err := s.db.QueryRowContext(ctx,
		"SELECT is_admin, has_payed FROM users WHERE username = ?", username).
		Scan(&c.Scope.Global, &c.HasPayed)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT category_id FROM category_admins WHERE username = ?", username)
	if err != nil {
		return nil, fmt.Errorf("loading admin categories of %s: %w", username, err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning admin category: %w", err)
		}
		c.Scope.Categories[id] = true
	}
	return c, rows.Err()
}
