// Package store persists creations in Postgres and caches the public feed
// in Redis.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/illegalcall/quickai/internal/models"
)

var ErrCreationNotFound = errors.New("creation not found")

const creationColumns = "id, user_id, prompt, content, type, publish, likes, created_at"

type CreationStore struct {
	db *sqlx.DB
}

func NewCreationStore(db *sqlx.DB) *CreationStore {
	return &CreationStore{db: db}
}

// Append inserts c and returns it with the store assigned id and timestamp.
func (s *CreationStore) Append(ctx context.Context, c models.Creation) (models.Creation, error) {
	if c.Content == "" {
		return models.Creation{}, errors.New("refusing to store a creation without content")
	}

	err := s.db.QueryRowxContext(ctx,
		"INSERT INTO creations (user_id, prompt, content, type, publish) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		c.UserID, c.Prompt, c.Content, c.Type, c.Publish,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return models.Creation{}, fmt.Errorf("failed to insert creation: %w", err)
	}
	if c.Likes == nil {
		c.Likes = pq.StringArray{}
	}
	return c, nil
}

// ListByUser returns every creation of userID, oldest first.
func (s *CreationStore) ListByUser(ctx context.Context, userID string) ([]models.Creation, error) {
	creations := []models.Creation{}
	err := s.db.SelectContext(ctx, &creations,
		"SELECT "+creationColumns+" FROM creations WHERE user_id = $1 ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creations: %w", err)
	}
	return creations, nil
}

// ListPublished returns the community feed, newest first.
func (s *CreationStore) ListPublished(ctx context.Context) ([]models.Creation, error) {
	creations := []models.Creation{}
	err := s.db.SelectContext(ctx, &creations,
		"SELECT "+creationColumns+" FROM creations WHERE publish = true ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list published creations: %w", err)
	}
	return creations, nil
}

// ToggleLike adds userID to the likes of creation id, or removes it if it is
// already there. The row is locked for the read-modify-write.
func (s *CreationStore) ToggleLike(ctx context.Context, id int, userID string) (bool, []string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var likes pq.StringArray
	if err := tx.GetContext(ctx, &likes, "SELECT likes FROM creations WHERE id = $1 FOR UPDATE", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, ErrCreationNotFound
		}
		return false, nil, fmt.Errorf("failed to load likes: %w", err)
	}

	updated, liked := toggle(likes, userID)
	if _, err := tx.ExecContext(ctx, "UPDATE creations SET likes = $1 WHERE id = $2", updated, id); err != nil {
		return false, nil, fmt.Errorf("failed to update likes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("failed to commit like: %w", err)
	}
	return liked, updated, nil
}

func toggle(likes []string, userID string) (pq.StringArray, bool) {
	out := pq.StringArray{}
	found := false
	for _, u := range likes {
		if u == userID {
			found = true
			continue
		}
		out = append(out, u)
	}
	if !found {
		out = append(out, userID)
	}
	return out, !found
}
