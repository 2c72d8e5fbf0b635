package models

import (
	"time"

	"github.com/lib/pq"
)

type CreationType string

const (
	CreationArticle      CreationType = "article"
	CreationBlogTitle    CreationType = "blog-title"
	CreationImage        CreationType = "image"
	CreationResumeReview CreationType = "resume-review"
)

// Creation is one row of the append-only creations log.
type Creation struct {
	ID        int            `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Prompt    string         `json:"prompt" db:"prompt"`
	Content   string         `json:"content" db:"content"`
	Type      CreationType   `json:"type" db:"type"`
	Publish   bool           `json:"publish" db:"publish"`
	Likes     pq.StringArray `json:"likes" db:"likes"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
