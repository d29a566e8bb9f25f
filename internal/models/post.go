package models

import (
	"database/sql"
	"time"
)

// LabelLength is the number of characters of a post's text used as its label.
const LabelLength = 15

type Post struct {
	ID       int64     `db:"id"`
	Text     string    `db:"text"`
	PubDate  time.Time `db:"pub_date"`
	AuthorID int64     `db:"author_id"`
	Image    string    `db:"image"` // storage key, e.g. posts/cat.gif; empty when absent

	GroupID sql.NullInt64 `db:"group_id"`

	// Filled by joins, not stored on the posts table.
	Author     string         `db:"author_username"`
	GroupSlug  sql.NullString `db:"group_slug"`
	GroupTitle sql.NullString `db:"group_title"`
}

// Label returns the first LabelLength characters of the text.
func (p Post) Label() string {
	r := []rune(p.Text)
	if len(r) > LabelLength {
		r = r[:LabelLength]
	}
	return string(r)
}

func (p Post) String() string { return p.Label() }

func (p Post) HasGroup() bool { return p.GroupID.Valid }
