package models

import "time"

type Comment struct {
	ID       int64     `db:"id"`
	PostID   int64     `db:"post_id"`
	AuthorID int64     `db:"author_id"`
	Text     string    `db:"text"`
	Created  time.Time `db:"created"`
	Author   string    `db:"author_username"` // Username of the author
}
