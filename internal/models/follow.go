package models

// Follow — подписка пользователя UserID на автора AuthorID.
type Follow struct {
	ID       int64 `db:"id"`
	UserID   int64 `db:"user_id"`
	AuthorID int64 `db:"author_id"`
}
