package models

// Group — сообщество, к которому может относиться пост.
type Group struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Slug        string `db:"slug"`
	Description string `db:"description"`
}

func (g Group) String() string { return g.Title }
