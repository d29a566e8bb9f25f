package models

// User — автор постов и комментариев.
type User struct {
	ID       int64  `db:"id"`
	Email    string `db:"email"`
	Username string `db:"username"`
	Password string `db:"password"` // bcrypt hash, never rendered
}

func (u User) String() string { return u.Username }
