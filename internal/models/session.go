package models

import "time"

type Session struct {
	ID      int64     `db:"id"`
	UserID  int64     `db:"user_id"`
	UUID    string    `db:"uuid"`
	Expires time.Time `db:"expires"`
}
