package models

import "time"

type RefreshToken struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	Expires   time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
