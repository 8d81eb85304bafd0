package model

import "time"

type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Demo      bool      `db:"is_demo" json:"isDemo"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UserSession is a browser session. Only the SHA-256 hash of the session
// token is stored.
type UserSession struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
