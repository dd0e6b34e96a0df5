package domain

import "time"

// Claims is the identity carried by a bearer token.
type Claims struct {
	TokenID   string
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
