// Package models defines the entities persisted by ratingkeeper.
package models

import "time"

// Account is a registered credential holder. SecretHash is only populated
// when the account is read for verification and must never leave the
// service layer.
type Account struct {
	ID         int64
	UserName   string
	SecretHash string
	CreatedAt  time.Time
}
