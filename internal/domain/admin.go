package domain

import "time"

// Admin is a researcher account allowed to operate the instrument.
type Admin struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
