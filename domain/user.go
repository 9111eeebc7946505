// Package domain contains core concepts of the messaging system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

const (
	UsernameMinLen = 3
	UsernameMaxLen = 10
)

// User is an identity referenced everywhere else by ID, never embedded.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}
