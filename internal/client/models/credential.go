package models

import "time"

// Credential is the single active identity of the desktop session.
// At most one credential is cached at a time; a silent refresh replaces
// AccessToken and ExpiresAt in place.
type Credential struct {
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the access token is present and not yet expired.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt)
}
