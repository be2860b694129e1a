package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

// session is the persisted shape of the token cache: the OAuth2 token plus
// the identity claims extracted at authentication time.
type session struct {
	Token       *oauth2.Token `json:"token"`
	AccountID   string        `json:"account_id"`
	DisplayName string        `json:"display_name"`
	Email       string        `json:"email"`
}

// TokenCache persists the single active session across process restarts.
type TokenCache interface {
	Save(s *session) error
	Load() (*session, error)
	Clear() error
}

// FileTokenCache stores the session as a JSON file with owner-only
// permissions. The path normally lives in the user's config directory, where
// the OS protects it at rest.
type FileTokenCache struct {
	path string
}

// NewFileTokenCache returns a cache backed by the file at path.
func NewFileTokenCache(path string) *FileTokenCache {
	return &FileTokenCache{path: path}
}

func (c *FileTokenCache) Save(s *session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}

// Load returns the persisted session, or (nil, nil) when no session exists.
func (c *FileTokenCache) Load() (*session, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token cache: %w", err)
	}

	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode token cache: %w", err)
	}
	return &s, nil
}

func (c *FileTokenCache) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token cache: %w", err)
	}
	return nil
}
