// Package auth implements the credential manager: the OAuth2 device-code
// flow, the persisted token cache, and coalesced silent refresh. Every
// remote call in the application is gated by an access token obtained here.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/aussiephantom/blinkapp-desktop/internal/client/models"
	"github.com/aussiephantom/blinkapp-desktop/internal/common"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

// PromptFunc surfaces the device-code verification URL and user code to the
// user. The presentation layer decides how (console, dialog, notification).
type PromptFunc func(verificationURL, userCode string)

// Manager owns the single cached Credential of the desktop session.
//
// Contract:
//   - Authenticate runs the interactive device-code flow.
//   - AccessToken returns a valid token, silently refreshing when needed;
//     it never starts an interactive flow.
//   - CheckExistingAuth restores a persisted session without prompting.
//   - SignOut drops the persisted and in-memory session.
//
// Concurrent AccessToken calls while the token is expired are coalesced:
// at most one refresh is in flight and all callers share its outcome.
type Manager struct {
	oauth  *oauth2.Config
	cache  TokenCache
	log    logging.Logger
	prompt PromptFunc

	// copyCode is swappable for tests; clipboard access is best-effort.
	copyCode func(string) error
	now      func() time.Time

	mu       sync.Mutex
	token    *oauth2.Token
	cred     *models.Credential
	inflight *refreshCall
}

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Options configures a Manager.
type Options struct {
	ClientID      string
	DeviceAuthURL string
	TokenURL      string
	Scopes        []string
	Cache         TokenCache
	Logger        logging.Logger
	Prompt        PromptFunc
}

// NewManager constructs a Manager from the given options.
func NewManager(opts Options) *Manager {
	prompt := opts.Prompt
	if prompt == nil {
		prompt = func(string, string) {}
	}
	return &Manager{
		oauth: &oauth2.Config{
			ClientID: opts.ClientID,
			Scopes:   opts.Scopes,
			Endpoint: oauth2.Endpoint{
				DeviceAuthURL: opts.DeviceAuthURL,
				TokenURL:      opts.TokenURL,
			},
		},
		cache:    opts.Cache,
		log:      opts.Logger,
		prompt:   prompt,
		copyCode: clipboard.WriteAll,
		now:      time.Now,
	}
}

// Authenticate runs the device-code flow: it obtains a verification URL and
// user code, copies the code to the clipboard as a convenience, surfaces both
// via the prompt callback, and blocks until the identity provider completes
// the flow or ctx is cancelled.
func (m *Manager) Authenticate(ctx context.Context) (*models.Credential, error) {
	da, err := m.oauth.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: device auth request: %w", common.ErrAuthProvider, err)
	}

	if err := m.copyCode(da.UserCode); err != nil {
		m.log.Debug(ctx, "clipboard copy failed", "error", err)
	}
	m.prompt(da.VerificationURI, da.UserCode)

	tok, err := m.oauth.DeviceAccessToken(ctx, da)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrAuthCancelled
		}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			switch rerr.ErrorCode {
			case "authorization_declined", "access_denied", "expired_token":
				return nil, common.ErrAuthCancelled
			}
		}
		return nil, fmt.Errorf("%w: %w", common.ErrAuthProvider, err)
	}

	cred := m.credentialFromToken(tok)

	m.mu.Lock()
	m.token = tok
	m.cred = cred
	m.mu.Unlock()

	if err := m.cache.Save(&session{
		Token:       tok,
		AccountID:   cred.AccountID,
		DisplayName: cred.DisplayName,
		Email:       cred.Email,
	}); err != nil {
		m.log.Warn(ctx, "failed to persist token cache", "error", err)
	}

	m.log.Info(ctx, "authenticated", "account", cred.AccountID, "email", cred.Email)
	return cred, nil
}

// AccessToken returns the cached access token while it is still valid;
// otherwise it attempts a single coalesced silent refresh. A refresh failure
// surfaces ErrReauthRequired and the caller must run Authenticate again.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()

	if m.token == nil {
		m.mu.Unlock()
		return "", common.ErrReauthRequired
	}

	if m.cred.Valid(m.now()) {
		tok := m.cred.AccessToken
		m.mu.Unlock()
		return tok, nil
	}

	// Join a refresh already in flight rather than starting a second one.
	if m.inflight != nil {
		call := m.inflight
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	m.inflight = call
	stale := m.token
	m.mu.Unlock()

	tok, err := m.oauth.TokenSource(ctx, stale).Token()

	m.mu.Lock()
	m.inflight = nil
	if err != nil {
		m.mu.Unlock()
		call.err = fmt.Errorf("%w: silent refresh: %w", common.ErrReauthRequired, err)
		close(call.done)
		return "", call.err
	}

	m.token = tok
	m.cred = m.mergeCredential(m.cred, tok)
	cred := *m.cred
	m.mu.Unlock()

	if serr := m.cache.Save(&session{
		Token:       tok,
		AccountID:   cred.AccountID,
		DisplayName: cred.DisplayName,
		Email:       cred.Email,
	}); serr != nil {
		m.log.Warn(ctx, "failed to persist refreshed token", "error", serr)
	}

	call.token = tok.AccessToken
	close(call.done)
	return tok.AccessToken, nil
}

// CheckExistingAuth attempts a silent session restore from the persisted
// token cache. It returns (nil, nil) when no usable session exists; it never
// prompts the user.
func (m *Manager) CheckExistingAuth(ctx context.Context) (*models.Credential, error) {
	s, err := m.cache.Load()
	if err != nil {
		m.log.Warn(ctx, "failed to load token cache", "error", err)
		return nil, nil
	}
	if s == nil || s.Token == nil {
		return nil, nil
	}

	m.mu.Lock()
	m.token = s.Token
	m.cred = &models.Credential{
		AccountID:   s.AccountID,
		DisplayName: s.DisplayName,
		Email:       s.Email,
		AccessToken: s.Token.AccessToken,
		ExpiresAt:   s.Token.Expiry,
	}
	m.mu.Unlock()

	if _, err := m.AccessToken(ctx); err != nil {
		m.mu.Lock()
		m.token = nil
		m.cred = nil
		m.mu.Unlock()
		return nil, nil
	}

	m.mu.Lock()
	cred := *m.cred
	m.mu.Unlock()
	return &cred, nil
}

// SignOut removes the persisted session and clears the in-memory credential.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.token = nil
	m.cred = nil
	m.mu.Unlock()

	if err := m.cache.Clear(); err != nil {
		return fmt.Errorf("clear token cache: %w", err)
	}
	m.log.Info(ctx, "signed out")
	return nil
}

// Credential returns a copy of the current credential, or nil when signed out.
func (m *Manager) Credential() *models.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil
	}
	cred := *m.cred
	return &cred
}

// credentialFromToken builds a Credential from the token, preferring the
// identity claims of an accompanying ID token when present. The ID token is
// parsed without signature verification: it travelled over the same TLS
// channel as the access token and is used for display only.
func (m *Manager) credentialFromToken(tok *oauth2.Token) *models.Credential {
	cred := &models.Credential{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return cred
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return cred
	}

	if v, ok := claims["oid"].(string); ok && v != "" {
		cred.AccountID = v
	} else if v, ok := claims["sub"].(string); ok {
		cred.AccountID = v
	}
	if v, ok := claims["name"].(string); ok {
		cred.DisplayName = v
	}
	if v, ok := claims["preferred_username"].(string); ok && v != "" {
		cred.Email = v
	} else if v, ok := claims["email"].(string); ok {
		cred.Email = v
	}
	return cred
}

// mergeCredential carries identity fields over a refresh, which replaces
// only the access token and expiry.
func (m *Manager) mergeCredential(old *models.Credential, tok *oauth2.Token) *models.Credential {
	cred := m.credentialFromToken(tok)
	if old == nil {
		return cred
	}
	if cred.AccountID == "" {
		cred.AccountID = old.AccountID
	}
	if cred.DisplayName == "" {
		cred.DisplayName = old.DisplayName
	}
	if cred.Email == "" {
		cred.Email = old.Email
	}
	return cred
}
