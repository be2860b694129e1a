// Package common defines shared constants and sentinel errors used across
// the Blink desktop client. Callers should use errors.Is to match these
// values; failures that carry extra data (HTTP status, remote detail) are
// typed errors in their owning packages and wrap one of these sentinels.
package common

import "errors"

var (
	// Auth lifecycle errors.
	ErrAuthCancelled  = errors.New("authentication cancelled")
	ErrAuthProvider   = errors.New("identity provider error")
	ErrReauthRequired = errors.New("reauthentication required")

	// Remote drive errors.
	ErrNoDriveFound      = errors.New("no drive found")
	ErrUploadFailed      = errors.New("upload failed")
	ErrFolderResolution  = errors.New("folder resolution failed")
	ErrAssociationFailed = errors.New("tag association failed")

	// Local persistence / file-system degraded mode.
	ErrLocalIO = errors.New("local i/o failed")

	// Queue errors.
	ErrEntryNotFound = errors.New("queue entry not found")
	ErrEntryNotReady = errors.New("queue entry not ready for processing")
	ErrAlreadyQueued = errors.New("file already queued")
)
