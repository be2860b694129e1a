package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusProcessable(t *testing.T) {
	assert.True(t, StatusAwaitingAssignment.Processable())
	assert.True(t, StatusFailed.Processable())
	assert.False(t, StatusDetected.Processable())
	assert.False(t, StatusUploading.Processable())
	assert.False(t, StatusAssociating.Processable())
	assert.False(t, StatusCompleted.Processable())
}

func TestQueueEntryHasTag(t *testing.T) {
	e := &QueueEntry{TagIDs: []int{1, 5}}
	assert.True(t, e.HasTag(5))
	assert.False(t, e.HasTag(2))
}

func TestCredentialValid(t *testing.T) {
	now := time.Now()

	var nilCred *Credential
	assert.False(t, nilCred.Valid(now))

	c := &Credential{AccessToken: "tok", ExpiresAt: now.Add(time.Minute)}
	assert.True(t, c.Valid(now))
	assert.False(t, c.Valid(now.Add(2*time.Minute)))

	empty := &Credential{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, empty.Valid(now))
}
