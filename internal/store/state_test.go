package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_SetAndGet(t *testing.T) {
	db := setupStoreTestDB(t)
	svc := NewStateStore(db)

	_, found, err := svc.Get("client-1", 1, "otp-code")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.Set("client-1", 1, "otp-code", "ABC123"))

	value, found, err := svc.Get("client-1", 1, "otp-code")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ABC123", value)

	// Last write wins.
	require.NoError(t, svc.Set("client-1", 1, "otp-code", "XYZ789"))
	value, _, err = svc.Get("client-1", 1, "otp-code")
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", value)

	// Scoped per client and step.
	_, found, err = svc.Get("client-2", 1, "otp-code")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = svc.Get("client-1", 2, "otp-code")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStateStore_FindByValue(t *testing.T) {
	db := setupStoreTestDB(t)
	svc := NewStateStore(db)

	require.NoError(t, svc.Set("client-1", 3, "approval-token", "tok-aaa"))

	clientID, stepID, found, err := svc.FindByValue("approval-token", "tok-aaa")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "client-1", clientID)
	assert.Equal(t, uint(3), stepID)

	_, _, found, err = svc.FindByValue("approval-token", "tok-missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStateStore_TouchIfOlder(t *testing.T) {
	db := setupStoreTestDB(t)
	svc := NewStateStore(db)

	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	cooldown := 5 * time.Minute

	touched, err := svc.TouchIfOlder("client-1", 1, "otp-sent-at", now, cooldown)
	require.NoError(t, err)
	assert.True(t, touched)

	// Inside the cooldown the stored timestamp is left alone.
	touched, err = svc.TouchIfOlder("client-1", 1, "otp-sent-at", now.Add(time.Minute), cooldown)
	require.NoError(t, err)
	assert.False(t, touched)

	value, _, err := svc.Get("client-1", 1, "otp-sent-at")
	require.NoError(t, err)
	assert.Equal(t, now.Format(time.RFC3339), value)

	// Past the cooldown the timestamp advances again.
	later := now.Add(cooldown + time.Second)
	touched, err = svc.TouchIfOlder("client-1", 1, "otp-sent-at", later, cooldown)
	require.NoError(t, err)
	assert.True(t, touched)

	value, _, err = svc.Get("client-1", 1, "otp-sent-at")
	require.NoError(t, err)
	assert.Equal(t, later.Format(time.RFC3339), value)
}

func TestStateStore_TouchIfOlderUnparseableValue(t *testing.T) {
	db := setupStoreTestDB(t)
	svc := NewStateStore(db)

	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Set("client-1", 1, "otp-sent-at", "garbage"))

	// An unreadable timestamp never wedges the cooldown shut.
	touched, err := svc.TouchIfOlder("client-1", 1, "otp-sent-at", now, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, touched)
}
