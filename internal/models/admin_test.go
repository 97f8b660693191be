package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockedEvaluatesLazily(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	admin := Admin{}
	require.False(t, admin.Locked(now))

	future := now.Add(time.Hour)
	admin.LockedUntil = &future
	require.True(t, admin.Locked(now))

	// An expired timestamp stays on the record but no longer locks.
	past := now.Add(-time.Second)
	admin.LockedUntil = &past
	require.False(t, admin.Locked(now))

	// Exactly at expiry the lock no longer holds.
	admin.LockedUntil = &now
	require.False(t, admin.Locked(now))
}
