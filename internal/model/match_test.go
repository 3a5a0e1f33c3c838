package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	started := now.Add(-5 * time.Minute)
	running := now.Add(10 * time.Minute)
	justPast := now.Add(-time.Minute)
	longPast := now.Add(-25 * time.Hour)

	tests := []struct {
		name      string
		status    string
		startedAt *time.Time
		expiresAt *time.Time
		want      Phase
	}{
		{"fresh match", StatusActive, nil, nil, PhaseCreated},
		{"countdown running", StatusActive, &started, &running, PhaseCountdown},
		{"expiry just passed", StatusActive, &started, &justPast, PhaseGrace},
		{"stored expired status without timestamps", "Expired", nil, nil, PhaseGrace},
		{"past the purge line", StatusActive, &started, &longPast, PhasePurged},
		{"disabled beats purge", "Disabled", &started, &longPast, PhaseDisabled},
		{"deleted beats everything", "deleted", nil, nil, PhaseDisabled},
		{"status is case and whitespace insensitive", "  ACTIVE ", nil, nil, PhaseCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status, tt.startedAt, tt.expiresAt, now))
		})
	}
}

func TestPurged(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no expiry can never purge", func(t *testing.T) {
		assert.False(t, Purged(nil, now))
	})

	t.Run("inside the 24h window", func(t *testing.T) {
		exp := now.Add(-23 * time.Hour)
		assert.False(t, Purged(&exp, now))
	})

	t.Run("exactly at the line is not yet purged", func(t *testing.T) {
		exp := now.Add(-PurgeTTL)
		assert.False(t, Purged(&exp, now))
	})

	t.Run("past the line", func(t *testing.T) {
		exp := now.Add(-PurgeTTL - time.Second)
		assert.True(t, Purged(&exp, now))
	})
}

func TestSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("carries progress and millisecond timestamps", func(t *testing.T) {
		started := now.Add(-time.Minute)
		expires := started.Add(CountdownDuration)
		m := &Match{
			MatchID:    "m_1_abc",
			AUserID:    "match_m_1_abc_a",
			BUserID:    "match_m_1_abc_b",
			ASentFirst: true,
			StartedAt:  &started,
			ExpiresAt:  &expires,
		}

		snap := m.Snapshot()
		assert.Equal(t, "m_1_abc", snap.MatchID)
		assert.True(t, snap.ASentFirst)
		assert.False(t, snap.BSentFirst)
		require.NotNil(t, snap.StartedAt)
		assert.Equal(t, started.UnixMilli(), *snap.StartedAt)
		require.NotNil(t, snap.ExpiresAt)
		assert.Equal(t, expires.UnixMilli(), *snap.ExpiresAt)
	})

	t.Run("nil timestamps stay nil", func(t *testing.T) {
		snap := (&Match{MatchID: "m_2"}).Snapshot()
		assert.Nil(t, snap.StartedAt)
		assert.Nil(t, snap.ExpiresAt)
	})

	t.Run("expiry check", func(t *testing.T) {
		past := now.Add(-time.Second).UnixMilli()
		future := now.Add(time.Second).UnixMilli()

		assert.True(t, (&Snapshot{ExpiresAt: &past}).Expired(now))
		assert.False(t, (&Snapshot{ExpiresAt: &future}).Expired(now))
		assert.False(t, (&Snapshot{}).Expired(now))
	})
}
