package model

import (
	"strings"
	"time"
)

// Countdown and purge windows. The countdown starts when both participants
// have sent their first message; the purge line is a fixed 24h past expiry.
const (
	CountdownDuration = 15 * time.Minute
	PurgeTTL          = 24 * time.Hour
)

// Stored status values. The backing store holds these as free text, so
// comparisons are case-insensitive.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusDeleted  = "deleted"
	StatusExpired  = "expired"
)

// Phase is the derived lifecycle phase of a match. It is never stored;
// every operation recomputes it from the persisted fields, so it cannot
// drift out of sync with the record.
type Phase string

const (
	PhaseCreated   Phase = "created"
	PhaseCountdown Phase = "countdown"
	PhaseGrace     Phase = "grace"
	PhasePurged    Phase = "purged"
	PhaseDisabled  Phase = "disabled"
)

// Side identifies which participant of a match a join key belongs to.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Match is the normalized view of one record in the backing store.
// RecordRef is the provider's record handle and is required for patches.
type Match struct {
	RecordRef   string     `db:"id" json:"-"`
	MatchID     string     `db:"match_id" json:"match_id"`
	Status      string     `db:"status" json:"status"`
	AJoinKey    string     `db:"a_join_key" json:"-"`
	BJoinKey    string     `db:"b_join_key" json:"-"`
	AUserID     string     `db:"a_user_id" json:"a_user_id"`
	BUserID     string     `db:"b_user_id" json:"b_user_id"`
	ChannelType string     `db:"channel_type" json:"channel_type"`
	ChannelID   string     `db:"channel_id" json:"channel_id"`
	ASentFirst  bool       `db:"a_sent_first" json:"a_sent_first"`
	BSentFirst  bool       `db:"b_sent_first" json:"b_sent_first"`
	StartedAt   *time.Time `db:"started_at" json:"started_at"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// CreateMatchParams carries the full field set for a new record.
type CreateMatchParams struct {
	MatchID     string
	Status      string
	AJoinKey    string
	BJoinKey    string
	AUserID     string
	BUserID     string
	ChannelType string
	ChannelID   string
}

// MatchPatch is a partial update. Nil fields are left untouched, so a
// patch never clobbers values it does not name.
type MatchPatch struct {
	ASentFirst *bool
	BSentFirst *bool
	StartedAt  *time.Time
	ExpiresAt  *time.Time
}

// Snapshot is the progress view returned to state pollers. Timestamps are
// epoch milliseconds on the wire, matching what countdown clients expect.
type Snapshot struct {
	MatchID    string `json:"match_id"`
	UserAID    string `json:"user_a_id"`
	UserBID    string `json:"user_b_id"`
	ASentFirst bool   `json:"a_sent_first"`
	BSentFirst bool   `json:"b_sent_first"`
	StartedAt  *int64 `json:"started_at"`
	ExpiresAt  *int64 `json:"expires_at"`
}

// Snapshot builds the poller view of the match.
func (m *Match) Snapshot() *Snapshot {
	return &Snapshot{
		MatchID:    m.MatchID,
		UserAID:    m.AUserID,
		UserBID:    m.BUserID,
		ASentFirst: m.ASentFirst,
		BSentFirst: m.BSentFirst,
		StartedAt:  toMillis(m.StartedAt),
		ExpiresAt:  toMillis(m.ExpiresAt),
	}
}

// Expired reports whether the countdown has run out as of now. A snapshot
// without an expiry can never be expired.
func (s *Snapshot) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && *s.ExpiresAt <= now.UnixMilli()
}

func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Purged reports whether the hard-deletion line (expiry + 24h) has passed.
// Before expires_at is ever set this can never trigger.
func Purged(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && now.After(expiresAt.Add(PurgeTTL))
}

// NormalizeStatus lowercases and trims a stored status value.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// Classify derives the lifecycle phase from the stored fields. An
// administrative disabled/deleted status pre-empts everything else; past
// that, the phase is a pure function of the two timestamps.
func Classify(status string, startedAt, expiresAt *time.Time, now time.Time) Phase {
	switch NormalizeStatus(status) {
	case StatusDisabled, StatusDeleted:
		return PhaseDisabled
	}

	if Purged(expiresAt, now) {
		return PhasePurged
	}
	if expiresAt != nil && !now.Before(*expiresAt) {
		return PhaseGrace
	}
	if NormalizeStatus(status) == StatusExpired {
		return PhaseGrace
	}
	if startedAt != nil {
		return PhaseCountdown
	}
	return PhaseCreated
}
