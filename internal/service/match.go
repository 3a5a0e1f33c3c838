package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quarterchat/match-server-go/internal/config"
	apperrors "github.com/quarterchat/match-server-go/internal/errors"
	"github.com/quarterchat/match-server-go/internal/model"
	"github.com/quarterchat/match-server-go/internal/repository"
	"github.com/quarterchat/match-server-go/internal/util"
)

// ChannelEnsurer lazily provisions the chat provider channel bound to a
// match. Ensure must be idempotent: concurrent resolution by the same
// participant must not error.
type ChannelEnsurer interface {
	EnsureChannel(ctx context.Context, channelType, channelID, aUserID, bUserID string) error
}

// CreateResult is the only place both join keys ever travel together.
type CreateResult struct {
	MatchID  string `json:"match_id"`
	AJoinKey string `json:"a_join_key"`
	BJoinKey string `json:"b_join_key"`
	ALink    string `json:"a_link"`
	BLink    string `json:"b_link"`
}

// EntryResult identifies which participant a validated key belongs to and
// the channel it grants access to. It never carries the counterpart's key.
type EntryResult struct {
	MatchID     string
	Side        model.Side
	UserID      string
	AUserID     string
	BUserID     string
	ChannelType string
	ChannelID   string
}

// MatchService owns the match lifecycle: creation, entry validation,
// first-message bookkeeping, countdown activation and expiry
// classification. All state lives in the record store; every call
// recomputes the derived phase from the stored fields.
type MatchService struct {
	repo      repository.MatchRepository
	channels  ChannelEnsurer // optional
	appOrigin string
	now       func() time.Time
}

func NewMatchService(repo repository.MatchRepository, channels ChannelEnsurer, appOrigin string) *MatchService {
	return &MatchService{
		repo:      repo,
		channels:  channels,
		appOrigin: appOrigin,
		now:       time.Now,
	}
}

// CreateMatch provisions a fresh match: new id, two high-entropy join keys,
// participant ids derived from the match id, and an empty progress record.
func (s *MatchService) CreateMatch(ctx context.Context) (*CreateResult, error) {
	if s.repo == nil {
		return nil, apperrors.Configuration("record store is not configured")
	}

	suffix, err := util.RandomKey(config.MatchIDSuffixLength)
	if err != nil {
		return nil, apperrors.Internal("key generation failed").WithCause(err)
	}
	matchID := fmt.Sprintf("m_%d_%s", s.now().UnixMilli(), suffix)

	aKey, err := util.RandomKey(config.JoinKeyLength)
	if err != nil {
		return nil, apperrors.Internal("key generation failed").WithCause(err)
	}
	bKey, err := util.RandomKey(config.JoinKeyLength)
	if err != nil {
		return nil, apperrors.Internal("key generation failed").WithCause(err)
	}
	aJoinKey := "a_" + aKey
	bJoinKey := "b_" + bKey

	params := model.CreateMatchParams{
		MatchID:     matchID,
		Status:      model.StatusActive,
		AJoinKey:    aJoinKey,
		BJoinKey:    bJoinKey,
		AUserID:     fmt.Sprintf("match_%s_a", matchID),
		BUserID:     fmt.Sprintf("match_%s_b", matchID),
		ChannelType: "messaging",
		ChannelID:   fmt.Sprintf("match_%s", matchID),
	}

	if _, err := s.repo.Create(ctx, params); err != nil {
		return nil, s.storeError(err)
	}

	log.Info().
		Str("matchId", matchID).
		Str("aKey", util.MaskKey(aJoinKey)).
		Str("bKey", util.MaskKey(bJoinKey)).
		Msg("match created")

	return &CreateResult{
		MatchID:  matchID,
		AJoinKey: aJoinKey,
		BJoinKey: bJoinKey,
		ALink:    s.JoinLink(matchID, aJoinKey),
		BLink:    s.JoinLink(matchID, bJoinKey),
	}, nil
}

// JoinLink builds the canonical path-form join link. Path segments survive
// link-preview rewriting in chat/SMS clients where query strings do not.
func (s *MatchService) JoinLink(matchID, key string) string {
	return fmt.Sprintf("%s/join/%s/%s", s.appOrigin, matchID, key)
}

// ResolveEntry decides whether the bearer of key may enter the match, and
// as whom. Checks run in a fixed order; the first failure wins: missing
// input, unknown match, administrative termination, hard deletion, expiry,
// key mismatch. On success the provider channel is ensured lazily.
func (s *MatchService) ResolveEntry(ctx context.Context, matchID, key string) (*EntryResult, error) {
	if matchID == "" || key == "" {
		return nil, apperrors.InvalidKey("match_id and key are required")
	}

	m, err := s.repo.FindByMatchID(ctx, matchID)
	if err != nil {
		return nil, s.storeError(err)
	}
	if m == nil {
		return nil, apperrors.NotFound("match")
	}

	now := s.now()
	status := model.NormalizeStatus(m.Status)

	if status == model.StatusDeleted || status == model.StatusDisabled {
		return nil, apperrors.Disabled()
	}
	if model.Purged(m.ExpiresAt, now) {
		return nil, apperrors.Gone("match was deleted 24 hours after the conversation ended")
	}
	if status == model.StatusExpired || (m.ExpiresAt != nil && now.After(*m.ExpiresAt)) {
		return nil, apperrors.Expired()
	}

	var side model.Side
	var userID string
	switch {
	case util.ConstantTimeEqual(key, m.AJoinKey):
		side, userID = model.SideA, m.AUserID
	case util.ConstantTimeEqual(key, m.BJoinKey):
		side, userID = model.SideB, m.BUserID
	default:
		return nil, apperrors.InvalidKey("join key does not match this match")
	}

	if s.channels != nil {
		if err := s.channels.EnsureChannel(ctx, m.ChannelType, m.ChannelID, m.AUserID, m.BUserID); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Str("matchId", matchID).
		Str("side", string(side)).
		Msg("entry resolved")

	return &EntryResult{
		MatchID:     m.MatchID,
		Side:        side,
		UserID:      userID,
		AUserID:     m.AUserID,
		BUserID:     m.BUserID,
		ChannelType: m.ChannelType,
		ChannelID:   m.ChannelID,
	}, nil
}

// GetState returns the progress snapshot for the poller. An unknown match
// yields (nil, nil); a match past the hard-deletion line yields the
// terminal GONE error so clients stop polling for good. No key is required
// here: callers only learn ids and timestamps, never keys or tokens.
func (s *MatchService) GetState(ctx context.Context, matchID string) (*model.Snapshot, error) {
	if matchID == "" {
		return nil, apperrors.MissingRequired("match_id")
	}

	m, err := s.repo.FindByMatchID(ctx, matchID)
	if err != nil {
		return nil, s.storeError(err)
	}
	if m == nil {
		return nil, nil
	}

	if model.Purged(m.ExpiresAt, s.now()) {
		return nil, apperrors.Gone("match was deleted 24 hours after the conversation ended")
	}

	return m.Snapshot(), nil
}

// RecordSend notes that a participant sent their first message. The flag
// set is idempotent; when the second flag flips and no countdown exists
// yet, started_at/expires_at are written together in the same patch.
// Writes past the hard-deletion line are always rejected.
func (s *MatchService) RecordSend(ctx context.Context, matchID, participantID string) (*model.Snapshot, error) {
	if matchID == "" {
		return nil, apperrors.MissingRequired("match_id")
	}
	if participantID == "" {
		return nil, apperrors.MissingRequired("user_id")
	}

	m, err := s.repo.FindByMatchID(ctx, matchID)
	if err != nil {
		return nil, s.storeError(err)
	}
	if m == nil {
		return nil, apperrors.NotFound("match")
	}

	now := s.now()
	if model.Purged(m.ExpiresAt, now) {
		return nil, apperrors.Gone("match can no longer be updated")
	}

	isA := participantID == m.AUserID
	isB := participantID == m.BUserID
	if !isA && !isB {
		return nil, apperrors.Forbidden("user_id is not a member of this match")
	}

	// Patch only the sender's own flag so a concurrent send from the other
	// side is never overwritten with a stale read.
	var patch model.MatchPatch
	sent := true
	if isA {
		patch.ASentFirst = &sent
	} else {
		patch.BSentFirst = &sent
	}

	aSent := m.ASentFirst || isA
	bSent := m.BSentFirst || isB
	if aSent && bSent && m.StartedAt == nil {
		started := now
		expires := now.Add(model.CountdownDuration)
		patch.StartedAt = &started
		patch.ExpiresAt = &expires
	}

	updated, err := s.repo.Patch(ctx, m.RecordRef, patch)
	if err != nil {
		return nil, s.storeError(err)
	}
	if updated == nil {
		return nil, apperrors.NotFound("match")
	}

	if patch.StartedAt != nil && updated.StartedAt != nil {
		log.Info().
			Str("matchId", matchID).
			Time("startedAt", *updated.StartedAt).
			Time("expiresAt", *updated.ExpiresAt).
			Msg("countdown started")
	}

	return updated.Snapshot(), nil
}

// storeError passes classified errors through and wraps raw driver errors
// (the Postgres backend) as upstream failures.
func (s *MatchService) storeError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Upstream("record store", 0, err)
}
