package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/quarterchat/match-server-go/internal/airtable"
	"github.com/quarterchat/match-server-go/internal/model"
)

// Candidate column names per logical field, tried in priority order. The
// base predates this server and some columns exist under localized or
// abbreviated spellings; the lists stay explicit because the schema is
// outside this system's control.
var (
	statusFields      = []string{"status", "상태"}
	expiresAtFields   = []string{"expires_at", "만료시각", "만료시간"}
	startedAtFields   = []string{"started_at"}
	aJoinKeyFields    = []string{"a_join_key", "a_joinkey", "a_key"}
	bJoinKeyFields    = []string{"b_join_key", "b_joinkey", "b_key"}
	aUserIDFields     = []string{"a_user_id", "user_a_id"}
	bUserIDFields     = []string{"b_user_id", "user_b_id"}
	channelTypeFields = []string{"channel_type"}
	channelIDFields   = []string{"channel_id"}
	aSentFirstFields  = []string{"a_sent_first"}
	bSentFirstFields  = []string{"b_sent_first"}
)

type airtableMatchRepo struct {
	client *airtable.Client
}

func NewAirtableMatchRepository(client *airtable.Client) MatchRepository {
	return &airtableMatchRepo{client: client}
}

func (r *airtableMatchRepo) FindByMatchID(ctx context.Context, matchID string) (*model.Match, error) {
	rec, err := r.client.FindFirstByField(ctx, "match_id", matchID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return normalizeRecord(rec, matchID), nil
}

func (r *airtableMatchRepo) Create(ctx context.Context, params model.CreateMatchParams) (*model.Match, error) {
	rec, err := r.client.CreateRecord(ctx, map[string]any{
		"match_id":     params.MatchID,
		"status":       params.Status,
		"a_join_key":   params.AJoinKey,
		"b_join_key":   params.BJoinKey,
		"a_user_id":    params.AUserID,
		"b_user_id":    params.BUserID,
		"channel_type": params.ChannelType,
		"channel_id":   params.ChannelID,
	})
	if err != nil {
		return nil, err
	}
	return normalizeRecord(rec, params.MatchID), nil
}

func (r *airtableMatchRepo) Patch(ctx context.Context, recordRef string, patch model.MatchPatch) (*model.Match, error) {
	fields := make(map[string]any)
	if patch.ASentFirst != nil {
		fields["a_sent_first"] = *patch.ASentFirst
	}
	if patch.BSentFirst != nil {
		fields["b_sent_first"] = *patch.BSentFirst
	}
	if patch.StartedAt != nil {
		fields["started_at"] = patch.StartedAt.UTC().Format(time.RFC3339)
	}
	if patch.ExpiresAt != nil {
		fields["expires_at"] = patch.ExpiresAt.UTC().Format(time.RFC3339)
	}

	rec, err := r.client.PatchRecord(ctx, recordRef, fields)
	if err != nil {
		return nil, err
	}
	return normalizeRecord(rec, ""), nil
}

// normalizeRecord maps raw provider fields onto the match model, applying
// the candidate-name priority and the historical defaults for rows created
// before the channel columns existed.
func normalizeRecord(rec *airtable.Record, requestedID string) *model.Match {
	f := rec.Fields

	matchID := airtable.FieldString(f, "match_id")
	if matchID == "" {
		matchID = requestedID
	}

	m := &model.Match{
		RecordRef:   rec.ID,
		MatchID:     matchID,
		Status:      airtable.FieldString(f, statusFields...),
		AJoinKey:    airtable.FieldString(f, aJoinKeyFields...),
		BJoinKey:    airtable.FieldString(f, bJoinKeyFields...),
		AUserID:     airtable.FieldString(f, aUserIDFields...),
		BUserID:     airtable.FieldString(f, bUserIDFields...),
		ChannelType: airtable.FieldString(f, channelTypeFields...),
		ChannelID:   airtable.FieldString(f, channelIDFields...),
		ASentFirst:  airtable.FieldBool(f, aSentFirstFields...),
		BSentFirst:  airtable.FieldBool(f, bSentFirstFields...),
		StartedAt:   airtable.FieldTime(f, startedAtFields...),
		ExpiresAt:   airtable.FieldTime(f, expiresAtFields...),
	}

	if m.AUserID == "" {
		m.AUserID = fmt.Sprintf("match_%s_a", m.MatchID)
	}
	if m.BUserID == "" {
		m.BUserID = fmt.Sprintf("match_%s_b", m.MatchID)
	}
	if m.ChannelType == "" {
		m.ChannelType = "messaging"
	}
	if m.ChannelID == "" {
		m.ChannelID = fmt.Sprintf("match_%s", m.MatchID)
	}

	return m
}
