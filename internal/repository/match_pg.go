package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quarterchat/match-server-go/internal/model"
)

// PostgresMatchRepository backs matches with a local table instead of the
// hosted spreadsheet. Unlike the Airtable backend it supports a conditional
// update, so the countdown activation is guarded against the concurrent
// RecordSend race: `started_at` is written at most once even when both
// participants' sends patch simultaneously.
type PostgresMatchRepository struct {
	db *sqlx.DB
}

func NewPostgresMatchRepository(db *sqlx.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

func (r *PostgresMatchRepository) FindByMatchID(ctx context.Context, matchID string) (*model.Match, error) {
	var m model.Match
	err := r.db.GetContext(ctx, &m, `
		SELECT * FROM matches
		WHERE match_id = $1
	`, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresMatchRepository) Create(ctx context.Context, params model.CreateMatchParams) (*model.Match, error) {
	var m model.Match
	err := r.db.GetContext(ctx, &m, `
		INSERT INTO matches (
			id, match_id, status,
			a_join_key, b_join_key, a_user_id, b_user_id,
			channel_type, channel_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`,
		uuid.NewString(), params.MatchID, params.Status,
		params.AJoinKey, params.BJoinKey, params.AUserID, params.BUserID,
		params.ChannelType, params.ChannelID,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PostgresMatchRepository) Patch(ctx context.Context, recordRef string, patch model.MatchPatch) (*model.Match, error) {
	if patch.StartedAt != nil && patch.ExpiresAt != nil {
		var m model.Match
		err := r.db.GetContext(ctx, &m, `
			UPDATE matches SET
				a_sent_first = COALESCE($2, a_sent_first),
				b_sent_first = COALESCE($3, b_sent_first),
				started_at = $4,
				expires_at = $5
			WHERE id = $1 AND started_at IS NULL
			RETURNING *
		`, recordRef, patch.ASentFirst, patch.BSentFirst, patch.StartedAt, patch.ExpiresAt)
		if err == nil {
			return &m, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// A concurrent send already activated the countdown; fall through
		// and apply only the flags.
	}

	var m model.Match
	err := r.db.GetContext(ctx, &m, `
		UPDATE matches SET
			a_sent_first = COALESCE($2, a_sent_first),
			b_sent_first = COALESCE($3, b_sent_first)
		WHERE id = $1
		RETURNING *
	`, recordRef, patch.ASentFirst, patch.BSentFirst)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeletePurged removes rows whose hard-deletion line has passed. Every read
// of such a row already returns the terminal gone signal, so the sweep is
// pure storage reclamation.
func (r *PostgresMatchRepository) DeletePurged(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM matches
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`, now.Add(-model.PurgeTTL))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
