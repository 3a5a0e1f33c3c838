package repository

import (
	"context"

	"github.com/quarterchat/match-server-go/internal/model"
)

// MatchRepository is the narrow contract the lifecycle engine needs from
// the record store: exact lookup, insert, partial update. Find returns
// (nil, nil) when no record exists for the id.
type MatchRepository interface {
	FindByMatchID(ctx context.Context, matchID string) (*model.Match, error)
	Create(ctx context.Context, params model.CreateMatchParams) (*model.Match, error)
	Patch(ctx context.Context, recordRef string, patch model.MatchPatch) (*model.Match, error)
}
