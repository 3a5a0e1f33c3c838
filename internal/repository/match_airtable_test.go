package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterchat/match-server-go/internal/airtable"
	"github.com/quarterchat/match-server-go/internal/model"
)

func newAirtableRepo(t *testing.T, handler http.HandlerFunc) MatchRepository {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := airtable.NewClient(airtable.ClientConfig{
		Token:   "pat_test",
		BaseID:  "app_test",
		Table:   "matches",
		BaseURL: server.URL,
	})
	return NewAirtableMatchRepository(client)
}

func TestAirtableFindByMatchID(t *testing.T) {
	t.Run("normalizes localized and legacy column names", func(t *testing.T) {
		repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{{
					"id": "rec001",
					"fields": map[string]any{
						"match_id":  "m_1_abc",
						"상태":        "Disabled",
						"a_key":     "a_legacykey",
						"b_joinkey": "b_legacykey",
						"user_a_id": "legacy_a",
						"만료시각":      "2025-06-01T10:30:00Z",
					},
				}},
			})
		})

		m, err := repo.FindByMatchID(context.Background(), "m_1_abc")
		require.NoError(t, err)
		require.NotNil(t, m)

		assert.Equal(t, "rec001", m.RecordRef)
		assert.Equal(t, "Disabled", m.Status)
		assert.Equal(t, "a_legacykey", m.AJoinKey)
		assert.Equal(t, "b_legacykey", m.BJoinKey)
		assert.Equal(t, "legacy_a", m.AUserID)
		require.NotNil(t, m.ExpiresAt)
		assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), m.ExpiresAt.UTC())
	})

	t.Run("fills channel and user defaults for old rows", func(t *testing.T) {
		repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{{
					"id": "rec002",
					"fields": map[string]any{
						"match_id":   "m_2_def",
						"status":     "active",
						"a_join_key": "a_key2",
						"b_join_key": "b_key2",
					},
				}},
			})
		})

		m, err := repo.FindByMatchID(context.Background(), "m_2_def")
		require.NoError(t, err)
		require.NotNil(t, m)

		assert.Equal(t, "match_m_2_def_a", m.AUserID)
		assert.Equal(t, "match_m_2_def_b", m.BUserID)
		assert.Equal(t, "messaging", m.ChannelType)
		assert.Equal(t, "match_m_2_def", m.ChannelID)
		assert.Nil(t, m.StartedAt)
		assert.Nil(t, m.ExpiresAt)
	})

	t.Run("returns nil for unknown match", func(t *testing.T) {
		repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"records": []any{}})
		})

		m, err := repo.FindByMatchID(context.Background(), "m_unknown")
		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestAirtablePatch(t *testing.T) {
	t.Run("sends only named fields with RFC3339 timestamps", func(t *testing.T) {
		var gotFields map[string]any
		repo := newAirtableRepo(t, func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Fields map[string]any `json:"fields"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			gotFields = body.Fields

			json.NewEncoder(w).Encode(map[string]any{
				"id":     "rec001",
				"fields": body.Fields,
			})
		})

		started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		expires := started.Add(15 * time.Minute)
		flag := true
		_, err := repo.Patch(context.Background(), "rec001", model.MatchPatch{
			ASentFirst: &flag,
			StartedAt:  &started,
			ExpiresAt:  &expires,
		})
		require.NoError(t, err)

		assert.Equal(t, true, gotFields["a_sent_first"])
		assert.NotContains(t, gotFields, "b_sent_first")
		assert.Equal(t, "2025-06-01T10:00:00Z", gotFields["started_at"])
		assert.Equal(t, "2025-06-01T10:15:00Z", gotFields["expires_at"])
	})
}
