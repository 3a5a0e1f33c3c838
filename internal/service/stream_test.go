package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quarterchat/match-server-go/internal/errors"
)

func TestStreamCreateToken(t *testing.T) {
	t.Run("signs a user-scoped HS256 token", func(t *testing.T) {
		svc := NewStreamService("key_test", "secret_test_secret_test_secret_12")

		signed, err := svc.CreateToken("match_m_1_a")
		require.NoError(t, err)

		parsed, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
			require.Equal(t, jwt.SigningMethodHS256, token.Method)
			return []byte("secret_test_secret_test_secret_12"), nil
		})
		require.NoError(t, err)
		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, "match_m_1_a", claims["user_id"])
		assert.NotContains(t, claims, "server")
	})

	t.Run("unconfigured service refuses to mint", func(t *testing.T) {
		svc := NewStreamService("", "")
		_, err := svc.CreateToken("someone")
		assert.Equal(t, apperrors.ErrCodeConfiguration, apperrors.GetCode(err))
	})
}

func TestStreamEnsureChannel(t *testing.T) {
	t.Run("upserts users then queries the channel", func(t *testing.T) {
		var paths []string
		var channelBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			assert.Equal(t, "key_test", r.URL.Query().Get("api_key"))
			assert.Equal(t, "jwt", r.Header.Get("stream-auth-type"))
			assert.NotEmpty(t, r.Header.Get("Authorization"))

			if r.URL.Path == "/channels/messaging/match_m_1/query" {
				json.NewDecoder(r.Body).Decode(&channelBody)
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		svc := NewStreamService("key_test", "secret_test_secret_test_secret_12").WithBaseURL(server.URL)
		err := svc.EnsureChannel(context.Background(), "messaging", "match_m_1", "match_m_1_a", "match_m_1_b")
		require.NoError(t, err)

		require.Equal(t, []string{"/users", "/channels/messaging/match_m_1/query"}, paths)
		data := channelBody["data"].(map[string]any)
		assert.ElementsMatch(t, []any{"match_m_1_a", "match_m_1_b"}, data["members"])
		assert.Equal(t, "match_m_1_a", data["created_by_id"])
	})

	t.Run("provider rejection surfaces as upstream error with status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid api key"}`))
		}))
		defer server.Close()

		svc := NewStreamService("key_test", "secret_test_secret_test_secret_12").WithBaseURL(server.URL)
		err := svc.EnsureChannel(context.Background(), "messaging", "match_m_1", "a", "b")

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeUpstream, appErr.Code)
		details := appErr.Details.(map[string]any)
		assert.Equal(t, http.StatusUnauthorized, details["status"])
	})
}

func TestStreamMintSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	svc := NewStreamService("key_test", "secret_test_secret_test_secret_12").WithBaseURL(server.URL)
	entry := &EntryResult{
		MatchID:     "m_1_abc",
		UserID:      "match_m_1_abc_b",
		AUserID:     "match_m_1_abc_a",
		BUserID:     "match_m_1_abc_b",
		ChannelType: "messaging",
		ChannelID:   "match_m_1_abc",
	}

	session, err := svc.MintSession(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "m_1_abc", session.MatchID)
	assert.Equal(t, "match_m_1_abc_b", session.UserID)
	assert.Equal(t, "messaging", session.ChannelType)
	assert.Equal(t, "match_m_1_abc", session.ChannelID)

	parsed, err := jwt.Parse(session.Token, func(token *jwt.Token) (any, error) {
		return []byte("secret_test_secret_test_secret_12"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "match_m_1_abc_b", parsed.Claims.(jwt.MapClaims)["user_id"])
}
