package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/quarterchat/match-server-go/internal/errors"
)

const (
	defaultStreamBaseURL = "https://chat.stream-io-api.com"
	streamTimeout        = 10 * time.Second
)

// SessionResult is everything a validated participant needs to open the
// chat: their identity, the channel coordinates and a user-scoped token.
type SessionResult struct {
	MatchID     string `json:"match_id"`
	UserID      string `json:"user_id"`
	ChannelType string `json:"channel_type"`
	ChannelID   string `json:"channel_id"`
	Token       string `json:"token"`
}

// StreamService talks to the Stream Chat REST API server-side: it upserts
// the two anonymous participants, creates the match channel and mints
// user-scoped JWTs. Keys and secrets never leave this process.
type StreamService struct {
	apiKey  string
	secret  []byte
	baseURL string
	client  *http.Client
}

func NewStreamService(apiKey, apiSecret string) *StreamService {
	return &StreamService{
		apiKey:  apiKey,
		secret:  []byte(apiSecret),
		baseURL: defaultStreamBaseURL,
		client:  &http.Client{Timeout: streamTimeout},
	}
}

// WithBaseURL redirects API calls, used by tests.
func (s *StreamService) WithBaseURL(baseURL string) *StreamService {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

// Configured reports whether chat credentials were provided. When they are
// not, the rest of the lifecycle still works; only session minting and
// channel provisioning are unavailable.
func (s *StreamService) Configured() bool {
	return s.apiKey != "" && len(s.secret) > 0
}

// CreateToken mints a user-scoped JWT the browser hands to the Stream SDK.
func (s *StreamService) CreateToken(userID string) (string, error) {
	if !s.Configured() {
		return "", apperrors.Configuration("chat provider is not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal("token signing failed").WithCause(err)
	}
	return signed, nil
}

// serverToken authorizes server-side REST calls.
func (s *StreamService) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"server": true,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Internal("token signing failed").WithCause(err)
	}
	return signed, nil
}

// UpsertUsers registers both anonymous participants. The call is an
// upsert on Stream's side, so repeating it is harmless.
func (s *StreamService) UpsertUsers(ctx context.Context, aUserID, bUserID string) error {
	body := map[string]any{
		"users": map[string]any{
			aUserID: map[string]any{"id": aUserID, "name": "익명A"},
			bUserID: map[string]any{"id": bUserID, "name": "익명B"},
		},
	}
	return s.post(ctx, "/users", body, nil)
}

// EnsureChannel creates (or re-queries) the match channel with both
// participants as members. Stream treats channel creation as idempotent,
// so concurrent entry by both sides cannot fail here.
func (s *StreamService) EnsureChannel(ctx context.Context, channelType, channelID, aUserID, bUserID string) error {
	if !s.Configured() {
		return apperrors.Configuration("chat provider is not configured")
	}

	if err := s.UpsertUsers(ctx, aUserID, bUserID); err != nil {
		return err
	}

	body := map[string]any{
		"data": map[string]any{
			"members":       []string{aUserID, bUserID},
			"created_by_id": aUserID,
		},
	}
	path := fmt.Sprintf("/channels/%s/%s/query", channelType, channelID)
	if err := s.post(ctx, path, body, nil); err != nil {
		return err
	}

	log.Debug().
		Str("channelType", channelType).
		Str("channelId", channelID).
		Msg("channel ensured")
	return nil
}

// MintSession provisions the channel and returns the session bundle for
// one validated participant.
func (s *StreamService) MintSession(ctx context.Context, entry *EntryResult) (*SessionResult, error) {
	if err := s.EnsureChannel(ctx, entry.ChannelType, entry.ChannelID, entry.AUserID, entry.BUserID); err != nil {
		return nil, err
	}
	token, err := s.CreateToken(entry.UserID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{
		MatchID:     entry.MatchID,
		UserID:      entry.UserID,
		ChannelType: entry.ChannelType,
		ChannelID:   entry.ChannelID,
		Token:       token,
	}, nil
}

func (s *StreamService) post(ctx context.Context, path string, body any, out any) error {
	serverJWT, err := s.serverToken()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Internal("request encoding failed").WithCause(err)
	}

	url := fmt.Sprintf("%s%s?api_key=%s", s.baseURL, path, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Internal("request build failed").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", serverJWT)
	req.Header.Set("stream-auth-type", "jwt")

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.Upstream("stream", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("body", string(preview)).
			Msg("stream request rejected")
		return apperrors.Upstream("stream", resp.StatusCode,
			fmt.Errorf("POST %s: %s", path, strings.TrimSpace(string(preview))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Upstream("stream", resp.StatusCode, err)
		}
	}
	return nil
}
