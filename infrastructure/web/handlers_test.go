package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parley/auth"
	"parley/observability"
	"parley/projection"
	"parley/repositories"
	"parley/runtime"
	"parley/runtime/workers"
	"parley/search"
	"parley/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the full stack on temporary storage: real BadgerDB,
// real index, real services. Only the transport is exercised through
// httptest.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	registry := runtime.NewRegistry()
	locks := runtime.NewKeyedMutex()
	dispatcher := runtime.NewDispatcher(log, workers.NewSupervisor(log),
		registry, 16, time.Second, '*')

	index := search.NewIndex(writer, log)
	monitor := observability.NewMonitor(log)

	userRepo := repositories.NewUserRepository(db)
	convRepo := repositories.NewConversationRepository(db)
	msgRepo := repositories.NewMessageRepository(db, log, nil)

	issuer := auth.NewTokenIssuer("integration-test-secret", time.Hour)
	authService := services.NewAuthService(userRepo, issuer)
	convService := services.NewConversationService(convRepo, userRepo, msgRepo,
		locks, monitor, log)
	chatService := services.NewChatService(convRepo, userRepo, msgRepo,
		locks, dispatcher, registry, index, projection.NewTimeline(16),
		monitor, log)

	server := NewServer(log, authService, convService, chatService,
		registry, monitor, issuer, 16, 10*time.Second)

	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, payload)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, raw
}

func registerUser(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()
	resp, raw := doJSON(t, ts, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Token
}

func TestServer_FullMembershipScenario(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	alice := registerUser(t, ts, "alice")
	bob := registerUser(t, ts, "bob")

	// Alice opens a conversation and is its sole member and admin
	resp, raw := doJSON(t, ts, http.MethodPost, "/conversations", alice, map[string]string{
		"name":        "team-chat",
		"description": "daily chatter",
	})
	req.Equal(http.StatusCreated, resp.StatusCode, string(raw))
	var created struct {
		ID string `json:"id"`
	}
	req.NoError(json.Unmarshal(raw, &created))
	req.NotEmpty(created.ID)

	// Bob sees nothing yet: listings only cover memberships
	resp, raw = doJSON(t, ts, http.MethodGet, "/conversations", bob, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	var listing struct {
		Conversations []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"conversations"`
	}
	req.NoError(json.Unmarshal(raw, &listing))
	req.Empty(listing.Conversations)

	// Bob asks to join by name
	resp, raw = doJSON(t, ts, http.MethodPost, "/conversations/join", bob, map[string]string{
		"name": "team-chat",
	})
	req.Equal(http.StatusOK, resp.StatusCode, string(raw))
	var join struct {
		Status string `json:"status"`
	}
	req.NoError(json.Unmarshal(raw, &join))
	req.Equal("request_submitted", join.Status)

	// A retry reports the pending state without duplicating the request
	_, raw = doJSON(t, ts, http.MethodPost, "/conversations/join", bob, map[string]string{
		"name": "team-chat",
	})
	req.NoError(json.Unmarshal(raw, &join))
	req.Equal("pending_approval", join.Status)

	// Bob is still not a member: the detail view stays closed
	resp, _ = doJSON(t, ts, http.MethodGet, "/conversations/"+created.ID, bob, nil)
	req.Equal(http.StatusForbidden, resp.StatusCode)

	// Alice approves; the decision needs Bob's user ID from the candidates
	resp, raw = doJSON(t, ts, http.MethodGet, "/conversations/"+created.ID, alice, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	var detail struct {
		CandidateUsers []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"candidate_users"`
	}
	req.NoError(json.Unmarshal(raw, &detail))
	req.Len(detail.CandidateUsers, 1)
	req.Equal("bob", detail.CandidateUsers[0].Username)

	resp, raw = doJSON(t, ts, http.MethodPost,
		fmt.Sprintf("/conversations/%s/decide", created.ID), alice, map[string]any{
			"user_id": detail.CandidateUsers[0].ID,
			"approve": true,
		})
	req.Equal(http.StatusOK, resp.StatusCode, string(raw))

	// Bob can now post and read
	resp, raw = doJSON(t, ts, http.MethodPost,
		fmt.Sprintf("/conversations/%s/messages", created.ID), bob, map[string]string{
			"content": "glad to be here",
		})
	req.Equal(http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, ts, http.MethodGet,
		fmt.Sprintf("/conversations/%s/messages", created.ID), alice, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	var page struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	req.NoError(json.Unmarshal(raw, &page))
	req.Len(page.Messages, 1)
	req.Equal("glad to be here", page.Messages[0].Content)

	// The in-memory timeline answers members only; the dispatcher is not
	// running here, so the view is simply empty.
	resp, raw = doJSON(t, ts, http.MethodGet,
		fmt.Sprintf("/conversations/%s/recent", created.ID), alice, nil)
	req.Equal(http.StatusOK, resp.StatusCode, string(raw))
}

func TestServer_RejectionIsTerminal(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	alice := registerUser(t, ts, "alice")
	mallory := registerUser(t, ts, "mallory")

	resp, raw := doJSON(t, ts, http.MethodPost, "/conversations", alice, map[string]string{
		"name": "team-chat",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	req.NoError(json.Unmarshal(raw, &created))

	_, _ = doJSON(t, ts, http.MethodPost, "/conversations/join", mallory, map[string]string{
		"name": "team-chat",
	})

	_, raw = doJSON(t, ts, http.MethodGet, "/conversations/"+created.ID, alice, nil)
	var detail struct {
		CandidateUsers []struct {
			ID string `json:"id"`
		} `json:"candidate_users"`
	}
	req.NoError(json.Unmarshal(raw, &detail))
	req.Len(detail.CandidateUsers, 1)

	resp, _ = doJSON(t, ts, http.MethodPost,
		fmt.Sprintf("/conversations/%s/decide", created.ID), alice, map[string]any{
			"user_id": detail.CandidateUsers[0].ID,
			"approve": false,
		})
	req.Equal(http.StatusOK, resp.StatusCode)

	// Once rejected, every later attempt reports not_permitted
	_, raw = doJSON(t, ts, http.MethodPost, "/conversations/join", mallory, map[string]string{
		"name": "team-chat",
	})
	var join struct {
		Status string `json:"status"`
	}
	req.NoError(json.Unmarshal(raw, &join))
	req.Equal("not_permitted", join.Status)
}

func TestServer_ErrorMapping(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	alice := registerUser(t, ts, "alice")

	// 401: no token
	resp, _ := doJSON(t, ts, http.MethodGet, "/conversations", "", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// 409: duplicate username
	resp, _ = doJSON(t, ts, http.MethodPost, "/register", "", map[string]string{
		"username": "alice",
		"password": "secret",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	// 400: conversation name too short
	resp, _ = doJSON(t, ts, http.MethodPost, "/conversations", alice, map[string]string{
		"name": "ab",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	// 409: conversation name collision
	resp, _ = doJSON(t, ts, http.MethodPost, "/conversations", alice, map[string]string{
		"name": "team-chat",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, ts, http.MethodPost, "/conversations", alice, map[string]string{
		"name": "team-chat",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	// 404: joining an unknown conversation name
	resp, _ = doJSON(t, ts, http.MethodPost, "/conversations/join", alice, map[string]string{
		"name": "nowhere",
	})
	req.Equal(http.StatusNotFound, resp.StatusCode)

	// 401: bad credentials stay generic
	resp, _ = doJSON(t, ts, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_StatsEndpoint(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	resp, raw := doJSON(t, ts, http.MethodGet, "/stats", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	var stats map[string]any
	req.NoError(json.Unmarshal(raw, &stats))
	req.Contains(stats, "live_sessions")
}
