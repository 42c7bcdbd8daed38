package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/bus"
	"chat-relay/cache"
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/search"
	"chat-relay/services"
	"chat-relay/subscriptions"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := slog.Default()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	cacheStore, err := cache.NewBadgerCache(log, metrics, time.Hour)
	req.NoError(err)
	t.Cleanup(func() { _ = cacheStore.Close() })

	notificationBus := bus.NewBus(log, metrics)
	t.Cleanup(func() { _ = notificationBus.Close() })

	index, err := search.OpenMessageIndex(t.TempDir(), log)
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	userRepo := repositories.NewUserRepository(db)
	roomRepo, err := repositories.NewRoomRepository(db)
	req.NoError(err)
	t.Cleanup(func() { _ = roomRepo.Close() })
	messageRepo := repositories.NewMessageRepository(db, log)

	moderator, err := moderation.NewModerator([]string{"heck"}, '*')
	req.NoError(err)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	queries := services.NewQueryService(log, userRepo, roomRepo, messageRepo, cacheStore, index)
	mutations := services.NewMutationService(log, userRepo, roomRepo, messageRepo,
		cacheStore, notificationBus, &moderator, index)
	authService := services.NewAuthService(log, userRepo, tokens, cacheStore)
	subs := subscriptions.NewService(log, notificationBus)

	health, err := observability.NewHealthReporter()
	req.NoError(err)

	server := NewServer(log, tokens,
		NewQueryHandler(queries),
		NewMutationHandler(mutations),
		NewAuthHandler(authService),
		NewSubscriptionHandler(log, subs),
		health, registry)

	ts := httptest.NewServer(server.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, token, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	request, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(data, &fields)
	return response, fields
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	response, err := http.Get(url)
	require.NoError(t, err)
	defer response.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(response.Body).Decode(out))
	}
	return response
}

func registerUser(t *testing.T, ts *httptest.Server, email string) (string, domain.User) {
	t.Helper()
	response, fields := postJSON(t, ts.URL+"/auth/register", "",
		fmt.Sprintf(`{"email":%q,"password":"Sup3r-Secret-Pass!"}`, email))
	require.Equal(t, http.StatusCreated, response.StatusCode)

	var token string
	require.NoError(t, json.Unmarshal(fields["accessToken"], &token))
	var user domain.User
	require.NoError(t, json.Unmarshal(fields["user"], &user))
	return token, user
}

func createRoom(t *testing.T, ts *httptest.Server, name string) domain.Room {
	t.Helper()
	response, fields := postJSON(t, ts.URL+"/api/rooms", "", fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, response.StatusCode)
	var room domain.Room
	require.NoError(t, json.Unmarshal(fields["room"], &room))
	return room
}

func Test_Register_Login_Flow(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	token, user := registerUser(t, ts, "alice@example.com")
	req.NotEmpty(token)
	req.Equal("alice", user.Name)

	response, _ := postJSON(t, ts.URL+"/auth/login", "",
		`{"email":"alice@example.com","password":"Sup3r-Secret-Pass!"}`)
	req.Equal(http.StatusOK, response.StatusCode)

	response, _ = postJSON(t, ts.URL+"/auth/login", "",
		`{"email":"alice@example.com","password":"Wrong-Passw0rd!"}`)
	req.Equal(http.StatusUnauthorized, response.StatusCode)

	// Registering the same email again conflicts.
	response, _ = postJSON(t, ts.URL+"/auth/register", "",
		`{"email":"alice@example.com","password":"Sup3r-Secret-Pass!"}`)
	req.Equal(http.StatusConflict, response.StatusCode)
}

func Test_Message_Flow_Over_HTTP(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	token, user := registerUser(t, ts, "alice@example.com")
	room := createRoom(t, ts, "general")

	body := fmt.Sprintf(`{"content":"hello","user_id":%q,"room_id":%d}`, user.ID, room.ID)

	// The message route is protected.
	response, _ := postJSON(t, ts.URL+"/api/messages", "", body)
	req.Equal(http.StatusUnauthorized, response.StatusCode)

	response, _ = postJSON(t, ts.URL+"/api/messages", token, body)
	req.Equal(http.StatusCreated, response.StatusCode)

	var page domain.MessagePage
	getResponse := getJSON(t, fmt.Sprintf("%s/api/rooms/%d/messages", ts.URL, room.ID), &page)
	req.Equal(http.StatusOK, getResponse.StatusCode)
	req.Len(page.Edges, 1)
	req.Equal("hello", page.Edges[0].Node.Content)
	req.Equal(user.ID, page.Edges[0].Node.SenderID)
}

func Test_Messages_Pagination_Over_HTTP(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	token, user := registerUser(t, ts, "alice@example.com")
	room := createRoom(t, ts, "general")

	for i := 1; i <= 5; i++ {
		response, _ := postJSON(t, ts.URL+"/api/messages", token,
			fmt.Sprintf(`{"content":"message %d","user_id":%q,"room_id":%d}`, i, user.ID, room.ID))
		req.Equal(http.StatusCreated, response.StatusCode)
	}

	var first domain.MessagePage
	getJSON(t, fmt.Sprintf("%s/api/rooms/%d/messages?first=3", ts.URL, room.ID), &first)
	req.Len(first.Edges, 3)
	req.True(first.PageInfo.HasNextPage)
	req.NotNil(first.PageInfo.EndCursor)

	var second domain.MessagePage
	getJSON(t, fmt.Sprintf("%s/api/rooms/%d/messages?first=3&after=%s",
		ts.URL, room.ID, *first.PageInfo.EndCursor), &second)
	req.Len(second.Edges, 2)

	req.Equal("message 1", first.Edges[0].Node.Content)
	req.Equal("message 4", second.Edges[0].Node.Content)
	req.Equal("message 5", second.Edges[1].Node.Content)
}

func Test_Messages_Unknown_Room_And_Bad_Params(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	var page domain.MessagePage
	response := getJSON(t, ts.URL+"/api/rooms/999/messages", &page)
	req.Equal(http.StatusOK, response.StatusCode)
	req.Empty(page.Edges)

	response = getJSON(t, ts.URL+"/api/rooms/not-a-number/messages", nil)
	req.Equal(http.StatusBadRequest, response.StatusCode)

	response = getJSON(t, ts.URL+"/api/rooms/1/messages?first=-2", nil)
	req.Equal(http.StatusBadRequest, response.StatusCode)
}

func Test_Posting_To_Unknown_Room_Fails(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	token, user := registerUser(t, ts, "alice@example.com")

	response, _ := postJSON(t, ts.URL+"/api/messages", token,
		fmt.Sprintf(`{"content":"hi","user_id":%q,"room_id":999}`, user.ID))
	req.Equal(http.StatusBadRequest, response.StatusCode)
}

func Test_Websocket_Streams_Room_Events(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	token, user := registerUser(t, ts, "alice@example.com")
	room := createRoom(t, ts, "general")

	wsURL := fmt.Sprintf("%s/ws/rooms/%d", strings.Replace(ts.URL, "http", "ws", 1), room.ID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	defer conn.Close()

	// The handshake returns before the server side finishes registering
	// on the bus; give it a moment so the event is not published early.
	time.Sleep(100 * time.Millisecond)

	response, _ := postJSON(t, ts.URL+"/api/messages", token,
		fmt.Sprintf(`{"content":"live!","user_id":%q,"room_id":%d}`, user.ID, room.ID))
	req.Equal(http.StatusCreated, response.StatusCode)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, payload, err := conn.ReadMessage()
	req.NoError(err)

	var event domain.MessageCreated
	req.NoError(json.Unmarshal(payload, &event))
	req.Equal("live!", event.Content)
	req.Equal(room.ID, event.RoomID)
}

func Test_Search_Over_HTTP(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	token, user := registerUser(t, ts, "alice@example.com")
	room := createRoom(t, ts, "general")

	for _, content := range []string{"deployment finished", "lunch anyone", "deployment rolled back"} {
		response, _ := postJSON(t, ts.URL+"/api/messages", token,
			fmt.Sprintf(`{"content":%q,"user_id":%q,"room_id":%d}`, content, user.ID, room.ID))
		req.Equal(http.StatusCreated, response.StatusCode)
	}

	var result struct {
		Hits []search.Hit `json:"hits"`
	}
	response := getJSON(t, fmt.Sprintf("%s/api/rooms/%d/search?q=deployment", ts.URL, room.ID), &result)
	req.Equal(http.StatusOK, response.StatusCode)
	req.Len(result.Hits, 2)
	for _, hit := range result.Hits {
		req.Contains(hit.Content, "deployment")
	}

	response = getJSON(t, fmt.Sprintf("%s/api/rooms/%d/search", ts.URL, room.ID), nil)
	req.Equal(http.StatusBadRequest, response.StatusCode)
}

func Test_Metrics_And_Health_Endpoints(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	response, err := http.Get(ts.URL + "/metrics")
	req.NoError(err)
	body, err := io.ReadAll(response.Body)
	req.NoError(err)
	response.Body.Close()
	req.Equal(http.StatusOK, response.StatusCode)
	req.Contains(string(body), "chatrelay_")

	var snapshot observability.HealthSnapshot
	healthResponse := getJSON(t, ts.URL+"/healthz", &snapshot)
	req.Equal(http.StatusOK, healthResponse.StatusCode)
	req.Equal("ok", snapshot.Status)
}
