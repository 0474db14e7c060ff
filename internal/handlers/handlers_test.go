package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/robertddewey/ChatPop-sub000/internal/cache"
	"github.com/robertddewey/ChatPop-sub000/internal/models"
	"github.com/robertddewey/ChatPop-sub000/internal/monitor"
)

type reactionRow struct {
	msgID  string
	userID uuid.UUID
	emoji  string
}

// fakeStore is an in-memory DataStore. It counts page fetches and
// reaction rebuilds so tests can verify the cache actually absorbs
// reads.
type fakeStore struct {
	mu sync.Mutex

	rooms    map[uuid.UUID]*models.Room
	users    map[uuid.UUID]*models.User
	messages map[uuid.UUID][]models.Message
	rows     []reactionRow
	blocks   map[uuid.UUID]map[string]bool

	nextID int
	clock  time.Time

	pageFetches    int
	reactionBuilds int
	persistErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[uuid.UUID]*models.Room),
		users:    make(map[uuid.UUID]*models.User),
		messages: make(map[uuid.UUID][]models.Message),
		blocks:   make(map[uuid.UUID]map[string]bool),
		clock:    time.Now().Add(-time.Hour),
	}
}

func (f *fakeStore) Close() {}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeStore) CreateRoom(ctx context.Context, code, name string, hostID *uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := &models.Room{ID: uuid.New(), Code: code, Name: name, HostID: hostID, CreatedAt: time.Now()}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[id], nil
}

func (f *fakeStore) IncrementMessageCount(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room := f.rooms[id]; room != nil {
		room.MessageCount++
	}
	return nil
}

func (f *fakeStore) PersistMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return f.persistErr
	}
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	msg.ID = fmt.Sprintf("msg-%03d", f.nextID)
	msg.CreatedAt = f.clock
	f.messages[msg.RoomID] = append(f.messages[msg.RoomID], *msg)
	return nil
}

func (f *fakeStore) GetMessage(ctx context.Context, roomID uuid.UUID, msgID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages[roomID] {
		if f.messages[roomID][i].ID == msgID && !f.messages[roomID][i].Deleted {
			msg := f.messages[roomID][i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FetchMessagesPage(ctx context.Context, roomID uuid.UUID, before time.Time, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageFetches++

	var page []models.Message
	for _, msg := range f.messages[roomID] {
		if !msg.Deleted && msg.CreatedAt.Before(before) {
			page = append(page, msg)
		}
	}
	sort.Slice(page, func(i, j int) bool { return page[i].CreatedAt.After(page[j].CreatedAt) })
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

func (f *fakeStore) MarkMessageDeleted(ctx context.Context, roomID uuid.UUID, msgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages[roomID] {
		if f.messages[roomID][i].ID == msgID {
			f.messages[roomID][i].Deleted = true
		}
	}
	return nil
}

func (f *fakeStore) SetMessagePin(ctx context.Context, roomID uuid.UUID, msgID string, amount float64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages[roomID] {
		if f.messages[roomID][i].ID == msgID {
			f.messages[roomID][i].Pinned = true
			f.messages[roomID][i].PinAmount = amount
			f.messages[roomID][i].PinExpiresAt = &expiresAt
		}
	}
	return nil
}

func (f *fakeStore) ClearMessagePin(ctx context.Context, roomID uuid.UUID, msgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages[roomID] {
		if f.messages[roomID][i].ID == msgID {
			f.messages[roomID][i].Pinned = false
			f.messages[roomID][i].PinAmount = 0
			f.messages[roomID][i].PinExpiresAt = nil
		}
	}
	return nil
}

func (f *fakeStore) AddReaction(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.msgID == msgID && row.userID == userID && row.emoji == emoji {
			return nil
		}
	}
	f.rows = append(f.rows, reactionRow{msgID: msgID, userID: userID, emoji: emoji})
	return nil
}

func (f *fakeStore) RemoveReaction(ctx context.Context, msgID string, userID uuid.UUID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range f.rows {
		if row.msgID == msgID && row.userID == userID && row.emoji == emoji {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) FetchReactionCounts(ctx context.Context, msgID string) ([]models.ReactionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactionBuilds++

	counts := make(map[string]int64)
	for _, row := range f.rows {
		if row.msgID == msgID {
			counts[row.emoji]++
		}
	}
	out := make([]models.ReactionSummary, 0, len(counts))
	for emoji, n := range counts {
		out = append(out, models.ReactionSummary{Emoji: emoji, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emoji < out[j].Emoji
	})
	return out, nil
}

func (f *fakeStore) FetchBlocksForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.blocks[userID] {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeStore) PersistBlock(ctx context.Context, userID uuid.UUID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blocks[userID] == nil {
		f.blocks[userID] = make(map[string]bool)
	}
	f.blocks[userID][username] = true
	return nil
}

func (f *fakeStore) DeleteBlock(ctx context.Context, userID uuid.UUID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blocks[userID], username)
	return nil
}

func (f *fakeStore) pageFetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageFetches
}

func (f *fakeStore) reactionBuildCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reactionBuilds
}

type testEnv struct {
	router *chi.Mux
	store  *fakeStore
	cache  *cache.Cache
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fs := newFakeStore()
	c := cache.New(client, fs, monitor.New(64, nil), cache.Config{}, zerolog.Nop())
	h := NewHandler(fs, c, monitor.New(64, nil), zerolog.Nop())

	r := chi.NewRouter()
	r.Post("/rooms", h.CreateRoom)
	r.Get("/rooms/{id}/messages", h.GetRoomMessages)
	r.Post("/rooms/{id}/messages", h.PostMessage)
	r.Delete("/rooms/{id}/messages/{msgID}", h.DeleteMessage)
	r.Post("/rooms/{id}/messages/{msgID}/pin", h.PinMessage)
	r.Delete("/rooms/{id}/messages/{msgID}/pin", h.UnpinMessage)
	r.Get("/rooms/{id}/pins", h.GetPinnedMessages)
	r.Get("/rooms/{id}/pins/floor", h.GetPinFloor)
	r.Post("/rooms/{id}/messages/{msgID}/reactions", h.AddReaction)
	r.Delete("/rooms/{id}/messages/{msgID}/reactions", h.RemoveReaction)
	r.Get("/rooms/{id}/messages/{msgID}/reactions", h.GetReactions)
	r.Get("/rooms/{id}/reactions", h.BatchGetReactions)
	r.Get("/users/{id}/blocks", h.GetBlocks)
	r.Post("/users/{id}/blocks", h.AddBlock)
	r.Delete("/users/{id}/blocks/{username}", h.RemoveBlock)
	r.Post("/users/{id}/blocks/sync", h.SyncBlocks)

	return &testEnv{router: r, store: fs, cache: c, mr: mr}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) addRoom(t *testing.T) *models.Room {
	t.Helper()
	room, err := e.store.CreateRoom(context.Background(), "general", "General", nil)
	require.NoError(t, err)
	return room
}

func (e *testEnv) addMessage(t *testing.T, roomID uuid.UUID, content string) *models.Message {
	t.Helper()
	msg := &models.Message{RoomID: roomID, AuthorName: "alice", Content: content}
	require.NoError(t, e.store.PersistMessage(context.Background(), msg))
	return msg
}

func TestPostMessageDurableFirstThenCached(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)

	w := env.do(t, http.MethodPost, "/rooms/"+room.ID.String()+"/messages", PostMessageRequest{
		Username: "alice",
		Content:  "hello world",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp PostMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	require.Greater(t, resp.Timestamp, 0.0)

	// Durable row exists.
	msg, err := env.store.GetMessage(context.Background(), room.ID, resp.ID)
	require.NoError(t, err)
	require.NotNil(t, msg)

	// And the cache was mirrored.
	cached := env.cache.GetMessages(context.Background(), room.ID, 10)
	require.Len(t, cached, 1)
	require.Equal(t, resp.ID, cached[0].ID)
}

func TestPostMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)

	w := env.do(t, http.MethodPost, "/rooms/"+room.ID.String()+"/messages", PostMessageRequest{Content: "no name"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/rooms/"+room.ID.String()+"/messages", PostMessageRequest{Username: "alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/rooms/"+uuid.NewString()+"/messages", PostMessageRequest{Username: "alice", Content: "hi"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessagePersistFailureSkipsCache(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	env.store.persistErr = fmt.Errorf("disk full")

	w := env.do(t, http.MethodPost, "/rooms/"+room.ID.String()+"/messages", PostMessageRequest{
		Username: "alice",
		Content:  "doomed",
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Empty(t, env.cache.GetMessages(context.Background(), room.ID, 10),
		"nothing enters the cache unless the durable write succeeded")
}

func TestGetRoomMessagesBackfillWarmsCache(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	for i := 1; i <= 5; i++ {
		env.addMessage(t, room.ID, fmt.Sprintf("message %d", i))
	}
	// Cold cache: the durable store holds everything.
	env.mr.FlushAll()

	w := env.do(t, http.MethodGet, "/rooms/"+room.ID.String()+"/messages?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RoomMessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 5)
	require.Equal(t, "message 1", resp.Messages[0].Content, "feed is chronological")
	require.Equal(t, "message 5", resp.Messages[4].Content)
	require.Equal(t, 1, env.store.pageFetchCount())

	// The miss warmed the cache, so the same read is now served without
	// touching the durable store.
	w = env.do(t, http.MethodGet, "/rooms/"+room.ID.String()+"/messages?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 5)
	require.Equal(t, 1, env.store.pageFetchCount())
}

func TestGetRoomMessagesPartialHitMerges(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)

	var posted []*models.Message
	for i := 1; i <= 6; i++ {
		posted = append(posted, env.addMessage(t, room.ID, fmt.Sprintf("message %d", i)))
	}
	// Only the newest two are cached.
	require.True(t, env.cache.RecordMessage(context.Background(), posted[4]))
	require.True(t, env.cache.RecordMessage(context.Background(), posted[5]))

	w := env.do(t, http.MethodGet, "/rooms/"+room.ID.String()+"/messages?limit=6", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RoomMessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 6, "shortfall backfilled from the durable store")
	for i, cm := range resp.Messages {
		require.Equal(t, fmt.Sprintf("message %d", i+1), cm.Content)
	}
	require.Equal(t, 1, env.store.pageFetchCount())
}

func TestGetRoomMessagesNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/rooms/"+uuid.NewString()+"/messages", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/rooms/not-a-uuid/messages", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMessageEvictsImmediately(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	msg := env.addMessage(t, room.ID, "soon gone")
	require.True(t, env.cache.RecordMessage(context.Background(), msg))

	w := env.do(t, http.MethodDelete, "/rooms/"+room.ID.String()+"/messages/"+msg.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	require.Empty(t, env.cache.GetMessages(context.Background(), room.ID, 10))
	got, err := env.store.GetMessage(context.Background(), room.ID, msg.ID)
	require.NoError(t, err)
	require.Nil(t, got, "soft-deleted rows are invisible")
}

func TestPinFlowWithFloor(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	first := env.addMessage(t, room.ID, "pin me")
	second := env.addMessage(t, room.ID, "pin me harder")

	base := "/rooms/" + room.ID.String()

	w := env.do(t, http.MethodPost, base+"/messages/"+first.ID+"/pin", PinMessageRequest{Amount: 5.00})
	require.Equal(t, http.StatusOK, w.Code)

	var floor PinFloorResponse
	w = env.do(t, http.MethodGet, base+"/pins/floor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &floor))
	require.Equal(t, 500, floor.FloorCents)

	// A bid at or below the floor is rejected.
	w = env.do(t, http.MethodPost, base+"/messages/"+second.ID+"/pin", PinMessageRequest{Amount: 5.00})
	require.Equal(t, http.StatusConflict, w.Code)

	// A higher bid takes the top slot.
	w = env.do(t, http.MethodPost, base+"/messages/"+second.ID+"/pin", PinMessageRequest{Amount: 10.00})
	require.Equal(t, http.StatusOK, w.Code)

	var pins PinnedMessagesResponse
	w = env.do(t, http.MethodGet, base+"/pins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pins))
	require.Len(t, pins.Pins, 2)
	require.Equal(t, second.ID, pins.Pins[0].ID)

	// Unpin restores the floor.
	w = env.do(t, http.MethodDelete, base+"/messages/"+second.ID+"/pin", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, base+"/pins/floor", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &floor))
	require.Equal(t, 500, floor.FloorCents)
}

func TestPinFloorOneCentAboveWins(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	first := env.addMessage(t, room.ID, "incumbent")
	second := env.addMessage(t, room.ID, "challenger")

	base := "/rooms/" + room.ID.String()

	// 8.19 is one of the amounts whose float product lands just below
	// the integer (8.19*100 = 818.999...).
	w := env.do(t, http.MethodPost, base+"/messages/"+first.ID+"/pin", PinMessageRequest{Amount: 8.19})
	require.Equal(t, http.StatusOK, w.Code)

	var floor PinFloorResponse
	w = env.do(t, http.MethodGet, base+"/pins/floor", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &floor))
	require.Equal(t, 819, floor.FloorCents)

	// One cent above the floor must outrank it.
	w = env.do(t, http.MethodPost, base+"/messages/"+second.ID+"/pin", PinMessageRequest{Amount: 8.20})
	require.Equal(t, http.StatusOK, w.Code)

	// Still a tie at the new floor: rejected.
	w = env.do(t, http.MethodPost, base+"/messages/"+first.ID+"/pin", PinMessageRequest{Amount: 8.20})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestReactionMutationRebuildsCounts(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	msg := env.addMessage(t, room.ID, "react to me")
	base := "/rooms/" + room.ID.String() + "/messages/" + msg.ID + "/reactions"

	userA := uuid.NewString()
	userB := uuid.NewString()

	w := env.do(t, http.MethodPost, base, ReactionRequest{UserID: userA, Emoji: "👍"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, base, ReactionRequest{UserID: userB, Emoji: "👍"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, base, ReactionRequest{UserID: userA, Emoji: "🔥"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReactionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reactions, 2)
	require.Equal(t, "👍", resp.Reactions[0].Emoji)
	require.EqualValues(t, 2, resp.Reactions[0].Count)

	// Removing one row rebuilds the counts, never decrements in place.
	w = env.do(t, http.MethodDelete, base, ReactionRequest{UserID: userB, Emoji: "👍"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reactions, 2)
	for _, s := range resp.Reactions {
		require.EqualValues(t, 1, s.Count)
	}
}

func TestGetReactionsRebuildsOnMiss(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	msg := env.addMessage(t, room.ID, "react to me")

	require.NoError(t, env.store.AddReaction(context.Background(), msg.ID, uuid.New(), "🎉"))
	base := "/rooms/" + room.ID.String() + "/messages/" + msg.ID + "/reactions"

	w := env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReactionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reactions, 1)
	require.Equal(t, 1, env.store.reactionBuildCount())

	// The rebuild populated the hash; the next read is cache-only.
	w = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, env.store.reactionBuildCount())
}

func TestBatchReactionsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t)
	msg := env.addMessage(t, room.ID, "react to me")
	require.True(t, env.cache.SetMessageReactions(context.Background(), room.ID, msg.ID,
		[]models.ReactionSummary{{Emoji: "👍", Count: 2}}))

	w := env.do(t, http.MethodGet, "/rooms/"+room.ID.String()+"/reactions?ids="+msg.ID+",missing", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string][]models.ReactionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	require.Len(t, resp[msg.ID], 1)
	require.Empty(t, resp["missing"])

	w = env.do(t, http.MethodGet, "/rooms/"+room.ID.String()+"/reactions", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlockEndpoints(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New()
	base := "/users/" + userID.String() + "/blocks"

	w := env.do(t, http.MethodPost, base, BlockRequest{Username: "Troll"})
	require.Equal(t, http.StatusNoContent, w.Code)

	var resp BlocksResponse
	w = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []string{"troll"}, resp.Blocked)

	// Durable row exists independently of the cache.
	require.True(t, env.store.blocks[userID]["troll"])

	w = env.do(t, http.MethodDelete, base+"/troll", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, base, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Blocked)

	// Resync drops cache entries the database never had.
	env.cache.AddBlockedUsername(context.Background(), userID, "ghost")
	w = env.do(t, http.MethodPost, base+"/sync", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, base, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Blocked)
}
