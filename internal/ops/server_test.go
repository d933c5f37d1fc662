package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftmods/cobblespawner/internal/catalog"
	"github.com/craftmods/cobblespawner/internal/model"
	"github.com/craftmods/cobblespawner/internal/spawn"
	"github.com/craftmods/cobblespawner/internal/world"
)

func testServer(t *testing.T) (*Server, *spawn.Engine, model.SpawnerKey) {
	t.Helper()

	overworld := world.NewMemory("overworld")
	for x := int32(-2); x <= 2; x++ {
		for z := int32(-2); z <= 2; z++ {
			overworld.SetBlock(model.NewPosition(x, 63, z), world.Stone)
		}
	}
	worlds := world.NewSource()
	worlds.Register(overworld)

	registry := catalog.DemoRegistry()
	sink := NewSink()
	engine := spawn.NewEngine(spawn.NewMemoryStore(), worlds, registry, registry, spawn.Options{Events: sink})

	key := model.NewSpawnerKey(model.NewPosition(0, 64, 0), "overworld")
	spawner, err := engine.AddSpawner(context.Background(), key, "ops-test")
	require.NoError(t, err)
	spawner.SetRadius(model.SpawnRadius{Width: 1, Height: 1})
	require.True(t, engine.AddEntry(context.Background(), key, model.NewSpawnEntry("Fieldmouse")))

	return NewServer(engine, sink), engine, key
}

func TestSinkPublishNeverBlocks(t *testing.T) {
	sink := NewSink()
	// Overfill the queue; every call must return.
	for i := 0; i < eventQueueSize*2; i++ {
		sink.Publish(spawn.Event{Type: spawn.EventSpawned, ID: uuid.New()})
	}
	assert.Len(t, sink.queue, eventQueueSize)
}

func TestHandlePositions(t *testing.T) {
	srv, _, key := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/positions?x=0&y=64&z=0&dimension=overworld", nil)
	rec := httptest.NewRecorder()
	srv.handlePositions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Spawner   model.SpawnerKey `json:"spawner"`
		Positions []model.Position `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, key, body.Spawner)
	assert.Len(t, body.Positions, 9)
}

func TestHandlePositionsErrors(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		name  string
		query string
		code  int
	}{
		{"unknown spawner", "x=99&y=64&z=0&dimension=overworld", http.StatusNotFound},
		{"missing dimension", "x=0&y=64&z=0", http.StatusBadRequest},
		{"bad coordinate", "x=abc&y=64&z=0&dimension=overworld", http.StatusBadRequest},
		{"missing coordinate", "y=64&z=0&dimension=overworld", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/positions?"+tt.query, nil)
			rec := httptest.NewRecorder()
			srv.handlePositions(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandleSpawners(t *testing.T) {
	srv, _, key := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/spawners", nil)
	rec := httptest.NewRecorder()
	srv.handleSpawners(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []struct {
		Spawner    model.SpawnerSnapshot `json:"spawner"`
		Population int                   `json:"population"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, key, body[0].Spawner.Key)
	assert.Equal(t, "ops-test", body[0].Spawner.Name)
	assert.Equal(t, 0, body[0].Population)
	require.Len(t, body[0].Spawner.Entries, 1)
	assert.Equal(t, "Fieldmouse", body[0].Spawner.Entries[0].Species)
}

func TestEventStream(t *testing.T) {
	srv, _, key := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.broadcastLoop(ctx)

	ts := httptest.NewServer(http.HandlerFunc(srv.handleEvents))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the subscriber registration before publishing.
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.subs) == 1
	}, time.Second, 5*time.Millisecond)

	id := uuid.New()
	srv.sink.Publish(spawn.Event{
		Type:    spawn.EventSpawned,
		Spawner: key,
		ID:      id,
		Species: "Fieldmouse",
		Tick:    42,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev spawn.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, spawn.EventSpawned, ev.Type)
	assert.Equal(t, key, ev.Spawner)
	assert.Equal(t, id, ev.ID)
	assert.Equal(t, "Fieldmouse", ev.Species)
	assert.Equal(t, int64(42), ev.Tick)
}
