package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"game-server-tracker/internal/models"
)

func (e *testEnv) seedGame(t *testing.T, gameUUID string, dev bool) {
	t.Helper()
	game := models.Game{GameUUID: gameUUID, Stamp: time.Now(), Dev: dev}
	if err := e.db.Create(&game).Error; err != nil {
		t.Fatalf("seed game: %v", err)
	}
}

func (e *testEnv) addPlayer(t *testing.T, gameUUID string, meta map[string]interface{}) uint {
	t.Helper()
	body := map[string]interface{}{"game_uuid": gameUUID}
	if meta != nil {
		body["meta"] = meta
	}
	rec := e.request(t, http.MethodPost, "/game-player", prodKey, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("add player: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	results := resultList(t, decodeEnvelope(t, rec))
	if len(results) != 1 {
		t.Fatalf("expected one result entry, got %d", len(results))
	}
	id, ok := results[0]["game_player_id"].(float64)
	if !ok || id == 0 {
		t.Fatalf("missing game_player_id in %v", results[0])
	}
	return uint(id)
}

func TestAddPlayerZeroUUIDRejectedBeforeStore(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/game-player", prodKey, map[string]interface{}{
		"game_uuid": "00000000-0000-0000-0000-000000000000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var count int64
	if err := env.db.Model(&models.GamePlayer{}).Count(&count).Error; err != nil {
		t.Fatalf("count players: %v", err)
	}
	if count != 0 {
		t.Fatal("zero UUID must be rejected without touching the store")
	}
}

func TestAddPlayerUnknownGameIsClientError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/game-player", prodKey, map[string]interface{}{
		"game_uuid": "123e4567-e89b-42d3-a456-426614174000",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown game, got %d (%s)", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Message != "Invalid game_uuid provided" {
		t.Fatalf("unexpected message %q", envelope.Message)
	}
}

func TestAddPlayerPersistsMeta(t *testing.T) {
	env := newTestEnv(t)
	gameUUID := "123e4567-e89b-42d3-a456-426614174001"
	env.seedGame(t, gameUUID, false)

	id := env.addPlayer(t, gameUUID, map[string]interface{}{"nick": "slayer", "level": 12})

	var player models.GamePlayer
	if err := env.db.Where("game_player_id = ?", id).First(&player).Error; err != nil {
		t.Fatalf("query player: %v", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(player.Meta, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta["nick"] != "slayer" {
		t.Fatalf("unexpected meta %v", meta)
	}
}

func TestListPlayersMetaVisibility(t *testing.T) {
	env := newTestEnv(t)
	gameUUID := "123e4567-e89b-42d3-a456-426614174002"
	env.seedGame(t, gameUUID, false)

	id := env.addPlayer(t, gameUUID, map[string]interface{}{"nick": "alpha"})
	env.addPlayer(t, gameUUID, map[string]interface{}{"nick": "beta"})

	// targeted by id: meta included
	rec := env.request(t, http.MethodGet, fmt.Sprintf("/game-player?game_player_id=%d", id), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by id: expected 200, got %d", rec.Code)
	}
	results := resultList(t, decodeEnvelope(t, rec))
	if len(results) != 1 {
		t.Fatalf("expected 1 player, got %d", len(results))
	}
	if _, ok := results[0]["meta"]; !ok {
		t.Fatal("targeted lookup must include meta")
	}
	if uint(results[0]["game_player_id"].(float64)) != id {
		t.Fatalf("unexpected player id %v", results[0]["game_player_id"])
	}

	// targeted by game: meta included for every player
	rec = env.request(t, http.MethodGet, "/game-player?game_uuid="+gameUUID, "", nil)
	results = resultList(t, decodeEnvelope(t, rec))
	if len(results) != 2 {
		t.Fatalf("expected 2 players, got %d", len(results))
	}
	for _, entry := range results {
		if _, ok := entry["meta"]; !ok {
			t.Fatal("game lookup must include meta")
		}
	}

	// recency listing: identity only
	rec = env.request(t, http.MethodGet, "/game-player", "", nil)
	results = resultList(t, decodeEnvelope(t, rec))
	if len(results) != 2 {
		t.Fatalf("expected 2 players in listing, got %d", len(results))
	}
	for _, entry := range results {
		if _, ok := entry["meta"]; ok {
			t.Fatal("bulk listing must withhold meta")
		}
	}
}

func TestListPlayersRecencyRespectsPartition(t *testing.T) {
	env := newTestEnv(t)
	prodGame := "123e4567-e89b-42d3-a456-426614174003"
	devGame := "123e4567-e89b-42d3-a456-426614174004"
	env.seedGame(t, prodGame, false)
	env.seedGame(t, devGame, true)
	env.addPlayer(t, prodGame, nil)
	env.addPlayer(t, devGame, nil)

	// anonymous sees production only
	rec := env.request(t, http.MethodGet, "/game-player", "", nil)
	results := resultList(t, decodeEnvelope(t, rec))
	if len(results) != 1 {
		t.Fatalf("expected 1 production player, got %d", len(results))
	}
	if results[0]["game_uuid"] != prodGame {
		t.Fatalf("unexpected game %v", results[0]["game_uuid"])
	}

	// dev credential inherits its partition
	rec = env.request(t, http.MethodGet, "/game-player", devKey, nil)
	results = resultList(t, decodeEnvelope(t, rec))
	if len(results) != 1 || results[0]["game_uuid"] != devGame {
		t.Fatalf("dev credential should see the dev player, got %v", results)
	}

	// anonymous asking for dev data is refused
	rec = env.request(t, http.MethodGet, "/game-player?dev=true", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestListPlayersEmptyIs404(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/game-player?game_player_id=42", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
