package cache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLocalSetGetDelete(t *testing.T) {
	m := NewManager("")

	type entry struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}

	if err := m.Set("player", entry{Name: "alpha", Score: 9}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got entry
	found, err := m.Get("player", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.Name != "alpha" || got.Score != 9 {
		t.Fatalf("unexpected value %+v", got)
	}

	if err := m.Delete("player"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	found, err = m.Get("player", &got)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if found {
		t.Fatal("expected miss after delete")
	}
}

func TestLocalGetMiss(t *testing.T) {
	m := NewManager("")

	var got string
	found, err := m.Get("absent", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected miss for absent key")
	}
}

func TestLocalIncrement(t *testing.T) {
	m := NewManager("")

	for want := int64(1); want <= 3; want++ {
		got, err := m.Increment("counter", 1)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	got, err := m.Increment("counter", 5)
	if err != nil {
		t.Fatalf("increment by 5: %v", err)
	}
	if got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestPublishReachesLocalSubscribers(t *testing.T) {
	m := NewManager("")

	m.PublishServerUpdate("game.example.com", 7777, "777ab9da-bc9a-4fe5-88da-b925e44909b3")

	select {
	case data := <-m.Events():
		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event["type"] != "server_update" {
			t.Fatalf("unexpected event type %v", event["type"])
		}
		if event["hostname"] != "game.example.com" {
			t.Fatalf("unexpected hostname %v", event["hostname"])
		}
	case <-time.After(time.Second):
		t.Fatal("expected a buffered event without redis")
	}

	m.PublishStatsUpdate(42)
	select {
	case data := <-m.Events():
		var event map[string]interface{}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event["type"] != "stats_update" {
			t.Fatalf("unexpected event type %v", event["type"])
		}
	case <-time.After(time.Second):
		t.Fatal("expected stats event")
	}
}

func TestIsAvailableWithoutRedis(t *testing.T) {
	m := NewManager("")
	if m.IsAvailable() {
		t.Fatal("no redis configured, availability must be false")
	}
}
