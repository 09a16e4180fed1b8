package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)

// exerciseStore runs the same scenario against any Store implementation
func exerciseStore(t *testing.T, s Store, chatID int64) {
	ctx := context.Background()

	added, err := s.AddWatch(ctx, chatID, " BTC ", "nova")
	if err != nil || !added {
		t.Fatalf("AddWatch() = %v, %v", added, err)
	}
	added, err = s.AddWatch(ctx, chatID, "btc", "luna")
	if err != nil || added {
		t.Errorf("duplicate AddWatch() = %v, %v", added, err)
	}
	if _, err := s.AddWatch(ctx, chatID, "eth", "nova"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddWatch(ctx, chatID+1, "pepe", "ember"); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListWatchlist(ctx, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Query != "btc" || list[0].Persona != "nova" {
		t.Errorf("ListWatchlist() = %+v", list)
	}

	all, err := s.AllWatchlists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	groups := GroupByChat(all)
	if len(groups[chatID]) != 2 || len(groups[chatID+1]) != 1 {
		t.Errorf("groups = %+v", groups)
	}

	removed, err := s.RemoveWatch(ctx, chatID, "BTC")
	if err != nil || !removed {
		t.Errorf("RemoveWatch() = %v, %v", removed, err)
	}
	removed, err = s.RemoveWatch(ctx, chatID, "btc")
	if err != nil || removed {
		t.Errorf("second RemoveWatch() = %v, %v", removed, err)
	}

	persona, err := s.GetPersona(ctx, chatID)
	if err != nil || persona != "" {
		t.Errorf("GetPersona() before set = %q, %v", persona, err)
	}
	if err := s.SetPersona(ctx, chatID, "vega"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPersona(ctx, chatID, "astra"); err != nil {
		t.Fatal(err)
	}
	persona, err = s.GetPersona(ctx, chatID)
	if err != nil || persona != "astra" {
		t.Errorf("GetPersona() = %q, %v", persona, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory(), 42)
}

func TestMemoryWatchlistLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < MaxWatchlist; i++ {
		if _, err := m.AddWatch(ctx, 1, fmt.Sprintf("token-%d", i), "nova"); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := m.AddWatch(ctx, 1, "one-more", "nova"); !errors.Is(err, ErrWatchlistFull) {
		t.Errorf("error = %v, want ErrWatchlistFull", err)
	}
	// re-adding an existing token is not an overflow
	if added, err := m.AddWatch(ctx, 1, "token-0", "nova"); err != nil || added {
		t.Errorf("existing AddWatch() = %v, %v", added, err)
	}
}

func TestListWatchlistReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddWatch(ctx, 7, "sol", "nova")

	list, _ := m.ListWatchlist(ctx, 7)
	list[0].Query = "changed"

	again, _ := m.ListWatchlist(ctx, 7)
	if again[0].Query != "sol" {
		t.Error("caller mutated the store")
	}
}

func TestDSN(t *testing.T) {
	p := ConnectionParams{Host: "db", Port: "5432", User: "nova", Password: "pw", DBName: "nova", SSLMode: "disable"}
	want := "host=db port=5432 user=nova password=pw dbname=nova sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q", got)
	}
}

// TestPostgresStore runs against a live database when NOVA_TEST_DB_HOST is set
func TestPostgresStore(t *testing.T) {
	host := os.Getenv("NOVA_TEST_DB_HOST")
	if host == "" {
		t.Skip("NOVA_TEST_DB_HOST not set")
	}

	ctx := context.Background()
	db, err := New(ctx, ConnectionParams{
		Host:     host,
		Port:     envOr("NOVA_TEST_DB_PORT", "5432"),
		User:     envOr("NOVA_TEST_DB_USER", "postgres"),
		Password: os.Getenv("NOVA_TEST_DB_PASSWORD"),
		DBName:   envOr("NOVA_TEST_DB_NAME", "postgres"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	chatID := int64(-900001)
	cleanup := func() {
		db.ExecContext(ctx, `DELETE FROM watchlists WHERE chat_id IN ($1, $2)`, chatID, chatID+1)
		db.ExecContext(ctx, `DELETE FROM chat_settings WHERE chat_id = $1`, chatID)
	}
	cleanup()
	defer cleanup()

	exerciseStore(t, db, chatID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
