package tariff

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	redisAddr := os.Getenv("METER_TEST_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("METER_TEST_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	ctx := context.Background()
	rdb.Del(ctx, redisKey())

	store := NewRedisStore(rdb)
	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	want := Tariff{BaseFare: 32, BaseDistanceKm: 1.8, RatePerKm: 16}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("METER_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("METER_TEST_DB_DSN not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM app_settings WHERE key = $1`, SettingsKey); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	want := Tariff{BaseFare: 28, BaseDistanceKm: 1.2, RatePerKm: 14}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestMemoryStoreEmpty(t *testing.T) {
	_, ok, err := NewMemoryStore().Load(context.Background())
	if err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
}
