package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"petcare/domain"
)

func TestRedisDeduper(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})

	deduper := NewRedisDeduper(client, "petcare:", time.Minute)
	ctx := context.Background()

	added, err := deduper.Add(ctx, "k1")
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = deduper.Add(ctx, "k1")
	if err != nil || added {
		t.Fatalf("second add must be duplicate: added=%v err=%v", added, err)
	}
	if !m.Exists("petcare:cmd:k1") {
		t.Fatalf("expected namespaced key, got %v", m.Keys())
	}
	if ttl := m.TTL("petcare:cmd:k1"); ttl != time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := deduper.Remove(ctx, "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err = deduper.Add(ctx, "k1")
	if err != nil || !added {
		t.Fatalf("add after remove: added=%v err=%v", added, err)
	}
}

func TestMemoryDeduperExpires(t *testing.T) {
	clock := domain.NewFakeClock(time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))
	deduper := NewMemoryDeduper(time.Hour, clock)
	ctx := context.Background()

	if added, _ := deduper.Add(ctx, "k"); !added {
		t.Fatalf("expected first add")
	}
	if added, _ := deduper.Add(ctx, "k"); added {
		t.Fatalf("expected duplicate")
	}
	clock.Advance(time.Hour)
	if added, _ := deduper.Add(ctx, "k"); !added {
		t.Fatalf("expected key to expire")
	}
	deduper.Remove(ctx, "k")
	if added, _ := deduper.Add(ctx, "k"); !added {
		t.Fatalf("expected add after remove")
	}
}
