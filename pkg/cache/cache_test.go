package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yeisme/filegate/pkg/cache"
)

// scanVerdict 扫描判定缓存条目的形态.
type scanVerdict struct {
	Digest  string `json:"digest"`
	Clean   bool   `json:"clean"`
	Scanner string `json:"scanner"`
}

// memStore 进程内 KVStore，用于不依赖外部服务的缓存测试.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}

	return nil, fmt.Errorf("key not found: %s", key)
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *memStore) Keys(_ context.Context, _ string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	return keys, nil
}

func (m *memStore) Close() error { return nil }

func TestSetThenGetRoundTrip(t *testing.T) {
	c := cache.NewCache(newMemStore())
	ctx := context.Background()

	verdict := scanVerdict{Digest: "ab12", Clean: true, Scanner: "clamd"}

	if err := cache.Set(ctx, c, "scan:clean:ab12", verdict, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := cache.Get[scanVerdict](ctx, c, "scan:clean:ab12")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got != verdict {
		t.Errorf("got %+v, want %+v", got, verdict)
	}
}

func TestGetMissingKeyErrors(t *testing.T) {
	c := cache.NewCache(newMemStore())

	if _, err := cache.Get[scanVerdict](context.Background(), c, "scan:clean:missing"); err == nil {
		t.Error("expected error on cache miss")
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	c := cache.NewCache(newMemStore())
	ctx := context.Background()

	if err := cache.Set(ctx, c, "scan:clean:x", true, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := c.Delete(ctx, "scan:clean:x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	exists, err := c.Exists(ctx, "scan:clean:x")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}

	if exists {
		t.Error("key still present after delete")
	}
}

func TestGetOrSetInvokesGetterOnceOnMiss(t *testing.T) {
	c := cache.NewCache(newMemStore())
	ctx := context.Background()
	calls := 0

	getter := func() (scanVerdict, error) {
		calls++
		return scanVerdict{Digest: "cd34", Clean: true}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "scan:clean:cd34", getter, time.Hour)
	if err != nil {
		t.Fatalf("GetOrSet miss: %v", err)
	}

	second, err := cache.GetOrSet(ctx, c, "scan:clean:cd34", getter, time.Hour)
	if err != nil {
		t.Fatalf("GetOrSet hit: %v", err)
	}

	if calls != 1 {
		t.Errorf("getter called %d times, want 1", calls)
	}

	if first != second {
		t.Errorf("hit returned %+v, miss returned %+v", second, first)
	}
}

func TestGetOrSetPropagatesGetterError(t *testing.T) {
	c := cache.NewCache(newMemStore())

	_, err := cache.GetOrSet(context.Background(), c, "scan:clean:bad", func() (bool, error) {
		return false, fmt.Errorf("engine unavailable")
	}, 0)
	if err == nil {
		t.Error("expected getter error to propagate")
	}
}

func TestClearDropsAllKeys(t *testing.T) {
	store := newMemStore()
	c := cache.NewCache(store)
	ctx := context.Background()

	for _, digest := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, c, "scan:clean:"+digest, true, 0); err != nil {
			t.Fatalf("Set(%s): %v", digest, err)
		}
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if len(store.data) != 0 {
		t.Errorf("%d keys remain after clear", len(store.data))
	}
}
