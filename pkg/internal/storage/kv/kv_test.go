package kv

import (
	"context"
	"testing"
	"time"
)

func TestMemoryKVSetGetDelete(t *testing.T) {
	store, err := NewKVStore(context.Background(), KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	key := "scan-clean-ab12cd34"

	if err := store.Set(ctx, key, []byte("1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if string(got) != "1" {
		t.Errorf("value = %q, want %q", got, "1")
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}

	if !exists {
		t.Error("key should exist after set")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Get(ctx, key); err == nil {
		t.Error("expected error reading deleted key")
	}
}

func TestMemoryKVGetReturnsCopy(t *testing.T) {
	store, err := NewKVStore(context.Background(), KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("orig"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	first, _ := store.Get(ctx, "k")
	first[0] = 'X'

	second, _ := store.Get(ctx, "k")
	if string(second) != "orig" {
		t.Errorf("stored value mutated through returned slice: %q", second)
	}
}

func TestRegisteredKVTypesIncludeMemory(t *testing.T) {
	found := false

	for _, typ := range GetRegisteredKVTypes() {
		if typ == KVTypeMemory {
			found = true
		}
	}

	if !found {
		t.Error("memory kv factory not registered")
	}
}

func TestNewKVStoreUnknownType(t *testing.T) {
	if _, err := NewKVStore(context.Background(), KVType("bolt"), nil); err == nil {
		t.Error("expected error for unregistered kv type")
	}
}

func TestTTLWrapperRoundTrip(t *testing.T) {
	raw := []byte("clean")

	encoded, wrapped, err := encodeWithTTL(raw, time.Minute)
	if err != nil {
		t.Fatalf("encodeWithTTL: %v", err)
	}

	if !wrapped {
		t.Fatal("positive ttl should wrap value")
	}

	value, expired, wasWrapped, err := decodeWithTTL(encoded, time.Now())
	if err != nil {
		t.Fatalf("decodeWithTTL: %v", err)
	}

	if !wasWrapped || expired {
		t.Errorf("wrapped=%v expired=%v, want wrapped and not expired", wasWrapped, expired)
	}

	if string(value) != "clean" {
		t.Errorf("value = %q, want %q", value, "clean")
	}
}

func TestTTLWrapperExpires(t *testing.T) {
	encoded, _, err := encodeWithTTL([]byte("clean"), time.Second)
	if err != nil {
		t.Fatalf("encodeWithTTL: %v", err)
	}

	_, expired, _, err := decodeWithTTL(encoded, time.Now().Add(2*time.Second))
	if err != nil {
		t.Fatalf("decodeWithTTL: %v", err)
	}

	if !expired {
		t.Error("value past its deadline should report expired")
	}
}

func TestTTLWrapperPassThroughUnwrapped(t *testing.T) {
	raw := []byte("plain bytes without wrapper")

	encoded, wrapped, err := encodeWithTTL(raw, 0)
	if err != nil {
		t.Fatalf("encodeWithTTL: %v", err)
	}

	if wrapped {
		t.Error("zero ttl should not wrap")
	}

	value, expired, wasWrapped, err := decodeWithTTL(encoded, time.Now())
	if err != nil {
		t.Fatalf("decodeWithTTL: %v", err)
	}

	if wasWrapped || expired {
		t.Errorf("wrapped=%v expired=%v for plain value", wasWrapped, expired)
	}

	if string(value) != string(raw) {
		t.Errorf("value = %q, want %q", value, raw)
	}
}
