package guestcart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/redis"
)

type memoryKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryKV) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = "1"
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) GuestCartKey(sessionID string) string { return "shop:guest_cart:" + sessionID }
func (m *memoryKV) MergeLockKey(sessionID string) string { return "shop:merge_lock:" + sessionID }

func TestRedisStoreRoundTripAndTTL(t *testing.T) {
	kv := newMemoryKV()
	store, err := NewRedisStore(kv, time.Hour, 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	empty, err := store.Load(ctx, "s1")
	if err != nil || !empty.IsEmpty() {
		t.Fatalf("missing snapshot should load empty, got %+v err=%v", empty, err)
	}

	cart := &Cart{}
	cart.Add(Line{ProductID: 7, Name: "Areia", UnitPrice: decimal.RequireFromString("19.90"), Quantity: 2})
	if err := store.Save(ctx, "s1", cart); err != nil {
		t.Fatalf("save: %v", err)
	}
	if kv.ttls["shop:guest_cart:s1"] != time.Hour {
		t.Fatalf("expected ttl to be applied, got %v", kv.ttls["shop:guest_cart:s1"])
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Lines) != 1 || loaded.Lines[0].Quantity != 2 || !loaded.Lines[0].UnitPrice.Equal(decimal.RequireFromString("19.90")) {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}

	if err := store.Save(ctx, "s1", &Cart{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if _, ok := kv.data["shop:guest_cart:s1"]; ok {
		t.Fatalf("saving an empty cart should delete the key")
	}
}

func TestRedisStoreDropsCorruptSnapshot(t *testing.T) {
	kv := newMemoryKV()
	kv.data["shop:guest_cart:s1"] = "{not json"
	store, _ := NewRedisStore(kv, 0, 0)

	cart, err := store.Load(context.Background(), "s1")
	if err != nil || !cart.IsEmpty() {
		t.Fatalf("corrupt snapshot should load empty, got %+v err=%v", cart, err)
	}
	if _, ok := kv.data["shop:guest_cart:s1"]; ok {
		t.Fatalf("corrupt snapshot should be removed")
	}
}

func TestRedisStoreMergeLock(t *testing.T) {
	kv := newMemoryKV()
	store, _ := NewRedisStore(kv, 0, 0)
	ctx := context.Background()

	ok, err := store.AcquireMerge(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("first acquire should succeed")
	}
	if kv.ttls["shop:merge_lock:s1"] != defaultMergeLockTTL {
		t.Fatalf("expected default lock ttl")
	}
	if ok, _ := store.AcquireMerge(ctx, "s1"); ok {
		t.Fatalf("second acquire should fail")
	}
	if err := store.ReleaseMerge(ctx, "s1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := store.AcquireMerge(ctx, "s1"); !ok {
		t.Fatalf("acquire after release should succeed")
	}
}
