package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemStoreGetAbsent(t *testing.T) {
	store := NewMemStore()
	value, ok, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok || value != nil {
		t.Fatalf("Expected absent, got %q", value)
	}
}

func TestMemStoreSetGet(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	if err := store.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatal(err)
	}
	value, ok, err := store.Get(ctx, "key")
	if err != nil || !ok {
		t.Fatalf("Expected hit, ok=%v err=%v", ok, err)
	}
	if string(value) != "value" {
		t.Fatalf("Value is %q", value)
	}
}

func TestMemStoreExpiry(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	store.Set(ctx, "short", []byte("value"), 10*time.Millisecond)
	store.Set(ctx, "forever", []byte("value"), 0)
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "short"); ok {
		t.Fatal("Expired entry still served")
	}
	if _, ok, _ := store.Get(ctx, "forever"); !ok {
		t.Fatal("Entry without expiry gone")
	}
}

func TestMemStoreHashRoundtrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	store.HSet(ctx, "record", "request", "{}", time.Minute)
	store.HSet(ctx, "record", "response", `{"x":1}`, time.Minute)
	fields, ok, err := store.HGet(ctx, "record")
	if err != nil || !ok {
		t.Fatalf("Expected record, ok=%v err=%v", ok, err)
	}
	if fields["request"] != "{}" || fields["response"] != `{"x":1}` {
		t.Fatalf("Fields are %v", fields)
	}
}

func TestMemStoreHashCopyIsDetached(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	store.HSet(ctx, "record", "field", "value", 0)
	fields, _, _ := store.HGet(ctx, "record")
	fields["field"] = "changed"
	again, _, _ := store.HGet(ctx, "record")
	if again["field"] != "value" {
		t.Fatalf("Stored record mutated through returned map: %v", again)
	}
}

func TestMemStoreDelete(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	store.Set(ctx, "key", []byte("value"), 0)
	removed, err := store.Delete(ctx, "key")
	if err != nil || !removed {
		t.Fatalf("Expected removal, removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "key")
	if err != nil || removed {
		t.Fatalf("Second delete removed=%v err=%v", removed, err)
	}
}
