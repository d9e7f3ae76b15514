package cache

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteStoreSetGet(t *testing.T) {
	store := NewSQLiteStore("")
	ctx := context.Background()
	if err := store.Set(ctx, "sqlite-key", []byte("value"), time.Minute); err != nil {
		t.Fatal(err)
	}
	value, ok, err := store.Get(ctx, "sqlite-key")
	if err != nil || !ok {
		t.Fatalf("Expected hit, ok=%v err=%v", ok, err)
	}
	if string(value) != "value" {
		t.Fatalf("Value is %q", value)
	}
}

func TestSQLiteStoreGetAbsentIsNotAnError(t *testing.T) {
	store := NewSQLiteStore("")
	_, ok, err := store.Get(context.Background(), "sqlite-missing")
	if err != nil {
		t.Fatalf("Absent key returned error: %v", err)
	}
	if ok {
		t.Fatal("Absent key reported as hit")
	}
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	store := NewSQLiteStore("")
	ctx := context.Background()
	store.Set(ctx, "sqlite-over", []byte("first"), time.Minute)
	store.Set(ctx, "sqlite-over", []byte("second"), time.Minute)
	value, _, _ := store.Get(ctx, "sqlite-over")
	if string(value) != "second" {
		t.Fatalf("Value is %q", value)
	}
}

func TestSQLiteStoreHashRefreshesExpiry(t *testing.T) {
	store := NewSQLiteStore("")
	ctx := context.Background()
	// first write with an already minimal expiry, second write refreshes it
	store.HSet(ctx, "sqlite-record", "request", "{}", time.Second)
	store.HSet(ctx, "sqlite-record", "response", `{"x":1}`, time.Hour)
	fields, ok, err := store.HGet(ctx, "sqlite-record")
	if err != nil || !ok {
		t.Fatalf("Expected record, ok=%v err=%v", ok, err)
	}
	if len(fields) != 2 {
		t.Fatalf("Fields are %v", fields)
	}
}

func TestSQLiteStoreDeleteCoversBothTables(t *testing.T) {
	store := NewSQLiteStore("")
	ctx := context.Background()
	store.Set(ctx, "sqlite-both", []byte("value"), 0)
	store.HSet(ctx, "sqlite-both", "field", "value", 0)
	removed, err := store.Delete(ctx, "sqlite-both")
	if err != nil || !removed {
		t.Fatalf("Expected removal, removed=%v err=%v", removed, err)
	}
	if _, ok, _ := store.Get(ctx, "sqlite-both"); ok {
		t.Fatal("Entry still present after delete")
	}
	if _, ok, _ := store.HGet(ctx, "sqlite-both"); ok {
		t.Fatal("Record still present after delete")
	}
}
