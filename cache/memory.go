package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	expires time.Time
	value   []byte
}

type memRecord struct {
	expires time.Time
	fields  map[string]string
}

// MemStore is an in-memory Store for tests and single-process setups.
type MemStore struct {
	mutex   *sync.RWMutex
	entries map[string]memEntry
	records map[string]memRecord
}

func NewMemStore() MemStore {
	return MemStore{
		mutex:   &sync.RWMutex{},
		entries: make(map[string]memEntry),
		records: make(map[string]memRecord),
	}
}

func (m MemStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entry, ok := m.entries[key]
	if !ok || expired(entry.expires) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m MemStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries[key] = memEntry{expiresAt(ttl), value}
	return nil
}

func (m MemStore) HGet(ctx context.Context, key string) (map[string]string, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	record, ok := m.records[key]
	if !ok || expired(record.expires) {
		return nil, false, nil
	}
	// copy so callers cannot mutate the stored record
	fields := make(map[string]string, len(record.fields))
	for name, value := range record.fields {
		fields[name] = value
	}
	return fields, true, nil
}

func (m MemStore) HSet(ctx context.Context, key, field, value string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	record, ok := m.records[key]
	if !ok || expired(record.expires) {
		record = memRecord{fields: make(map[string]string)}
	}
	record.fields[field] = value
	record.expires = expiresAt(ttl)
	m.records[key] = record
	return nil
}

func (m MemStore) Delete(ctx context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, hadEntry := m.entries[key]
	_, hadRecord := m.records[key]
	delete(m.entries, key)
	delete(m.records, key)
	return hadEntry || hadRecord, nil
}
