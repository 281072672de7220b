package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests. It mirrors the Postgres
// implementation's semantics, including atomicity of the read-modify-write
// primitives (guarded by a single mutex).
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string][]byte // collection -> key -> raw doc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, key string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, key, data)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.load(collection, key)
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = normalize(v)
	}
	return s.storeDoc(collection, key, doc)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], key)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		doc map[string]any
		raw []byte
	}
	var matched []entry
	for key, raw := range s.data[collection] {
		doc, ok := s.load(collection, key)
		if !ok {
			continue
		}
		if q.Field != "" && jsonText(doc[q.Field]) != jsonText(q.Value) {
			continue
		}
		cp := make([]byte, len(raw))
		copy(cp, raw)
		matched = append(matched, entry{doc: doc, raw: cp})
	}

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := lessValue(matched[i].doc[q.OrderBy], matched[j].doc[q.OrderBy])
			if q.Descending {
				return !less && !equalValue(matched[i].doc[q.OrderBy], matched[j].doc[q.OrderBy])
			}
			return less
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	docs := make([]json.RawMessage, 0, len(matched))
	for _, e := range matched {
		docs = append(docs, e.raw)
	}
	return docs, nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.load(collection, key)
	if !ok {
		doc = map[string]any{}
	}
	current := int64(0)
	if v, ok := doc[field].(float64); ok {
		current = int64(v)
	}
	next := current + delta
	doc[field] = float64(next)
	if err := s.storeDoc(collection, key, doc); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *MemoryStore) ArrayAppend(ctx context.Context, collection, key, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.load(collection, key)
	if !ok {
		doc = map[string]any{}
	}
	arr, _ := doc[field].([]any)
	doc[field] = append(arr, normalize(value))
	return s.storeDoc(collection, key, doc)
}

func (s *MemoryStore) ArrayUnion(ctx context.Context, collection, key, field string, value any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.load(collection, key)
	if !ok {
		return false, ErrNotFound
	}
	norm := normalize(value)
	arr, _ := doc[field].([]any)
	for _, e := range arr {
		if equalValue(e, norm) {
			return false, nil
		}
	}
	doc[field] = append(arr, norm)
	if err := s.storeDoc(collection, key, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) ArrayRemove(ctx context.Context, collection, key, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.load(collection, key)
	if !ok {
		return nil
	}
	norm := normalize(value)
	arr, _ := doc[field].([]any)
	kept := make([]any, 0, len(arr))
	for _, e := range arr {
		if !equalValue(e, norm) {
			kept = append(kept, e)
		}
	}
	doc[field] = kept
	return s.storeDoc(collection, key, doc)
}

func (s *MemoryStore) UpdateIf(ctx context.Context, collection, key, condField string, condValue any, fields map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.load(collection, key)
	if !ok {
		return false, nil
	}
	if jsonText(doc[condField]) != jsonText(condValue) {
		return false, nil
	}
	for k, v := range fields {
		doc[k] = normalize(v)
	}
	if err := s.storeDoc(collection, key, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data[collection])), nil
}

// load unmarshals a stored document. Caller must hold the mutex.
func (s *MemoryStore) load(collection, key string) (map[string]any, bool) {
	raw, ok := s.data[collection][key]
	if !ok {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// storeDoc marshals and stores a document. Caller must hold the mutex.
func (s *MemoryStore) storeDoc(collection, key string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, key, err)
	}
	s.put(collection, key, data)
	return nil
}

func (s *MemoryStore) put(collection, key string, data []byte) {
	if s.data[collection] == nil {
		s.data[collection] = make(map[string][]byte)
	}
	s.data[collection][key] = data
}

// normalize round-trips a value through JSON so stored shapes match what
// Unmarshal produces (numbers as float64, structs as maps).
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func equalValue(a, b any) bool {
	ad, _ := json.Marshal(a)
	bd, _ := json.Marshal(b)
	return string(ad) == string(bd)
}
