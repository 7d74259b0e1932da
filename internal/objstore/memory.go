package objstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store, used by tests and dry runs. It accepts any
// scheme.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string

	// Call counters, for assertions in tests.
	Lists, Gets, Puts, Deletes int

	// FailGet and FailPut, when set, are consulted before each call and
	// their error is returned unchanged.
	FailGet func(URI) error
	FailPut func(URI) error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		objects: map[string][]byte{},
		meta:    map[string]map[string]string{},
	}
}

// Seed stores body at u without counting a Put.
func (m *Memory) Seed(u URI, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[u.String()] = append([]byte(nil), body...)
}

// Snapshot returns a copy of all stored objects keyed by URI string.
func (m *Memory) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Meta returns the metadata stored with u.
func (m *Memory) Meta(u URI) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[u.String()]
}

// List implements Store.
func (m *Memory) List(ctx context.Context, prefix URI) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++

	p := prefix.String()
	var out []Object
	for k, v := range m.objects {
		if !strings.HasPrefix(k, p) {
			continue
		}
		u, err := ParseURI(k)
		if err != nil {
			continue
		}
		out = append(out, Object{URI: u, Size: int64(len(v))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI.String() < out[j].URI.String() })
	return out, nil
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, u URI) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.FailGet != nil {
		if err := m.FailGet(u); err != nil {
			return nil, err
		}
	}
	b, ok := m.objects[u.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, u URI, body []byte, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if m.FailPut != nil {
		if err := m.FailPut(u); err != nil {
			return err
		}
	}
	m.objects[u.String()] = append([]byte(nil), body...)
	if meta != nil {
		m.meta[u.String()] = meta
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, prefix URI) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	p := prefix.String()
	n := 0
	for k := range m.objects {
		if strings.HasPrefix(k, p) {
			delete(m.objects, k)
			delete(m.meta, k)
			n++
		}
	}
	return n, nil
}
