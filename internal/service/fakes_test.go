package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/atishaytuli/YURL/internal/cache"
	"github.com/atishaytuli/YURL/internal/geo"
	"github.com/atishaytuli/YURL/internal/types"
)

// fakeStore is an in-memory LinkStore mirroring the Postgres contract:
// sql.ErrNoRows for misses, a pq unique violation for duplicate codes.
type fakeStore struct {
	mu         sync.Mutex
	links      map[string]*types.Link
	failCreate error
	failExists error
}

func newFakeStore() *fakeStore {
	return &fakeStore{links: map[string]*types.Link{}}
}

func (s *fakeStore) CreateLink(_ context.Context, link *types.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	for _, existing := range s.links {
		if resolves(existing, link.ShortCode) || (link.CustomAlias != "" && resolves(existing, link.CustomAlias)) {
			return &pq.Error{Code: "23505"}
		}
	}
	link.ID = uuid.NewString()
	link.CreatedAt = time.Now()
	stored := *link
	s.links[link.ID] = &stored
	return nil
}

func (s *fakeStore) GetLink(_ context.Context, id, ownerID string) (*types.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok || link.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	out := *link
	return &out, nil
}

func (s *fakeStore) ResolveCode(_ context.Context, code string) (*types.ResolvedLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.links {
		if resolves(link, code) {
			return &types.ResolvedLink{ID: link.ID, OriginalURL: link.OriginalURL}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExists != nil {
		return false, s.failExists
	}
	for _, link := range s.links {
		if resolves(link, code) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) DeleteLink(_ context.Context, id string) (*types.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.links, id)
	out := *link
	return &out, nil
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID string) ([]types.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := []types.Link{}
	for _, link := range s.links {
		if link.OwnerID == ownerID {
			links = append(links, *link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

func resolves(link *types.Link, code string) bool {
	return link.ShortCode == code || (link.CustomAlias != "" && link.CustomAlias == code)
}

type fakeBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	removed    []string
	failPut    error
	failRemove error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (b *fakeBlobs) Put(_ context.Context, name string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut != nil {
		return "", b.failPut
	}
	b.objects[name] = data
	return "https://blobs.test/qrs/" + name, nil
}

func (b *fakeBlobs) Remove(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, name)
	if b.failRemove != nil {
		return b.failRemove
	}
	delete(b.objects, name)
	return nil
}

func (b *fakeBlobs) has(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[name]
	return ok
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*types.ResolvedLink
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*types.ResolvedLink{}}
}

func (c *fakeCache) GetResolved(_ context.Context, code string) (*types.ResolvedLink, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resolved, ok := c.entries[code]
	if !ok {
		return nil, cache.ErrMiss
	}
	out := *resolved
	return &out, nil
}

func (c *fakeCache) SetResolved(_ context.Context, code string, resolved *types.ResolvedLink, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *resolved
	c.entries[code] = &stored
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []types.ClickEvent
}

func (s *fakeSink) PushClick(event types.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) all() []types.ClickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ClickEvent(nil), s.events...)
}

// fakeLocator answers after an optional delay, to exercise the timeout
// bound around geolocation.
type fakeLocator struct {
	loc   geo.Location
	err   error
	delay time.Duration
}

func (l *fakeLocator) Locate(ctx context.Context, _ string) (geo.Location, error) {
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return geo.Unknown, ctx.Err()
		}
	}
	return l.loc, l.err
}

type fakeSource struct {
	events map[string][]types.ClickEvent
}

func (s *fakeSource) EventsForLink(_ context.Context, linkID string) ([]types.ClickEvent, error) {
	return s.events[linkID], nil
}

func newTestRegistry() (*Registry, *fakeStore, *fakeBlobs, *fakeCache) {
	store := newFakeStore()
	blobs := newFakeBlobs()
	resolveCache := newFakeCache()
	registry := NewRegistry(store, blobs, resolveCache, NewCodeGenerator(store), "http://short.test")
	return registry, store, blobs, resolveCache
}
