package cookies

import (
	"encoding/json"
	"net/url"
	"os"
	"sync"

	"tabengine/ids"
)

// Store is the persistence hook a PersistentJar snapshots into after every
// mutation. Implementations decide how (or whether) to batch writes.
type Store interface {
	PersistZoneFromSnapshot(zone ids.ZoneId, snapshot map[string][]Cookie) error
	LoadZone(zone ids.ZoneId) (map[string][]Cookie, error)
}

// InMemoryStore is a Store that just keeps the latest snapshot per zone in
// memory; useful for tests and for engines that opt out of disk
// persistence entirely.
type InMemoryStore struct {
	mu   sync.Mutex
	data map[ids.ZoneId]map[string][]Cookie
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[ids.ZoneId]map[string][]Cookie)}
}

func (s *InMemoryStore) PersistZoneFromSnapshot(zone ids.ZoneId, snapshot map[string][]Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[zone] = snapshot
	return nil
}

func (s *InMemoryStore) LoadZone(zone ids.ZoneId) (map[string][]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[zone], nil
}

// JSONFileStore persists each zone's cookies to its own JSON file under a
// directory, one file per zone named by zone id.
type JSONFileStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONFileStore returns a Store rooted at dir. dir is not created here;
// callers must ensure it exists before the first persist.
func NewJSONFileStore(dir string) *JSONFileStore {
	return &JSONFileStore{dir: dir}
}

func (s *JSONFileStore) path(zone ids.ZoneId) string {
	return s.dir + "/" + zone.String() + ".json"
}

func (s *JSONFileStore) PersistZoneFromSnapshot(zone ids.ZoneId, snapshot map[string][]Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(zone), b, 0o600)
}

func (s *JSONFileStore) LoadZone(zone ids.ZoneId) (map[string][]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path(zone))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot map[string][]Cookie
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// PersistentJar wraps an inner Jar and snapshots it into a Store after
// every mutating call, so a zone's cookies survive a process restart when
// the Store is disk-backed.
type PersistentJar struct {
	zone  ids.ZoneId
	inner *DefaultJar
	store Store
}

// NewPersistentJar returns a PersistentJar over a fresh DefaultJar,
// restoring it from store if a prior snapshot for zone exists.
func NewPersistentJar(zone ids.ZoneId, store Store) (*PersistentJar, error) {
	inner := NewDefaultJar()
	if snapshot, err := store.LoadZone(zone); err != nil {
		return nil, err
	} else if snapshot != nil {
		inner.Restore(snapshot)
	}
	return &PersistentJar{zone: zone, inner: inner, store: store}, nil
}

func (p *PersistentJar) persist() {
	_ = p.store.PersistZoneFromSnapshot(p.zone, p.inner.Snapshot())
}

func (p *PersistentJar) StoreResponseCookies(requestURL *url.URL, setCookieHeaders []string) {
	p.inner.StoreResponseCookies(requestURL, setCookieHeaders)
	p.persist()
}

func (p *PersistentJar) GetRequestCookies(requestURL *url.URL) []Cookie {
	return p.inner.GetRequestCookies(requestURL)
}

func (p *PersistentJar) GetAllCookies() []Cookie {
	return p.inner.GetAllCookies()
}

func (p *PersistentJar) RemoveCookie(origin, name string) {
	p.inner.RemoveCookie(origin, name)
	p.persist()
}

func (p *PersistentJar) RemoveCookiesForURL(u *url.URL) {
	p.inner.RemoveCookiesForURL(u)
	p.persist()
}

func (p *PersistentJar) Clear() {
	p.inner.Clear()
	p.persist()
}
