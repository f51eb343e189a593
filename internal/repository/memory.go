package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"collections-review-backend/internal/models"
	"collections-review-backend/internal/partition"
)

// MemoryStore is the in-memory RecordStore used by tests and local runs
// without a database. Rows keep their position after deletions (gaps,
// never renumbering), matching the SQL store's locator semantics.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[string][]*models.Record
	versions map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[string][]*models.Record),
		versions: make(map[string]int),
	}
}

// SetSchemaVersion marks an existing partition as created under an older
// schema, for drift tests.
func (s *MemoryStore) SetSchemaVersion(key string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[key] = version
}

func (s *MemoryStore) EnsurePartition(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[key]; !ok {
		s.rows[key] = nil
		s.versions[key] = models.CurrentSchemaVersion
	}
	return nil
}

func (s *MemoryStore) Partitions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.rows {
		if partition.IsKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Append(_ context.Context, key string, rec *models.Record) (Locator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	clone.Pos = len(s.rows[key]) + 1
	s.rows[key] = append(s.rows[key], &clone)
	rec.Pos = clone.Pos
	return Locator{Partition: key, Pos: clone.Pos}, nil
}

func (s *MemoryStore) Records(_ context.Context, key string) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rows[key]; !ok {
		return nil, ErrNotFound
	}
	version := s.versions[key]
	var out []models.Record
	for _, r := range s.rows[key] {
		if r == nil {
			continue
		}
		rec := *r
		models.TrimToSchema(&rec, version)
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) get(loc Locator) (*models.Record, bool) {
	rows, ok := s.rows[loc.Partition]
	if !ok || loc.Pos < 1 || loc.Pos > len(rows) || rows[loc.Pos-1] == nil {
		return nil, false
	}
	return rows[loc.Pos-1], true
}

func (s *MemoryStore) Get(_ context.Context, loc Locator) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.get(loc)
	if !ok {
		return nil, ErrNotFound
	}
	rec := *r
	models.TrimToSchema(&rec, s.versions[loc.Partition])
	return &rec, nil
}

func (s *MemoryStore) ReferenceNumbers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []string
	for _, r := range s.rows[key] {
		if r != nil {
			refs = append(refs, r.ReferenceNumber)
		}
	}
	return refs, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, loc Locator, status models.ReviewStatus, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.get(loc)
	if !ok {
		return ErrNotFound
	}
	r.ReviewStatus = status
	r.ReviewComment = comment
	return nil
}

func (s *MemoryStore) ApplyAssignments(_ context.Context, key string, assignments map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pos, reviewer := range assignments {
		r, ok := s.get(Locator{Partition: key, Pos: pos})
		if !ok || r.AssignedReviewer != "" {
			continue
		}
		r.AssignedReviewer = reviewer
		r.ReviewStatus = models.StatusPending
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, loc Locator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.get(loc); !ok {
		return ErrNotFound
	}
	s.rows[loc.Partition][loc.Pos-1] = nil
	return nil
}

type MemoryOverrides struct {
	mu    sync.RWMutex
	rules map[string]models.OverrideRule
}

func NewMemoryOverrides() *MemoryOverrides {
	return &MemoryOverrides{rules: make(map[string]models.OverrideRule)}
}

func (r *MemoryOverrides) List(_ context.Context) ([]models.OverrideRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.OverrideRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorCode < out[j].VendorCode })
	return out, nil
}

func (r *MemoryOverrides) Put(_ context.Context, rule models.OverrideRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.VendorCode] = rule
	return nil
}

func (r *MemoryOverrides) Remove(_ context.Context, vendorCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[vendorCode]; !ok {
		return ErrNotFound
	}
	delete(r.rules, vendorCode)
	return nil
}

func (r *MemoryOverrides) Map(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := make(map[string]string, len(r.rules))
	for code, rule := range r.rules {
		m[code] = rule.Reviewer
	}
	return m, nil
}

type MemoryAudit struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (a *MemoryAudit) Append(_ context.Context, entry models.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *MemoryAudit) ForRecord(_ context.Context, recordID string) ([]models.AuditEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []models.AuditEntry
	for _, e := range a.entries {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

type MemoryDeletionLog struct {
	mu        sync.RWMutex
	snapshots []models.DeletedRecord
}

func NewMemoryDeletionLog() *MemoryDeletionLog {
	return &MemoryDeletionLog{}
}

func (d *MemoryDeletionLog) Append(_ context.Context, snapshot models.DeletedRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots = append(d.snapshots, snapshot)
	return nil
}

func (d *MemoryDeletionLog) Snapshots() []models.DeletedRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.DeletedRecord(nil), d.snapshots...)
}

type MemoryVendors struct {
	mu     sync.RWMutex
	byCode map[string]string
}

func NewMemoryVendors() *MemoryVendors {
	return &MemoryVendors{byCode: make(map[string]string)}
}

func (v *MemoryVendors) Upsert(_ context.Context, code, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.byCode[code] = name
	return nil
}

func (v *MemoryVendors) CodeByName(_ context.Context, name string) (string, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	want := strings.ToLower(strings.TrimSpace(name))
	for code, n := range v.byCode {
		if strings.ToLower(n) == want {
			return code, true, nil
		}
	}
	return "", false, nil
}

type memoryCursor struct {
	index   int
	expires time.Time
}

// MemoryCache mirrors RedisCache for tests: TTL'd cursors plus the
// monotonic last-update signal.
type MemoryCache struct {
	mu      sync.Mutex
	cursors map[string]memoryCursor
	ttl     time.Duration
	last    time.Time
	now     func() time.Time
}

func NewMemoryCache(cursorTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		cursors: make(map[string]memoryCursor),
		ttl:     cursorTTL,
		now:     time.Now,
	}
}

// SetClock overrides the cache clock, for expiry tests.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *MemoryCache) Get(_ context.Context, branch string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[branch]
	if !ok || c.now().After(cur.expires) {
		return -1, nil
	}
	return cur.index, nil
}

func (c *MemoryCache) Set(_ context.Context, branch string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursors[branch] = memoryCursor{index: index, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Touch(_ context.Context, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !at.After(c.last) {
		at = c.last.Add(time.Nanosecond)
	}
	c.last = at
	return nil
}

func (c *MemoryCache) Last(_ context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, nil
}
