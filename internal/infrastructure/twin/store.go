package twin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/erp/economic/internal/domain/economic"
)

// Record is one stored row keyed by remote field names
type Record map[string]any

// Kind describes a stored entity type
type Kind struct {
	Name     string
	Identity string // remote identity field, e.g. "Number"
	ReadOnly bool
}

// Kinds lists the types the twin serves, longest name first so operation
// prefixes resolve unambiguously.
var Kinds = buildKinds(
	economic.DebtorType,
	economic.DebtorContactType,
	economic.CashBookType,
	economic.CurrentInvoiceType,
	economic.CurrentInvoiceLineType,
	economic.InvoiceType,
	economic.CreditorEntryType,
)

func buildKinds(types ...*economic.EntityType) []Kind {
	kinds := make([]Kind, 0, len(types))
	for _, t := range types {
		p, ok := t.Schema.Lookup(t.Identity)
		if !ok {
			panic(fmt.Sprintf("twin: %s has no identity property %q", t.Name, t.Identity))
		}
		kinds = append(kinds, Kind{Name: t.Name, Identity: p.Remote, ReadOnly: t.ReadOnly})
	}
	sort.SliceStable(kinds, func(i, j int) bool { return len(kinds[i].Name) > len(kinds[j].Name) })
	return kinds
}

// KindOf returns the kind named name
func KindOf(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

type table struct {
	records []Record
	next    int64
}

// Store holds all twin state in memory.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset clears all state
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*table, len(Kinds))
	for _, k := range Kinds {
		s.tables[k.Name] = &table{next: 1}
	}
}

func (s *Store) table(kind Kind) *table {
	t, ok := s.tables[kind.Name]
	if !ok {
		t = &table{next: 1}
		s.tables[kind.Name] = t
	}
	return t
}

// All returns copies of every record of kind in insertion order
func (s *Store) All(kind Kind) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.table(kind)
	out := make([]Record, len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// Get returns the record with the given identity value
func (s *Store) Get(kind Kind, id int64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.table(kind)
	i := t.index(kind, id)
	if i < 0 {
		return nil, false
	}
	return t.records[i].clone(), true
}

// Insert stores r. A missing or zero identity is assigned from the table's
// sequence; an identity already in use is rejected.
func (s *Store) Insert(kind Kind, r Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(kind)
	r = normalizeRecord(r)
	id, _ := asInt(r[kind.Identity])
	if id == 0 {
		id = t.next
	}
	if t.index(kind, id) >= 0 {
		return 0, fmt.Errorf("%s %d already exists", kind.Name, id)
	}
	r[kind.Identity] = id
	if id >= t.next {
		t.next = id + 1
	}
	t.records = append(t.records, r)
	return id, nil
}

// Update merges fields into the record with the given identity
func (s *Store) Update(kind Kind, id int64, fields Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(kind)
	i := t.index(kind, id)
	if i < 0 {
		return fmt.Errorf("%w: %s %d", economic.ErrNotFound, kind.Name, id)
	}
	for k, v := range normalizeRecord(fields) {
		if k == kind.Identity || k == "Handle" {
			continue
		}
		t.records[i][k] = v
	}
	return nil
}

// Delete removes the record with the given identity
func (s *Store) Delete(kind Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(kind)
	i := t.index(kind, id)
	if i < 0 {
		return fmt.Errorf("%w: %s %d", economic.ErrNotFound, kind.Name, id)
	}
	t.records = append(t.records[:i], t.records[i+1:]...)
	return nil
}

// DeleteAll removes every listed record, or none when one of them is missing
func (s *Store) DeleteAll(kind Kind, ids ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(kind)
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		i := t.index(kind, id)
		if i < 0 {
			return fmt.Errorf("%w: %s %d", economic.ErrNotFound, kind.Name, id)
		}
		drop[i] = true
	}
	kept := t.records[:0]
	for i, r := range t.records {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	t.records = kept
	return nil
}

// Where returns copies of the records matching pred
func (s *Store) Where(kind Kind, pred func(Record) bool) []Record {
	var out []Record
	for _, r := range s.All(kind) {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// NextID returns the identity the next insert without one would receive
func (s *Store) NextID(kind Kind) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table(kind).next
}

func (t *table) index(kind Kind, id int64) int {
	for i, r := range t.records {
		if v, ok := asInt(r[kind.Identity]); ok && v == id {
			return i
		}
	}
	return -1
}

// Snapshot returns the state keyed by type name
func (s *Store) Snapshot() map[string][]Record {
	out := make(map[string][]Record, len(Kinds))
	for _, k := range Kinds {
		out[k.Name] = s.All(k)
	}
	return out
}

// LoadState replaces the state with the JSON snapshot in data
func (s *Store) LoadState(data []byte) error {
	var snap map[string][]Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("twin: invalid state: %w", err)
	}
	return s.Seed(snap)
}

// Seed resets the store and inserts records keyed by type name
func (s *Store) Seed(records map[string][]Record) error {
	s.Reset()
	for name, rows := range records {
		kind, ok := KindOf(name)
		if !ok {
			return fmt.Errorf("twin: unknown type %q", name)
		}
		for _, r := range rows {
			if _, err := s.Insert(kind, r); err != nil {
				return fmt.Errorf("twin: seed %s: %w", name, err)
			}
		}
	}
	return nil
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Ref returns the identity stored in a nested handle field such as
// DebtorHandle.Number
func (r Record) Ref(field, key string) (int64, bool) {
	nested, ok := r[field].(map[string]any)
	if !ok {
		return 0, false
	}
	return asInt(nested[key])
}

func normalizeRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = normalize(v)
	}
	return out
}

// normalize converts decoded JSON and YAML values into one representation:
// integers as int64, timestamps as RFC 3339 strings, nested maps as map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		return val.String()
	case int:
		return int64(val)
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	case Record:
		return map[string]any(normalizeRecord(val))
	case map[string]any:
		return map[string]any(normalizeRecord(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func asInt(v any) (int64, bool) {
	switch val := normalize(v).(type) {
	case int64:
		return val, true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
