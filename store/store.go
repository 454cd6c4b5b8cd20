package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/tessara-io/lockstep/errors"
)

// Record is implemented by any data that can be kept in the store.
//
// Records are stored and returned by value. The store relies on Copy to
// ensure that no caller can mutate persisted state without going through
// Update.
type Record interface {
	// Copy returns a deep copy of this record that shares no mutable
	// state with the original.
	Copy() Record
	// Validate returns an error if this record cannot be persisted.
	Validate() error
}

// Store keeps records indexed by a binary key.
//
// The zero value is not usable, create instances with New. All methods are
// safe for concurrent use. A mutation locks only the slot of the affected
// key, so operations on different keys do not block each other.
type Store struct {
	mu    sync.RWMutex
	index *btree.BTree
}

// New returns an empty store.
func New() *Store {
	return &Store{
		index: btree.New(2),
	}
}

// Create persists given record under the key. It fails with ErrDuplicate if
// the key is already in use and with the validation error if the record is
// not persistable.
func (s *Store) Create(key []byte, rec Record) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	if rec == nil {
		return errors.Wrap(errors.ErrEmpty, "record")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	probe := bkey{key: key}
	if s.index.Get(probe) != nil {
		return errors.Wrapf(errors.ErrDuplicate, "key %X", key)
	}
	k := make([]byte, len(key))
	copy(k, key)
	s.index.ReplaceOrInsert(&slot{
		bkey: bkey{key: k},
		rec:  rec.Copy(),
	})
	return nil
}

// Get returns a deep copy of the record stored under the key. It fails with
// ErrNotFound if the key is not in use.
func (s *Store) Get(key []byte) (Record, error) {
	sl, err := s.slot(key)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.rec.Copy(), nil
}

// Has returns true if a record is stored under the key.
func (s *Store) Has(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Get(bkey{key: key}) != nil
}

// Update applies a transition function to the record stored under the key.
//
// The function receives a deep copy of the current record and returns its
// replacement. The replacement is persisted only if the function returned no
// error and the replacement passes validation. On any failure the stored
// record remains untouched. While the transition runs, the slot stays
// locked, so all updates of a single key are fully serialized.
func (s *Store) Update(key []byte, fn func(Record) (Record, error)) error {
	sl, err := s.slot(key)
	if err != nil {
		return err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, err := fn(sl.rec.Copy())
	if err != nil {
		return err
	}
	if next == nil {
		return errors.Wrap(errors.ErrHuman, "transition returned no record")
	}
	if err := next.Validate(); err != nil {
		return err
	}
	sl.rec = next
	return nil
}

// Iterate calls fn with a deep copy of every record within the [start, end)
// key range, in ascending key order. A nil start or end means no bound on
// that side. Iteration stops early when fn returns false.
//
// The visited records are a snapshot taken per key. Mutations done while the
// iteration is running may or may not be observed.
func (s *Store) Iterate(start, end []byte, fn func(key []byte, rec Record) bool) {
	s.mu.RLock()
	var slots []*slot
	collect := func(item btree.Item) bool {
		slots = append(slots, item.(*slot))
		return true
	}
	switch {
	case start == nil && end == nil:
		s.index.Ascend(collect)
	case start == nil:
		s.index.AscendLessThan(bkey{key: end}, collect)
	case end == nil:
		s.index.AscendGreaterOrEqual(bkey{key: start}, collect)
	default:
		s.index.AscendRange(bkey{key: start}, bkey{key: end}, collect)
	}
	s.mu.RUnlock()

	for _, sl := range slots {
		sl.mu.Lock()
		rec := sl.rec.Copy()
		sl.mu.Unlock()
		if !fn(sl.Key(), rec) {
			return
		}
	}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// slot returns the slot registered for the key.
func (s *Store) slot(key []byte) (*slot, error) {
	s.mu.RLock()
	item := s.index.Get(bkey{key: key})
	s.mu.RUnlock()
	if item == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "key %X", key)
	}
	return item.(*slot), nil
}

// we enforce all data in our btree implements keyer so we
// can compare nicely
type keyer interface {
	Key() []byte
}

// bkey implements keyer and btree.Item
// and may be used for queries or embedded in data to store
type bkey struct {
	key []byte
}

var _ keyer = bkey{}
var _ btree.Item = bkey{}

func (k bkey) Key() []byte {
	return k.key
}

// Less returns true iff second argument is greater than first
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

// slot is a stored record together with the lock that serializes its
// mutations.
type slot struct {
	bkey
	mu  sync.Mutex
	rec Record
}

var _ keyer = &slot{}
var _ btree.Item = &slot{}
