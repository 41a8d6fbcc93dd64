// Package capacity implements the large-payload cache tier: a bbolt file
// keyed by (namespace, key) with a write-time index, fronted by an optional
// ristretto memo of decoded entries.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/metrics"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

// State is the position of the store in its open lifecycle.
type State int32

const (
	Uninitialized State = iota
	Opening
	Ready
	// Failed is terminal. Closed stores also report Failed.
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Opening:
		return "opening"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Store.
type Options struct {
	// Path is the bbolt file. An empty path means the tier is not available
	// on this host and Init fails with storage.ErrUnavailable.
	Path string

	// OpenTimeout bounds how long Init waits for the file lock.
	OpenTimeout time.Duration

	// MemoMaxCost is the byte budget of the decoded-entry memo. Zero or less
	// disables the memo.
	MemoMaxCost int64

	Logger  *zap.Logger
	Metrics *metrics.Collectors
}

// Store is the capacity tier. It is safe for concurrent use by multiple
// goroutines. All data operations require a successful Init.
type Store struct {
	opts Options
	log  *zap.Logger

	group   singleflight.Group
	state   atomic.Int32
	initErr error

	// mu orders mutations against memo reads so a concurrent Get can never
	// put a just-deleted record back into the memo.
	mu   sync.RWMutex
	db   *bolt.DB
	memo *ristretto.Cache[string, storage.Entry]
}

// New returns an uninitialized Store. Nothing touches the disk until Init.
func New(opts Options) *Store {
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{opts: opts, log: log}
}

// State reports where the store is in its lifecycle.
func (s *Store) State() State {
	return State(s.state.Load())
}

func (s *Store) setState(st State) {
	s.state.Store(int32(st))
	s.opts.Metrics.CapacityState(int(st))
}

// Init opens the file and its buckets exactly once. Concurrent callers share
// one attempt and observe the same outcome. A caller whose ctx ends while
// waiting gets ctx.Err(); the attempt itself carries on and still settles
// the state for everyone else.
func (s *Store) Init(ctx context.Context) error {
	switch s.State() {
	case Ready:
		return nil
	case Failed:
		return s.initErr
	}
	ch := s.group.DoChan("init", func() (any, error) {
		return nil, s.open()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Store) open() error {
	// A caller may reach the group after an earlier attempt finished.
	switch s.State() {
	case Ready:
		return nil
	case Failed:
		return s.initErr
	}
	s.setState(Opening)

	if s.opts.Path == "" {
		return s.fail(errors.New("no database path configured"))
	}
	if dir := filepath.Dir(s.opts.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return s.fail(err)
		}
	}
	db, err := bolt.Open(s.opts.Path, 0o600, &bolt.Options{Timeout: s.opts.OpenTimeout})
	if err != nil {
		return s.fail(err)
	}
	if err := db.Update(prepareBuckets); err != nil {
		_ = db.Close()
		return s.fail(err)
	}

	if s.opts.MemoMaxCost > 0 {
		memo, err := ristretto.NewCache(&ristretto.Config[string, storage.Entry]{
			NumCounters: max(s.opts.MemoMaxCost/1024, 1000) * 10,
			MaxCost:     s.opts.MemoMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			_ = db.Close()
			return s.fail(err)
		}
		s.memo = memo
	}

	s.db = db
	if !s.state.CompareAndSwap(int32(Opening), int32(Ready)) {
		// Closed while opening.
		if s.memo != nil {
			s.memo.Close()
			s.memo = nil
		}
		_ = db.Close()
		return s.initErr
	}
	s.opts.Metrics.CapacityState(int(Ready))
	s.log.Info("capacity tier ready", zap.String("path", s.opts.Path))
	return nil
}

func (s *Store) fail(cause error) error {
	s.initErr = fmt.Errorf("%w: capacity tier: %w", storage.ErrUnavailable, cause)
	s.setState(Failed)
	s.log.Warn("capacity tier unavailable", zap.String("path", s.opts.Path), zap.Error(cause))
	return s.initErr
}

// Close releases the memo and the file. The store reports Failed afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.State()
	if st == Failed {
		return nil
	}
	s.initErr = fmt.Errorf("%w: capacity tier closed", storage.ErrUnavailable)
	s.setState(Failed)
	if st != Ready {
		// Never opened; keep a later Init from opening the file.
		return nil
	}
	if s.memo != nil {
		s.memo.Close()
		s.memo = nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.State() != Ready {
		return storage.ErrUnavailable
	}
	return nil
}

// Put upserts entry under (ns, key) and moves its write-time index row.
func (s *Store) Put(ctx context.Context, ns storage.TenantID, key string, entry storage.Entry) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	buf, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("capacity: encode entry: %w", err)
	}
	ck := compositeKey(ns, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(bucketEntries)
		written := tx.Bucket(bucketWritten)
		if old := entries.Get(ck); old != nil {
			if prev, err := decodeEntry(old); err == nil {
				if err := written.Delete(writtenKey(prev.WrittenAt, ck)); err != nil {
					return err
				}
			}
		}
		if err := entries.Put(ck, buf); err != nil {
			return err
		}
		return written.Put(writtenKey(entry.WrittenAt, ck), []byte{})
	})
	if err != nil {
		return mapWriteErr(err)
	}
	if s.memo != nil {
		s.memo.Set(string(ck), entry, memoCost(entry))
		s.memo.Wait()
	}
	return nil
}

// Get returns the record under (ns, key) without looking at its expiry.
func (s *Store) Get(ctx context.Context, ns storage.TenantID, key string) (storage.Entry, bool, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Entry{}, false, err
	}
	ck := compositeKey(ns, key)

	entry, ok, err := s.lookup(ck)
	if errors.Is(err, storage.ErrCorrupt) {
		s.opts.Metrics.Corrupt(tier.Capacity)
		s.log.Warn("dropping corrupt capacity entry",
			zap.Stringer("namespace", ns), zap.String("key", key), zap.Error(err))
		if derr := s.Delete(ctx, ns, key); derr != nil {
			return storage.Entry{}, false, derr
		}
		return storage.Entry{}, false, nil
	}
	return entry, ok, err
}

func (s *Store) lookup(ck []byte) (storage.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.memo != nil {
		if e, ok := s.memo.Get(string(ck)); ok {
			return e, true, nil
		}
	}

	var raw []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketEntries).Get(ck); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return storage.Entry{}, false, err
	}
	if raw == nil {
		return storage.Entry{}, false, nil
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return storage.Entry{}, false, err
	}
	if entry.Namespace != namespaceOf(ck) {
		return storage.Entry{}, false, fmt.Errorf("%w: namespace mismatch", storage.ErrCorrupt)
	}
	if s.memo != nil {
		s.memo.Set(string(ck), entry, memoCost(entry))
	}
	return entry, true, nil
}

// Delete removes (ns, key) and its index row.
func (s *Store) Delete(ctx context.Context, ns storage.TenantID, key string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	ck := compositeKey(ns, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return deleteRecord(tx, ck)
	})
	if s.memo != nil {
		s.memo.Del(string(ck))
	}
	return err
}

// ClearNamespace removes every record of ns inside one write transaction, so
// no concurrent Put can interleave with the pass.
func (s *Store) ClearNamespace(ctx context.Context, ns storage.TenantID) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var keys [][]byte
		for k := range scan(tx.Bucket(bucketEntries).Cursor(), namespacePrefix(ns)) {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, ck := range keys {
			if err := deleteRecord(tx, ck); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if s.memo != nil {
		s.memo.Clear()
	}
	if err == nil {
		s.log.Debug("capacity namespace cleared", zap.Stringer("namespace", ns), zap.Int("removed", removed))
	}
	return err
}

// ClearAll drops and recreates the data buckets.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(resetBuckets)
	if s.memo != nil {
		s.memo.Clear()
	}
	return err
}

// SweepExpired walks the write-time index in ascending order and removes
// every record expired at now. Index rows that no longer match a record are
// dropped along the way. When the index covers fewer records than the
// entries bucket holds, the remaining records are walked directly and live
// ones get their index row back. The whole pass is one write transaction.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (uint64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	type row struct {
		idx, ck   []byte
		writtenAt int64
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(bucketEntries)
		written := tx.Bucket(bucketWritten)
		total := entries.Stats().KeyN
		indexed := make(map[string]struct{}, total)

		var rows []row
		for k := range scan(written.Cursor(), nil) {
			at, ck, ok := splitWrittenKey(k)
			if !ok {
				rows = append(rows, row{idx: append([]byte(nil), k...)})
				continue
			}
			rows = append(rows, row{
				idx:       append([]byte(nil), k...),
				ck:        append([]byte(nil), ck...),
				writtenAt: at,
			})
		}

		for _, r := range rows {
			var raw []byte
			if r.ck != nil {
				raw = entries.Get(r.ck)
			}
			if raw == nil {
				if err := written.Delete(r.idx); err != nil {
					return err
				}
				continue
			}
			entry, err := decodeEntry(raw)
			switch {
			case err != nil:
				s.opts.Metrics.Corrupt(tier.Capacity)
			case entry.WrittenAt != r.writtenAt:
				// Stale row left behind by an overwrite of a corrupt record.
				if err := written.Delete(r.idx); err != nil {
					return err
				}
				continue
			case !entry.Expired(now):
				indexed[string(r.ck)] = struct{}{}
				continue
			}
			indexed[string(r.ck)] = struct{}{}
			if err := entries.Delete(r.ck); err != nil {
				return err
			}
			if err := written.Delete(r.idx); err != nil {
				return err
			}
			removed = append(removed, string(r.ck))
		}

		if len(indexed) >= total {
			return nil
		}
		orphans, err := s.sweepUnindexed(tx, indexed, now)
		removed = append(removed, orphans...)
		return err
	})
	if err != nil {
		return 0, err
	}
	if s.memo != nil {
		for _, ck := range removed {
			s.memo.Del(ck)
		}
	}
	s.opts.Metrics.Swept(tier.Capacity, uint64(len(removed)))
	return uint64(len(removed)), nil
}

// sweepUnindexed visits the records the index pass did not reach. Expired or
// undecodable ones are removed; live ones are indexed again.
func (s *Store) sweepUnindexed(tx *bolt.Tx, indexed map[string]struct{}, now time.Time) ([]string, error) {
	entries := tx.Bucket(bucketEntries)
	written := tx.Bucket(bucketWritten)

	type orphan struct {
		ck  []byte
		raw []byte
	}
	var found []orphan
	for k, v := range scan(entries.Cursor(), nil) {
		if _, ok := indexed[string(k)]; ok {
			continue
		}
		found = append(found, orphan{ck: append([]byte(nil), k...), raw: append([]byte(nil), v...)})
	}
	if len(found) > 0 {
		s.log.Warn("capacity records missing from write-time index", zap.Int("records", len(found)))
	}

	var removed []string
	for _, o := range found {
		entry, err := decodeEntry(o.raw)
		if err != nil {
			s.opts.Metrics.Corrupt(tier.Capacity)
		} else if !entry.Expired(now) {
			if err := written.Put(writtenKey(entry.WrittenAt, o.ck), []byte{}); err != nil {
				return removed, err
			}
			continue
		}
		if err := entries.Delete(o.ck); err != nil {
			return removed, err
		}
		removed = append(removed, string(o.ck))
	}
	return removed, nil
}

// Len returns the number of physically present records, live or not.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEntries).Stats().KeyN
		return nil
	})
	return n, err
}

// deleteRecord removes ck and, when the record decodes, its index row.
func deleteRecord(tx *bolt.Tx, ck []byte) error {
	entries := tx.Bucket(bucketEntries)
	old := entries.Get(ck)
	if old == nil {
		return nil
	}
	if prev, err := decodeEntry(old); err == nil {
		if err := tx.Bucket(bucketWritten).Delete(writtenKey(prev.WrittenAt, ck)); err != nil {
			return err
		}
	}
	return entries.Delete(ck)
}

func mapWriteErr(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: capacity tier: %w", storage.ErrFull, err)
	}
	return err
}

func memoCost(e storage.Entry) int64 {
	return int64(len(e.Data)) + 64
}
