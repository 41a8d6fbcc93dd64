// Package simple implements the small-payload cache tier on top of a flat,
// quota-bound key/value Medium. Keys follow "<prefix>:<namespace>:<key>" and
// values are JSON-encoded storage.Entry records.
package simple

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/metrics"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/retry"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
	"github.com/Ants-develop/MultiTenantAccounting-sub002/tier"
)

// DefaultPrefix is the key prefix used when Options.Prefix is empty.
const DefaultPrefix = "tenantcache"

// Options configures a Store.
type Options struct {
	// Prefix namespaces this cache inside a medium shared with other users.
	Prefix string

	// Clock supplies "now" for quota-driven sweeps. Nil means the wall clock.
	Clock clock.Clock

	Logger  *zap.Logger
	Metrics *metrics.Collectors
}

// Store is the simple tier. It keeps no state of its own beyond the medium.
type Store struct {
	medium  Medium
	prefix  string
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Collectors
}

// New wraps medium.
func New(medium Medium, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		medium:  medium,
		prefix:  opts.Prefix,
		clock:   opts.Clock,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// Key returns the medium key for (ns, key).
func (s *Store) Key(ns storage.TenantID, key string) string {
	return s.namespacePrefix(ns) + key
}

func (s *Store) namespacePrefix(ns storage.TenantID) string {
	return s.prefix + ":" + ns.String() + ":"
}

func (s *Store) ownPrefix() string {
	return s.prefix + ":"
}

// Put writes entry. When the medium is out of room the store sweeps its own
// expired records and retries exactly once; if that still does not fit the
// write fails with storage.ErrFull.
func (s *Store) Put(ctx context.Context, ns storage.TenantID, key string, entry storage.Entry) error {
	buf, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("simple: encode entry: %w", err)
	}
	k := s.Key(ns, key)

	attempts := 0
	err = retry.Run(ctx, retry.Config{
		MaxAttempts: 2,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrQuotaExceeded)
		},
		OnRetry: func(ctx context.Context, _ int, _ error) {
			n, err := s.SweepExpired(ctx, s.clock.Now())
			s.log.Info("simple tier quota exceeded, swept before retry",
				zap.Stringer("namespace", ns), zap.String("key", key),
				zap.Int("bytes", len(buf)), zap.Uint64("removed", n), zap.Error(err))
		},
	}, func(ctx context.Context) error {
		attempts++
		return s.medium.Set(ctx, k, buf)
	})

	switch {
	case err == nil:
		if attempts > 1 {
			s.metrics.QuotaRecovery(true)
		}
		return nil
	case errors.Is(err, ErrQuotaExceeded):
		s.metrics.QuotaRecovery(false)
		return fmt.Errorf("%w: simple tier: %d bytes for %q", storage.ErrFull, len(buf), key)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: simple tier: %w", storage.ErrUnavailable, err)
	}
}

// Get returns the record under (ns, key) without looking at its expiry. A
// record that does not decode, or that claims another namespace, is removed
// and reported as a miss.
func (s *Store) Get(ctx context.Context, ns storage.TenantID, key string) (storage.Entry, bool, error) {
	k := s.Key(ns, key)
	raw, ok, err := s.medium.Get(ctx, k)
	if err != nil || !ok {
		return storage.Entry{}, false, err
	}
	entry, err := decode(raw, ns)
	if err != nil {
		s.dropCorrupt(ctx, k, err)
		return storage.Entry{}, false, nil
	}
	return entry, true, nil
}

// Delete removes (ns, key).
func (s *Store) Delete(ctx context.Context, ns storage.TenantID, key string) error {
	return s.medium.Remove(ctx, s.Key(ns, key))
}

// ClearNamespace removes every key under ns's prefix.
func (s *Store) ClearNamespace(ctx context.Context, ns storage.TenantID) error {
	return s.removePrefix(ctx, s.namespacePrefix(ns))
}

// ClearAll removes every key this store owns. Keys of other users of the
// medium are left alone.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.removePrefix(ctx, s.ownPrefix())
}

func (s *Store) removePrefix(ctx context.Context, prefix string) error {
	keys, err := s.medium.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if err := s.medium.Remove(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SweepExpired scans every owned key, decoding each record, and removes the
// ones expired at now together with any corrupt ones. It returns the number
// of records removed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (uint64, error) {
	keys, err := s.medium.Keys(ctx, s.ownPrefix())
	if err != nil {
		return 0, err
	}
	var removed uint64
	var errs []error
	for _, k := range keys {
		ns, ok := s.namespaceOf(k)
		raw, found, err := s.medium.Get(ctx, k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !found {
			continue
		}
		var entry storage.Entry
		if ok {
			entry, err = decode(raw, ns)
		} else {
			err = fmt.Errorf("%w: malformed key", storage.ErrCorrupt)
		}
		switch {
		case err != nil:
			s.metrics.Corrupt(tier.Simple)
		case !entry.Expired(now):
			continue
		}
		if err := s.medium.Remove(ctx, k); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	s.metrics.Swept(tier.Simple, removed)
	return removed, errors.Join(errs...)
}

// Len counts the keys this store owns, live or not.
func (s *Store) Len(ctx context.Context) (int, error) {
	keys, err := s.medium.Keys(ctx, s.ownPrefix())
	return len(keys), err
}

func (s *Store) namespaceOf(k string) (storage.TenantID, bool) {
	rest, ok := strings.CutPrefix(k, s.ownPrefix())
	if !ok {
		return 0, false
	}
	nsPart, _, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, false
	}
	ns, err := strconv.ParseInt(nsPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return storage.TenantID(ns), true
}

func (s *Store) dropCorrupt(ctx context.Context, k string, cause error) {
	s.metrics.Corrupt(tier.Simple)
	s.log.Warn("dropping corrupt simple entry", zap.String("key", k), zap.Error(cause))
	if err := s.medium.Remove(ctx, k); err != nil {
		s.log.Warn("removing corrupt simple entry", zap.String("key", k), zap.Error(err))
	}
}

func decode(raw []byte, ns storage.TenantID) (storage.Entry, error) {
	var e storage.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return storage.Entry{}, errors.Join(storage.ErrCorrupt, err)
	}
	if e.Namespace != ns {
		return storage.Entry{}, fmt.Errorf("%w: entry claims namespace %d under %d", storage.ErrCorrupt, e.Namespace, ns)
	}
	return e, nil
}
