package capacity

import (
	"bytes"
	"encoding/binary"
	"errors"
	"iter"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/Ants-develop/MultiTenantAccounting-sub002/storage"
)

// On-disk layout:
//
//	entries     ns(8, big endian) || key          -> msgpack(storage.Entry)
//	by_written  writtenAt(8, big endian) || ns || key -> empty
//	meta        "schema"                          -> schemaVersion
//
// The namespace prefix of an entries key doubles as the namespace index.
var (
	bucketEntries = []byte("entries")
	bucketWritten = []byte("by_written")
	bucketMeta    = []byte("meta")

	metaSchemaKey = []byte("schema")
)

const schemaVersion = "1"

// prepareBuckets creates the buckets on first open and wipes data written
// under an older schema. Cached rows are disposable, so no migration.
func prepareBuckets(tx *bolt.Tx) error {
	meta, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	if v := meta.Get(metaSchemaKey); v != nil && string(v) != schemaVersion {
		if err := resetBuckets(tx); err != nil {
			return err
		}
	}
	for _, name := range [][]byte{bucketEntries, bucketWritten} {
		if _, err := tx.CreateBucketIfNotExists(name); err != nil {
			return err
		}
	}
	return meta.Put(metaSchemaKey, []byte(schemaVersion))
}

func resetBuckets(tx *bolt.Tx) error {
	for _, name := range [][]byte{bucketEntries, bucketWritten} {
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		if _, err := tx.CreateBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func namespacePrefix(ns storage.TenantID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(ns))
	return b
}

func compositeKey(ns storage.TenantID, key string) []byte {
	b := make([]byte, 8+len(key))
	binary.BigEndian.PutUint64(b, uint64(ns))
	copy(b[8:], key)
	return b
}

func namespaceOf(ck []byte) storage.TenantID {
	return storage.TenantID(binary.BigEndian.Uint64(ck[:8]))
}

func writtenKey(writtenAt int64, ck []byte) []byte {
	b := make([]byte, 8+len(ck))
	binary.BigEndian.PutUint64(b, uint64(writtenAt))
	copy(b[8:], ck)
	return b
}

func splitWrittenKey(k []byte) (int64, []byte, bool) {
	if len(k) < 16 {
		return 0, nil, false
	}
	return int64(binary.BigEndian.Uint64(k[:8])), k[8:], true
}

// scan yields the cursor's pairs whose key starts with prefix, in key order.
// A nil prefix walks the whole bucket. Yielded slices are only valid inside
// the transaction, and the sequence cannot be restarted.
func scan(c *bolt.Cursor, prefix []byte) iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		var k, v []byte
		if prefix == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(prefix)
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !yield(k, v) {
				return
			}
		}
	}
}

func encodeEntry(e storage.Entry) ([]byte, error) {
	return msgpack.Marshal(&e)
}

func decodeEntry(b []byte) (storage.Entry, error) {
	var e storage.Entry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return storage.Entry{}, errors.Join(storage.ErrCorrupt, err)
	}
	return e, nil
}
