package rangeindex

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"go.etcd.io/bbolt"

	bplus "DaemonRDF/bplustree"
	"DaemonRDF/errs"
	"DaemonRDF/record"
)

var (
	recordsBucket = []byte("records")
)

// boltBatch is how many records an iterator pulls per read transaction. No
// transaction stays open between calls, so writers never wait on a scan.
const boltBatch = 256

// BoltIndex stores each record as a bbolt key/value pair in one bucket.
type BoltIndex struct {
	db      *bbolt.DB
	factory record.Factory
	count   int64
}

func OpenBoltIndex(path string, factory record.Factory) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt file %s: %w", path, err)
	}

	bi := &BoltIndex{db: db, factory: factory}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err == nil {
		err = db.View(func(tx *bbolt.Tx) error {
			bkt := tx.Bucket(recordsBucket)
			bi.count = int64(bkt.Stats().KeyN)
			// one record is enough to tell the layout
			k, v := bkt.Cursor().First()
			if k != nil && (len(k) != factory.KeyLength() || len(v) != factory.ValueLength()+1) {
				return errs.Config("open", "bbolt index %s holds %d,%d records, expected %s",
					path, len(k), len(v)-1, factory)
			}
			return nil
		})
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return bi, nil
}

func (bi *BoltIndex) Factory() record.Factory {
	return bi.factory
}

func (bi *BoltIndex) Insert(r record.Record) (bool, error) {
	if len(r) != bi.factory.RecordLength() {
		return false, errs.Config("insert", "record length %d, index wants %d", len(r),
			bi.factory.RecordLength())
	}

	added := false
	err := bi.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(recordsBucket)
		key := bi.factory.Key(r)
		added = bkt.Get(key) == nil
		return bkt.Put(append([]byte(nil), key...), boltValue(bi.factory.Value(r)))
	})
	if err != nil {
		return false, fmt.Errorf("bbolt: insert failed: %w", err)
	}
	if added {
		atomic.AddInt64(&bi.count, 1)
	}
	return added, nil
}

func (bi *BoltIndex) keyOf(op string, key []byte) ([]byte, error) {
	if len(key) == bi.factory.RecordLength() {
		key = key[:bi.factory.KeyLength()]
	}
	if len(key) != bi.factory.KeyLength() {
		return nil, errs.Config(op, "key length %d, index wants %d", len(key),
			bi.factory.KeyLength())
	}
	return key, nil
}

func (bi *BoltIndex) Delete(key []byte) (bool, error) {
	key, err := bi.keyOf("delete", key)
	if err != nil {
		return false, err
	}

	deleted := false
	err = bi.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(recordsBucket)
		if bkt.Get(key) == nil {
			return nil
		}
		deleted = true
		return bkt.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("bbolt: delete failed: %w", err)
	}
	if deleted {
		atomic.AddInt64(&bi.count, -1)
	}
	return deleted, nil
}

// Values are stored behind a marker byte so that key-only records still have a
// non-empty value.
func boltValue(val []byte) []byte {
	return append([]byte{0}, val...)
}

func (bi *BoltIndex) toRecord(k, v []byte) record.Record {
	r := make(record.Record, 0, len(k)+len(v)-1)
	return append(append(r, k...), v[1:]...)
}

func (bi *BoltIndex) Find(key []byte) (record.Record, bool, error) {
	key, err := bi.keyOf("find", key)
	if err != nil {
		return nil, false, err
	}

	var r record.Record
	err = bi.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(recordsBucket).Get(key); v != nil {
			r = bi.toRecord(key, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bbolt: find failed: %w", err)
	}
	return r, r != nil, nil
}

func (bi *BoltIndex) Iterator(min, max []byte) (Iterator, error) {
	kl := bi.factory.KeyLength()
	if len(min) > kl {
		min = min[:kl]
	}
	if len(max) > kl {
		max = max[:kl]
	}
	return &boltIterator{bi: bi, seek: append([]byte(nil), min...), max: max}, nil
}

func (bi *BoltIndex) Scan(prefix []byte) (Iterator, error) {
	return bi.Iterator(prefix, bplus.PrefixSuccessor(prefix))
}

func (bi *BoltIndex) Size() int64 {
	return atomic.LoadInt64(&bi.count)
}

func (bi *BoltIndex) IsEmpty() bool {
	return bi.Size() == 0
}

func (bi *BoltIndex) Sync() error {
	return bi.db.Sync()
}

func (bi *BoltIndex) Close() error {
	return bi.db.Close()
}

type boltIterator struct {
	bi    *BoltIndex
	seek  []byte // next key to load from; nil before the first batch means the start
	max   []byte
	batch []record.Record
	idx   int
	cur   record.Record
	err   error
	done  bool
	after bool // seek was already returned, skip it
}

func (it *boltIterator) load() error {
	it.batch = it.batch[:0]
	it.idx = 0
	return it.bi.db.View(func(tx *bbolt.Tx) error {
		cr := tx.Bucket(recordsBucket).Cursor()

		var k, v []byte
		if len(it.seek) == 0 {
			k, v = cr.First()
		} else {
			k, v = cr.Seek(it.seek)
			if it.after && k != nil && bytes.Equal(k, it.seek) {
				k, v = cr.Next()
			}
		}
		for ; k != nil && len(it.batch) < boltBatch; k, v = cr.Next() {
			if it.max != nil && bytes.Compare(k, it.max) >= 0 {
				it.done = true
				return nil
			}
			it.batch = append(it.batch, it.bi.toRecord(k, v))
		}
		if k == nil {
			it.done = true
		}
		return nil
	})
}

func (it *boltIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.idx >= len(it.batch) {
		if it.done {
			return false
		}
		if err := it.load(); err != nil {
			it.err = fmt.Errorf("bbolt: scan failed: %w", err)
			return false
		}
		if len(it.batch) == 0 {
			return false
		}
		last := it.batch[len(it.batch)-1]
		it.seek = append(it.seek[:0], it.bi.factory.Key(last)...)
		it.after = true
	}
	it.cur = it.batch[it.idx]
	it.idx++
	return true
}

func (it *boltIterator) Record() record.Record {
	return it.cur
}

func (it *boltIterator) Err() error {
	return it.err
}

func (it *boltIterator) Close() {
	it.done = true
	it.batch = nil
	it.idx = 0
}
