package storageengine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/huandu/skiplist"
	log "github.com/sirupsen/logrus"

	blockmgr "DaemonRDF/block_manager"
	bplus "DaemonRDF/bplustree"
	"DaemonRDF/errs"
	rangeindex "DaemonRDF/range_index"
	term "DaemonRDF/rdf_term"
	"DaemonRDF/record"
)

/*
Loader is the bulk ingest path. Between StartBulk and FinishBulk it holds the
store write lock; tuples are encoded for every index and kept in one sorted
skiplist per index, which also drops duplicates. FinishBulk then writes each
buffer out: an empty bplustree index is packed bottom up with bplus.Build,
anything else takes ordinary inserts in key order.
*/
type Loader struct {
	s       *Store
	buffers map[string]*skiplist.SkipList
	active  bool
	start   time.Time
	triples int64
	quads   int64
}

type LoadStats struct {
	Triples  int64
	Quads    int64
	Built    []string
	Inserted []string
	Elapsed  time.Duration
}

// keyComparator orders fixed-length tuple keys. The score is the leading
// NodeId, which keeps skiplist levels in key order.
type keyComparator struct{}

func (keyComparator) Compare(lhs, rhs interface{}) int {
	return bytes.Compare(lhs.([]byte), rhs.([]byte))
}

func (keyComparator) CalcScore(key interface{}) float64 {
	k := key.([]byte)
	if len(k) < 8 {
		return 0
	}
	return float64(binary.BigEndian.Uint64(k))
}

func (s *Store) Loader() *Loader {
	return &Loader{s: s}
}

func (l *Loader) StartBulk() error {
	if l.active {
		return errs.Config("loader", "bulk load already started")
	}
	l.s.mu.Lock()
	if err := l.s.checkOpen(); err != nil {
		l.s.mu.Unlock()
		return err
	}
	l.buffers = map[string]*skiplist.SkipList{}
	for name := range l.s.indexes {
		l.buffers[name] = skiplist.New(keyComparator{})
	}
	l.active = true
	l.start = time.Now()
	l.triples, l.quads = 0, 0
	return nil
}

func (l *Loader) add(indexes []*TupleIndex, terms ...term.Term) error {
	if !l.active {
		return errs.Config("loader", "bulk load not started")
	}
	ids, err := l.s.allocate(terms...)
	if err != nil {
		return err
	}
	for _, ti := range indexes {
		key := ti.factory.Key(ti.Encode(ids))
		l.buffers[ti.name].Set(key, nil)
	}
	return nil
}

func (l *Loader) Triple(t term.Triple) error {
	if err := l.add(l.s.triples, t.S, t.P, t.O); err != nil {
		return err
	}
	l.triples++
	return nil
}

func (l *Loader) Quad(q term.Quad) error {
	if q.G.IsZero() {
		return l.Triple(q.Triple())
	}
	if err := l.add(l.s.quads, q.G, q.S, q.P, q.O); err != nil {
		return err
	}
	l.quads++
	return nil
}

// FinishBulk writes the buffers out and releases the store.
func (l *Loader) FinishBulk() (LoadStats, error) {
	if !l.active {
		return LoadStats{}, errs.Config("loader", "bulk load not started")
	}
	defer func() {
		l.active = false
		l.buffers = nil
		l.s.mu.Unlock()
	}()

	stats := LoadStats{Triples: l.triples, Quads: l.quads}
	for _, group := range [][]*TupleIndex{l.s.triples, l.s.quads} {
		for _, ti := range group {
			buf := l.buffers[ti.name]
			if buf.Len() == 0 {
				continue
			}
			built, err := l.flush(ti, buf)
			if err != nil {
				return stats, fmt.Errorf("failed to load %s: %w", ti.name, err)
			}
			if built {
				stats.Built = append(stats.Built, ti.name)
			} else {
				stats.Inserted = append(stats.Inserted, ti.name)
			}
		}
	}
	if err := l.s.syncLocked(); err != nil {
		return stats, err
	}

	stats.Elapsed = time.Since(l.start)
	log.WithFields(log.Fields{
		"triples": stats.Triples,
		"quads":   stats.Quads,
		"built":   len(stats.Built),
		"elapsed": stats.Elapsed,
	}).Info("bulk load finished")
	return stats, nil
}

func (l *Loader) flush(ti *TupleIndex, buf *skiplist.SkipList) (bool, error) {
	if _, ok := ti.idx.(*rangeindex.BPlusIndex); ok && ti.idx.IsEmpty() {
		err := l.s.replaceTree(&ti.indexFile, func(dst blockmgr.BlockMgr) (*bplus.BPlusTree, error) {
			params := ti.idx.(*rangeindex.BPlusIndex).Params()
			return bplus.Build(dst, params, newBufferIterator(ti.factory, buf))
		})
		return true, err
	}

	it := newBufferIterator(ti.factory, buf)
	for it.Next() {
		if _, err := ti.idx.Insert(it.Record()); err != nil {
			return false, err
		}
	}
	return false, nil
}

// bufferIterator walks a loader skiplist as records.
type bufferIterator struct {
	factory record.Factory
	next    *skiplist.Element
	cur     record.Record
}

func newBufferIterator(factory record.Factory, buf *skiplist.SkipList) *bufferIterator {
	return &bufferIterator{factory: factory, next: buf.Front()}
}

func (it *bufferIterator) Next() bool {
	if it.next == nil {
		return false
	}
	it.cur = it.factory.CreateKey(it.next.Key().([]byte))
	it.next = it.next.Next()
	return true
}

func (it *bufferIterator) Record() record.Record {
	return it.cur
}

func (it *bufferIterator) Err() error {
	return nil
}
