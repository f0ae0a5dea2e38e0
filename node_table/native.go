package nodetable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"DaemonRDF/errs"
	nodeid "DaemonRDF/node_id"
	objectfile "DaemonRDF/object_file"
	rangeindex "DaemonRDF/range_index"
	term "DaemonRDF/rdf_term"
)

/*
Native is the dictionary proper. Terms are written once to the object file in
serialized form; the offset becomes the NodeId. The index maps the hash of the
serialized bytes to that id.

Distinct terms can share a hash. Each gets its own collision slot: allocation
probes slots 0, 1, 2, ... for the hash, reading the object file behind every
hit and comparing the full bytes. A matching term returns its id; the first
free slot takes a new term. Slots are never deleted, so the probe sequence has
no holes.
*/
type Native struct {
	mu      sync.RWMutex
	objects objectfile.ObjectFile
	index   rangeindex.RangeIndex
	hash    func([]byte) uint64
}

func NewNative(objects objectfile.ObjectFile, index rangeindex.RangeIndex) (*Native, error) {
	if !index.Factory().Equal(DictFactory) {
		return nil, errs.Config("nodetable", "dictionary index has record layout %s, want %s",
			index.Factory(), DictFactory)
	}
	return &Native{
		objects: objects,
		index:   index,
		hash:    xxhash.Sum64,
	}, nil
}

func dictKey(h uint64, slot uint32) []byte {
	k := make([]byte, hashSize+slotSize)
	binary.BigEndian.PutUint64(k, h)
	binary.BigEndian.PutUint32(k[hashSize:], slot)
	return k
}

// probe walks the collision chain of b. It returns the id when b is present,
// otherwise NotFound and the first free slot.
func (n *Native) probe(b []byte) (nodeid.NodeId, uint32, error) {
	h := n.hash(b)
	for slot := uint32(0); ; slot++ {
		r, found, err := n.index.Find(dictKey(h, slot))
		if err != nil {
			return 0, 0, err
		}
		if !found {
			return nodeid.NotFound, slot, nil
		}

		id := nodeid.FromBytes(DictFactory.Value(r))
		stored, err := n.objects.Read(id.Ptr())
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read term for %s: %w", id, err)
		}
		if bytes.Equal(stored, b) {
			return id, slot, nil
		}
		if slot > 0 && slot%16 == 0 {
			log.WithFields(log.Fields{
				"hash":  fmt.Sprintf("%016x", h),
				"slots": slot,
			}).Warn("long node table collision chain")
		}
	}
}

func (n *Native) GetAllocateNodeId(t term.Term) (nodeid.NodeId, error) {
	b := t.Bytes()

	n.mu.RLock()
	id, _, err := n.probe(b)
	n.mu.RUnlock()
	if err != nil || id != nodeid.NotFound {
		return id, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	// another writer may have got there between the locks
	id, slot, err := n.probe(b)
	if err != nil || id != nodeid.NotFound {
		return id, err
	}

	offset, err := n.objects.Write(b)
	if err != nil {
		return 0, fmt.Errorf("failed to store term: %w", err)
	}
	id, err = nodeid.NewPtr(offset)
	if err != nil {
		return 0, err
	}
	rec := DictFactory.Create(dictKey(n.hash(b), slot), id.Bytes())
	if _, err := n.index.Insert(rec); err != nil {
		return 0, fmt.Errorf("failed to index term: %w", err)
	}
	if slot > 0 {
		log.WithFields(log.Fields{"slot": slot, "id": id}).Debug("node table hash collision")
	}
	return id, nil
}

func (n *Native) GetNodeIdForNode(t term.Term) (nodeid.NodeId, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	id, _, err := n.probe(t.Bytes())
	return id, err
}

func (n *Native) GetNodeForNodeId(id nodeid.NodeId) (term.Term, error) {
	if !id.IsPtr() {
		return term.Term{}, errs.NotFound("nodetable", "%s is not a dictionary id", id)
	}
	b, err := n.objects.Read(id.Ptr())
	if err != nil {
		return term.Term{}, err
	}
	t, err := term.Parse(string(b))
	if err != nil {
		return term.Term{}, errs.Integrity("nodetable", "corrupt term at %s: %v", id, err)
	}
	return t, nil
}

func (n *Native) All(fn func(id nodeid.NodeId, t term.Term) error) error {
	return n.objects.All(func(offset int64, b []byte) error {
		t, err := term.Parse(string(b))
		if err != nil {
			return errs.Integrity("nodetable", "corrupt term at @%d: %v", offset, err)
		}
		return fn(nodeid.NodeId(offset), t)
	})
}

// Size is the number of terms in the dictionary.
func (n *Native) Size() int64 {
	return n.index.Size()
}

func (n *Native) ObjectStats() objectfile.Stats {
	return n.objects.Stats()
}

func (n *Native) Index() rangeindex.RangeIndex {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.index
}

// SetIndex swaps in a rewritten dictionary index holding the same records.
// The caller closes the old one.
func (n *Native) SetIndex(index rangeindex.RangeIndex) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.index = index
}

func (n *Native) Sync() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.objects.Sync(); err != nil {
		return err
	}
	return n.index.Sync()
}

func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.objects.Close()
	if n.index == nil {
		return err
	}
	if ierr := n.index.Close(); err == nil {
		err = ierr
	}
	n.index = nil
	return err
}
