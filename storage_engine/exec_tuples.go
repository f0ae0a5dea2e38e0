package storageengine

import (
	"fmt"

	"DaemonRDF/errs"
	nodeid "DaemonRDF/node_id"
	term "DaemonRDF/rdf_term"
)

func (s *Store) allocate(terms ...term.Term) ([]nodeid.NodeId, error) {
	ids := make([]nodeid.NodeId, len(terms))
	for i, t := range terms {
		if t.IsZero() {
			return nil, errs.Range("storage", "tuple column %d is empty", i)
		}
		id, err := s.nodes.GetAllocateNodeId(t)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate %s: %w", t, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// lookup resolves terms without allocating. The zero term becomes Any; found
// is false when some term was never stored.
func (s *Store) lookup(terms ...term.Term) ([]nodeid.NodeId, bool, error) {
	ids := make([]nodeid.NodeId, len(terms))
	for i, t := range terms {
		if t.IsZero() {
			ids[i] = nodeid.Any
			continue
		}
		id, err := s.nodes.GetNodeIdForNode(t)
		if err != nil {
			return nil, false, err
		}
		if id == nodeid.NotFound {
			return nil, false, nil
		}
		ids[i] = id
	}
	return ids, true, nil
}

// insertTuple writes tuple to every index of the group. added is false when
// the tuple was already present.
func insertTuple(indexes []*TupleIndex, tuple []nodeid.NodeId) (bool, error) {
	added := false
	for i, ti := range indexes {
		isNew, err := ti.idx.Insert(ti.Encode(tuple))
		if err != nil {
			return false, fmt.Errorf("failed to insert into %s: %w", ti.name, err)
		}
		if i == 0 {
			added = isNew
		}
	}
	return added, nil
}

func deleteTuple(indexes []*TupleIndex, tuple []nodeid.NodeId) (bool, error) {
	deleted := false
	for i, ti := range indexes {
		found, err := ti.idx.Delete(ti.factory.Key(ti.Encode(tuple)))
		if err != nil {
			return false, fmt.Errorf("failed to delete from %s: %w", ti.name, err)
		}
		if i == 0 {
			deleted = found
		}
	}
	return deleted, nil
}

// Add stores a triple in the default graph.
func (s *Store) Add(t term.Triple) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	ids, err := s.allocate(t.S, t.P, t.O)
	if err != nil {
		return false, err
	}
	return insertTuple(s.triples, ids)
}

// AddQuad stores a quad; a quad without a graph is a triple.
func (s *Store) AddQuad(q term.Quad) (bool, error) {
	if q.G.IsZero() {
		return s.Add(q.Triple())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	ids, err := s.allocate(q.G, q.S, q.P, q.O)
	if err != nil {
		return false, err
	}
	return insertTuple(s.quads, ids)
}

// Delete removes a triple. Terms stay in the node table.
func (s *Store) Delete(t term.Triple) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if t.S.IsZero() || t.P.IsZero() || t.O.IsZero() {
		return false, errs.Range("storage", "delete needs a concrete triple, got %s", t)
	}
	ids, found, err := s.lookup(t.S, t.P, t.O)
	if err != nil || !found {
		return false, err
	}
	return deleteTuple(s.triples, ids)
}

func (s *Store) DeleteQuad(q term.Quad) (bool, error) {
	if q.G.IsZero() {
		return s.Delete(q.Triple())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if q.S.IsZero() || q.P.IsZero() || q.O.IsZero() {
		return false, errs.Range("storage", "delete needs a concrete quad, got %s", q)
	}
	ids, found, err := s.lookup(q.G, q.S, q.P, q.O)
	if err != nil || !found {
		return false, err
	}
	return deleteTuple(s.quads, ids)
}

func (s *Store) resolve(ids []nodeid.NodeId) ([]term.Term, error) {
	terms := make([]term.Term, len(ids))
	for i, id := range ids {
		t, err := s.nodes.GetNodeForNodeId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", id, err)
		}
		terms[i] = t
	}
	return terms, nil
}

// FindIds matches a pattern of ids in primary order (SPO or GSPO) against the
// triple or quad indexes; nodeid.Any is the wildcard.
func (s *Store) FindIds(pattern []nodeid.NodeId, fn func(tuple []nodeid.NodeId) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	var group []*TupleIndex
	switch len(pattern) {
	case len(TriplePrimary):
		group = s.triples
	case len(QuadPrimary):
		group = s.quads
	default:
		return errs.Range("storage", "pattern of %d columns", len(pattern))
	}
	return bestIndex(group, pattern).find(pattern, fn)
}

// Find calls fn for each triple matching pattern. Zero terms in the pattern
// match anything.
func (s *Store) Find(pattern term.Triple, fn func(t term.Triple) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	ids, found, err := s.lookup(pattern.S, pattern.P, pattern.O)
	if err != nil || !found {
		return err
	}
	return bestIndex(s.triples, ids).find(ids, func(tuple []nodeid.NodeId) error {
		terms, err := s.resolve(tuple)
		if err != nil {
			return err
		}
		return fn(term.Triple{S: terms[0], P: terms[1], O: terms[2]})
	})
}

// FindQuads is Find over the named graphs. A zero graph matches every graph.
func (s *Store) FindQuads(pattern term.Quad, fn func(q term.Quad) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	ids, found, err := s.lookup(pattern.G, pattern.S, pattern.P, pattern.O)
	if err != nil || !found {
		return err
	}
	return bestIndex(s.quads, ids).find(ids, func(tuple []nodeid.NodeId) error {
		terms, err := s.resolve(tuple)
		if err != nil {
			return err
		}
		return fn(term.Quad{G: terms[0], S: terms[1], P: terms[2], O: terms[3]})
	})
}
