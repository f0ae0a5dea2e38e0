package storageengine

import (
	"DaemonRDF/errs"
	nodeid "DaemonRDF/node_id"
	rangeindex "DaemonRDF/range_index"
	term "DaemonRDF/rdf_term"
	"DaemonRDF/record"
)

/*
This file holds the raw access paths: terms to ids through the node table and
records straight into a named index. The tuple operations build on these.
*/

func (s *Store) AllocateOrLookupTerm(t term.Term) (nodeid.NodeId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.nodes.GetAllocateNodeId(t)
}

// LookupTerm returns nodeid.NotFound for a term never stored.
func (s *Store) LookupTerm(t term.Term) (nodeid.NodeId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return s.nodes.GetNodeIdForNode(t)
}

func (s *Store) ResolveTerm(id nodeid.NodeId) (term.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return term.Term{}, err
	}
	return s.nodes.GetNodeForNodeId(id)
}

func (s *Store) index(name string) (*TupleIndex, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	ti, ok := s.indexes[name]
	if !ok {
		return nil, errs.NotFound("storage", "no index %s", name)
	}
	return ti, nil
}

// Index returns the tuple index with the given name.
func (s *Store) Index(name string) (*TupleIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index(name)
}

func (s *Store) InsertRecord(index string, r record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, err := s.index(index)
	if err != nil {
		return err
	}
	_, err = ti.idx.Insert(r)
	return err
}

func (s *Store) DeleteRecord(index string, r record.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, err := s.index(index)
	if err != nil {
		return false, err
	}
	if r, err = ti.factory.FromBytes(r); err != nil {
		return false, err
	}
	return ti.idx.Delete(ti.factory.Key(r))
}

// Scan iterates the records of index whose key starts with keyPrefix. The
// caller closes the iterator.
func (s *Store) Scan(index string, keyPrefix []byte) (rangeindex.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ti, err := s.index(index)
	if err != nil {
		return nil, err
	}
	return ti.idx.Scan(keyPrefix)
}
