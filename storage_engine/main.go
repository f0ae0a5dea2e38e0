package storageengine

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	bplus "DaemonRDF/bplustree"
	"DaemonRDF/config"
	"DaemonRDF/errs"
	"DaemonRDF/metadata"
	nodetable "DaemonRDF/node_table"
	objectfile "DaemonRDF/object_file"
	rangeindex "DaemonRDF/range_index"
	"DaemonRDF/record"
)

/*
OpenStore opens or creates the store at loc. Opening goes in this order:

  - leftovers of an interrupted compaction are removed
  - metadata is loaded, or defaults are established for a new store
  - the node table and every tuple index are opened, each checked against the
    layout recorded for its file; a persisted value that disagrees with params
    is a configuration error
  - the metadata is flushed, so a new store is fully described on disk
*/
func OpenStore(loc *metadata.Location, params config.Params) (*Store, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := loc.CleanupIncomplete(); err != nil {
		return nil, err
	}

	meta, err := metadata.Open(loc)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	meta.EnsureDefaults()

	s := &Store{
		loc:     loc,
		meta:    meta,
		params:  params,
		indexes: map[string]*TupleIndex{},
	}
	if err := s.open(); err != nil {
		s.closeFiles()
		return nil, err
	}
	if err := meta.Flush(); err != nil {
		s.closeFiles()
		return nil, err
	}

	log.WithFields(log.Fields{
		"location": loc.String(),
		"triples":  s.triples[0].idx.Size(),
		"quads":    s.quads[0].idx.Size(),
		"legacy":   meta.Legacy(),
	}).Info("store opened")
	return s, nil
}

func (s *Store) open() error {
	if err := s.openNodeTable(); err != nil {
		return err
	}

	triples := metadata.SplitList(s.meta.GetOrSetDefault(metadata.KeyIndexesTriples,
		metadata.JoinList(s.params.TripleIndexes)))
	quads := metadata.SplitList(s.meta.GetOrSetDefault(metadata.KeyIndexesQuads,
		metadata.JoinList(s.params.QuadIndexes)))

	var err error
	if s.triples, err = s.openTupleIndexes(TriplePrimary, triples); err != nil {
		return err
	}
	if s.quads, err = s.openTupleIndexes(QuadPrimary, quads); err != nil {
		return err
	}
	return nil
}

func (s *Store) openNodeTable() error {
	objName := s.meta.GetOrSetDefault(metadata.KeyId2Node, NodesFile)
	idxName := s.meta.GetOrSetDefault(metadata.KeyNode2Id, Node2Id)

	var objects objectfile.ObjectFile
	if s.loc.IsMem() {
		objects = objectfile.NewMem()
	} else {
		f, err := objectfile.OpenFile(s.loc.Path(objName))
		if err != nil {
			return err
		}
		objects = f
	}
	if err := s.meta.CheckOrSetMetadata(metadata.FileKey(objName, metadata.AttrType),
		"object"); err != nil {
		objects.Close()
		return err
	}

	kind, path, dict, err := s.openIndex(idxName, nodetable.DictFactory)
	if err != nil {
		objects.Close()
		return err
	}

	s.nodes, err = nodetable.New(objects, dict, s.params.NodeCache())
	if err != nil {
		objects.Close()
		dict.Close()
		return err
	}
	s.dict = &indexFile{
		name:    idxName,
		factory: nodetable.DictFactory,
		kind:    kind,
		path:    path,
		idx:     dict,
		attach:  s.nodes.Native().SetIndex,
	}
	return nil
}

func (s *Store) openTupleIndexes(primary string, names []string) ([]*TupleIndex, error) {
	if len(names) == 0 {
		return nil, errs.Config("storage", "no indexes for %s", primary)
	}
	var out []*TupleIndex
	for _, name := range names {
		if _, ok := s.indexes[name]; ok {
			return nil, errs.Config("storage", "index %s listed twice", name)
		}
		ti, err := newTupleIndex(primary, name)
		if err != nil {
			return nil, err
		}
		ti.kind, ti.path, ti.idx, err = s.openIndex(name, ti.factory)
		if err != nil {
			return nil, err
		}
		s.indexes[name] = ti
		out = append(out, ti)
	}
	return out, nil
}

// indexParams works out the tree shape of a file from params, checking it
// against what the metadata already records.
func (s *Store) indexParams(name string, factory record.Factory) (bplus.Params, error) {
	order, blockSize := 0, s.params.BlockSize
	if blockSize == 0 {
		order = s.params.Order
	}
	bp, err := bplus.NewParams(order, blockSize, factory)
	if err != nil {
		return bplus.Params{}, err
	}
	if err := s.meta.CheckOrSetInt(metadata.FileKey(name, metadata.AttrBlockSize),
		bp.BlockSize); err != nil {
		return bplus.Params{}, err
	}
	if err := s.meta.CheckOrSetInt(metadata.FileKey(name, metadata.AttrOrder),
		bp.Order); err != nil {
		return bplus.Params{}, err
	}
	return bp, nil
}

// openIndex opens one range index. Its kind comes from the metadata when the
// file already exists.
func (s *Store) openIndex(name string, factory record.Factory) (rangeindex.Kind, string,
	rangeindex.RangeIndex, error) {

	impl := s.meta.GetOrSetDefault(metadata.FileKey(name, metadata.AttrImpl), s.params.IndexImpl)
	kind, err := rangeindex.ParseKind(impl)
	if err != nil {
		return 0, "", nil, err
	}
	if kind == rangeindex.KindMem && !s.loc.IsMem() {
		return 0, "", nil, errs.Config("storage",
			"index %s: %s indexes are not persisted and cannot back the store at %s", name, impl, s.loc)
	}
	if impl != s.params.IndexImpl {
		log.WithFields(log.Fields{
			"index":     name,
			"persisted": impl,
			"requested": s.params.IndexImpl,
		}).Info("using persisted index implementation")
	}

	for _, kv := range [][2]string{
		{metadata.AttrType, "index"},
		{metadata.AttrImplVersion, kind.Version()},
		{metadata.AttrRecord, factory.String()},
	} {
		if err := s.meta.CheckOrSetMetadata(metadata.FileKey(name, kv[0]), kv[1]); err != nil {
			return 0, "", nil, err
		}
	}

	opts := rangeindex.Options{
		Factory: factory,
		Policy:  s.params.Policy(),
		Cache:   s.params.BlockCache(),
	}
	if kind == rangeindex.KindBPlusTree {
		bp, err := s.indexParams(name, factory)
		if err != nil {
			return 0, "", nil, err
		}
		opts.BlockSize, opts.Order = bp.BlockSize, bp.Order
	}

	path := ""
	if ext := kind.Ext(); ext != "" {
		path = s.loc.Path(name + ext)
	}
	idx, err := rangeindex.Open(kind, path, opts)
	if err != nil {
		return 0, "", nil, fmt.Errorf("failed to open index %s: %w", name, err)
	}
	return kind, path, idx, nil
}

func (s *Store) Location() *metadata.Location {
	return s.loc
}

func (s *Store) Meta() *metadata.MetaFile {
	return s.meta
}

func (s *Store) NodeTable() *nodetable.Table {
	return s.nodes
}

func (s *Store) TripleIndexes() []*TupleIndex {
	return s.triples
}

func (s *Store) QuadIndexes() []*TupleIndex {
	return s.quads
}

func (s *Store) checkOpen() error {
	if s.closed {
		return errs.Config("storage", "store at %s is closed", s.loc)
	}
	return nil
}

func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.syncLocked()
}

func (s *Store) syncLocked() error {
	if err := s.nodes.Sync(); err != nil {
		return fmt.Errorf("failed to sync node table: %w", err)
	}
	for _, ti := range s.indexes {
		if err := ti.idx.Sync(); err != nil {
			return fmt.Errorf("failed to sync index %s: %w", ti.name, err)
		}
	}
	return s.meta.Flush()
}

// Close syncs and releases every file. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.syncLocked()
	if cerr := s.closeFiles(); err == nil {
		err = cerr
	}
	s.closed = true
	log.WithField("location", s.loc.String()).Info("store closed")
	return err
}

func (s *Store) closeFiles() error {
	var first error
	for _, ti := range s.indexes {
		if ti.idx == nil {
			continue
		}
		if err := ti.idx.Close(); err != nil && first == nil {
			first = err
		}
		ti.idx = nil
	}
	// the dictionary index is closed by the node table
	if s.nodes != nil {
		if err := s.nodes.Close(); err != nil && first == nil {
			first = err
		}
		s.nodes = nil
	}
	if s.dict != nil {
		s.dict.idx = nil
	}
	return first
}

// abandon closes a store left in an unusable state. Later calls fail with
// the closed-store error instead of reaching a missing index.
func (s *Store) abandon(cause error) {
	s.closed = true
	if err := s.closeFiles(); err != nil {
		log.WithError(err).Warn("closing abandoned store")
	}
	log.WithFields(log.Fields{
		"location": s.loc.String(),
		"cause":    cause,
	}).Error("store closed after a failed index swap")
}

// Stats counts what the store holds.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}

	st := Stats{
		Triples: s.triples[0].idx.Size(),
		Quads:   s.quads[0].idx.Size(),
		Terms:   s.nodes.Native().Size(),
		Objects: s.nodes.Native().ObjectStats(),
	}
	for _, group := range [][]*TupleIndex{s.triples, s.quads} {
		for _, ti := range group {
			is := IndexStats{Name: ti.name, Kind: ti.kind, Records: ti.idx.Size()}
			if bi, ok := ti.idx.(*rangeindex.BPlusIndex); ok {
				bs := bi.BlockMgr().Stats()
				is.Blocks = &bs
				is.Height = bi.Height()
			}
			st.Indexes = append(st.Indexes, is)
		}
	}
	return st, nil
}
