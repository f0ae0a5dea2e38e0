package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl"

	blockmgr "DaemonRDF/block_manager"
	"DaemonRDF/errs"
	nodetable "DaemonRDF/node_table"
	rangeindex "DaemonRDF/range_index"
)

// Params is everything a store needs to know before it opens its files. Zero
// values are filled in from Default.
type Params struct {
	BlockSize int `hcl:"block_size"`
	// Order of the B+Trees, used only when BlockSize is 0. Otherwise each
	// tree derives its order from BlockSize and its record length.
	Order int `hcl:"order"`
	// IndexImpl names the range index kind. btree keeps nothing on disk, so a
	// store in a directory refuses it.
	IndexImpl string `hcl:"index_impl"`
	// Direct turns off the block cache for index files.
	Direct bool `hcl:"direct"`

	BlockReadCache  int `hcl:"block_read_cache"`
	BlockWriteCache int `hcl:"block_write_cache"`
	Node2IdCache    int `hcl:"node2id_cache"`
	Id2NodeCache    int `hcl:"id2node_cache"`

	TripleIndexes []string `hcl:"triple_indexes"`
	QuadIndexes   []string `hcl:"quad_indexes"`
}

const DefaultBlockSize = 8192

var (
	DefaultTripleIndexes = []string{"SPO", "POS", "OSP"}
	DefaultQuadIndexes   = []string{"GSPO", "GPOS", "GOSP", "SPOG", "POSG", "OSPG"}
)

func Default() Params {
	return Params{
		BlockSize:       DefaultBlockSize,
		IndexImpl:       rangeindex.KindBPlusTree.String(),
		BlockReadCache:  blockmgr.DefaultCacheSizes.Read,
		BlockWriteCache: blockmgr.DefaultCacheSizes.Write,
		Node2IdCache:    nodetable.DefaultCacheSizes.Node2Id,
		Id2NodeCache:    nodetable.DefaultCacheSizes.Id2Node,
		TripleIndexes:   append([]string(nil), DefaultTripleIndexes...),
		QuadIndexes:     append([]string(nil), DefaultQuadIndexes...),
	}
}

// names lists the hcl keys Params accepts.
func names() map[string]struct{} {
	known := map[string]struct{}{}
	typ := reflect.TypeOf(Params{})
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("hcl"); tag != "" {
			known[tag] = struct{}{}
		}
	}
	return known
}

// Load reads an hcl file over the defaults.
func Load(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(string(b))
}

func Parse(s string) (Params, error) {
	var raw map[string]interface{}
	if err := hcl.Decode(&raw, s); err != nil {
		return Params{}, errs.Config("config", "%v", err)
	}
	known := names()
	for name := range raw {
		if _, ok := known[name]; !ok {
			return Params{}, errs.Config("config", "%s is not a config variable", name)
		}
	}

	p := Default()
	if _, ok := raw["order"]; ok {
		if _, ok := raw["block_size"]; !ok {
			p.BlockSize = 0
		}
	}
	// hcl appends to slices that are already set
	if _, ok := raw["triple_indexes"]; ok {
		p.TripleIndexes = nil
	}
	if _, ok := raw["quad_indexes"]; ok {
		p.QuadIndexes = nil
	}
	if err := hcl.Decode(&p, s); err != nil {
		return Params{}, errs.Config("config", "%v", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate fills zero values from Default and rejects the rest of what cannot
// work.
func (p *Params) Validate() error {
	def := Default()
	if p.BlockSize == 0 && p.Order == 0 {
		p.BlockSize = def.BlockSize
	}
	if p.BlockSize < 0 || p.Order < 0 {
		return errs.Config("config", "block_size %d and order %d must not be negative",
			p.BlockSize, p.Order)
	}
	if p.IndexImpl == "" {
		p.IndexImpl = def.IndexImpl
	}
	if _, err := rangeindex.ParseKind(p.IndexImpl); err != nil {
		return err
	}
	if p.BlockReadCache <= 0 {
		p.BlockReadCache = def.BlockReadCache
	}
	if p.BlockWriteCache <= 0 {
		p.BlockWriteCache = def.BlockWriteCache
	}
	if p.Node2IdCache <= 0 {
		p.Node2IdCache = def.Node2IdCache
	}
	if p.Id2NodeCache <= 0 {
		p.Id2NodeCache = def.Id2NodeCache
	}
	if len(p.TripleIndexes) == 0 {
		p.TripleIndexes = def.TripleIndexes
	}
	if len(p.QuadIndexes) == 0 {
		p.QuadIndexes = def.QuadIndexes
	}
	for i, name := range p.TripleIndexes {
		p.TripleIndexes[i] = strings.ToUpper(name)
	}
	for i, name := range p.QuadIndexes {
		p.QuadIndexes[i] = strings.ToUpper(name)
	}
	return nil
}

func (p Params) IndexKind() rangeindex.Kind {
	kind, err := rangeindex.ParseKind(p.IndexImpl)
	if err != nil {
		return rangeindex.KindBPlusTree
	}
	return kind
}

func (p Params) Policy() blockmgr.Policy {
	if p.Direct {
		return blockmgr.PolicyDirect
	}
	return blockmgr.PolicyCached
}

func (p Params) BlockCache() blockmgr.CacheSizes {
	return blockmgr.CacheSizes{Read: p.BlockReadCache, Write: p.BlockWriteCache}
}

func (p Params) NodeCache() nodetable.CacheSizes {
	return nodetable.CacheSizes{Node2Id: p.Node2IdCache, Id2Node: p.Id2NodeCache}
}
