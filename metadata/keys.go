package metadata

import (
	"strings"
)

// Version is written to tdb.create.version of new stores.
const Version = "1.0.0"

// LegacyVersion is assumed for a store that predates its metadata file.
const LegacyVersion = "0.8"

const (
	KeyCreateVersion = "tdb.create.version"
	KeyCreated       = "tdb.created"
	KeyLayout        = "tdb.layout"
	KeyType          = "tdb.type"
	KeyStoreID       = "tdb.store.id"

	KeyIndexesTriples = "tdb.indexes.triples"
	KeyIndexesQuads   = "tdb.indexes.quads"

	KeyNode2Id = "tdb.nodetable.mapping.node2id"
	KeyId2Node = "tdb.nodetable.mapping.id2node"
)

const (
	LayoutV1       = "v1"
	TypeStandalone = "standalone"
)

// Per file attributes, see FileKey.
const (
	AttrType        = "type"
	AttrImpl        = "impl"
	AttrImplVersion = "impl.version"
	AttrRecord      = "record"
	AttrBlockSize   = "blksize"
	AttrOrder       = "order"
)

// FileKey is the property name of one attribute of a data file,
// tdb.file.<name>.<attr>.
func FileKey(name, attr string) string {
	return "tdb.file." + name + "." + attr
}

// JoinList and SplitList store index name lists as a single property.
func JoinList(names []string) string {
	return strings.Join(names, ",")
}

func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
