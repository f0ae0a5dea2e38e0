package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"DaemonRDF/errs"
)

/*
MetaFile is the property set of a store. It is persisted in tdb.info as a
protobuf Struct of string values. Changes stay in memory until Flush.

Persisted values win over requested ones: CheckOrSetMetadata refuses to change
a property that is already set to something else.
*/
type MetaFile struct {
	mu     sync.Mutex
	loc    *Location
	props  map[string]string
	dirty  bool
	legacy bool
}

// Open loads the metadata of loc. A location with data files but no metadata
// file is a legacy store.
func Open(loc *Location) (*MetaFile, error) {
	m := &MetaFile{loc: loc, props: map[string]string{}}
	if loc.IsMem() {
		return m, nil
	}

	b, err := os.ReadFile(loc.Path(MetaFileName))
	if errors.Is(err, fs.ErrNotExist) {
		if loc.HasData() {
			log.WithField("location", loc.Dir()).Warn("no metadata file, assuming legacy store")
			m.legacy = true
			m.props[KeyCreateVersion] = LegacyVersion
			m.dirty = true
		}
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	// a flushed file always carries properties; an empty one is a torn write
	if len(b) == 0 {
		return nil, errs.Integrity("metadata", "%s is empty", MetaFileName)
	}
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return nil, errs.Integrity("metadata", "corrupt %s: %v", MetaFileName, err)
	}
	for k, v := range st.GetFields() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, errs.Integrity("metadata", "property %s is not a string", k)
		}
		m.props[k] = s.StringValue
	}
	log.WithFields(log.Fields{
		"location":   loc.Dir(),
		"properties": len(m.props),
	}).Debug("metadata loaded")
	return m, nil
}

func (m *MetaFile) Location() *Location {
	return m.loc
}

func (m *MetaFile) Legacy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.legacy
}

func (m *MetaFile) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.props[key]
	return v, ok
}

// GetInt reads an integer property; ok is false when it is not set.
func (m *MetaFile) GetInt(key string) (int, bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, errs.Integrity("metadata", "property %s=%q is not a number", key, v)
	}
	return n, true, nil
}

func (m *MetaFile) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value)
}

func (m *MetaFile) setLocked(key, value string) {
	if old, ok := m.props[key]; ok && old == value {
		return
	}
	m.props[key] = value
	m.dirty = true
}

// GetOrSetDefault returns the value of key, storing def first if it is unset.
func (m *MetaFile) GetOrSetDefault(key, def string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.props[key]; ok {
		return v
	}
	m.setLocked(key, def)
	return def
}

// EnsurePropertySet sets key only when it is absent.
func (m *MetaFile) EnsurePropertySet(key, value string) {
	m.GetOrSetDefault(key, value)
}

// CheckOrSetMetadata sets key to want, or checks an existing value matches it.
func (m *MetaFile) CheckOrSetMetadata(key, want string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.props[key]; ok {
		if v != want {
			log.WithFields(log.Fields{
				"location":  m.loc.String(),
				"property":  key,
				"persisted": v,
				"requested": want,
			}).Warn("metadata conflict")
			return errs.Config("metadata", "%s is %q in the store, requested %q", key, v, want)
		}
		return nil
	}
	m.setLocked(key, want)
	return nil
}

// CheckOrSetInt is CheckOrSetMetadata for integers.
func (m *MetaFile) CheckOrSetInt(key string, want int) error {
	return m.CheckOrSetMetadata(key, strconv.Itoa(want))
}

// EnsureDefaults fills in the properties every store carries.
func (m *MetaFile) EnsureDefaults() {
	m.EnsurePropertySet(KeyCreateVersion, Version)
	m.EnsurePropertySet(KeyCreated, time.Now().UTC().Format(time.RFC3339))
	m.EnsurePropertySet(KeyLayout, LayoutV1)
	m.EnsurePropertySet(KeyType, TypeStandalone)
	m.EnsurePropertySet(KeyStoreID, uuid.NewString())
}

// Properties is a copy of every property.
func (m *MetaFile) Properties() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.props))
	for k, v := range m.props {
		out[k] = v
	}
	return out
}

// Keys lists the property names in order.
func (m *MetaFile) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.props))
	for k := range m.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MetaFile) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// Flush writes the properties if anything changed. The file is replaced
// through a .tmp sibling.
func (m *MetaFile) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirty || m.loc.IsMem() {
		m.dirty = false
		return nil
	}

	fields := make(map[string]*structpb.Value, len(m.props))
	for k, v := range m.props {
		fields[k] = structpb.NewStringValue(v)
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(&structpb.Struct{Fields: fields})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	path := m.loc.Path(MetaFileName)
	tmp := path + TmpExt
	if err := writeSynced(tmp, b); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	m.dirty = false
	log.WithField("location", m.loc.Dir()).Debug("metadata flushed")
	return nil
}

// writeSynced writes b to path and syncs it before returning, so a rename that
// follows never exposes a partial file.
func writeSynced(path string, b []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
