// Package filestore keeps argstore snapshots as YAML files, one per
// namespace. The document maps each key (the wildcard marker or a function
// name) to its record:
//
//	_:
//	  color: red
//	paint:
//	  size: 3
package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-argstore"
	"github.com/goliatone/go-argstore/pkg/state"
)

// Store implements state.Store over a directory. Only the ETag (a content
// hash) and the modification time are reported on Load; SnapshotID and Extra
// are not persisted.
//
// Saves in one process are serialized, so the ETag precondition and the
// rename happen together. Writers in other processes are not coordinated.
type Store struct {
	Dir string
}

var saveMu sync.Mutex

var _ state.Store = Store{}

// New returns a Store rooted at dir.
func New(dir string) Store {
	return Store{Dir: dir}
}

// Path returns the file backing ref.
func (s Store) Path(ref state.Ref) (string, error) {
	if _, err := ref.Identifier(); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, ref.Namespace+".yaml"), nil
}

func (s Store) Load(_ context.Context, ref state.Ref) (argstore.Snapshot, state.Meta, bool, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, state.Meta{}, false, err
	}
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, state.Meta{}, false, nil
	}
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("filestore: read %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("filestore: stat %s: %w", path, err)
	}
	snapshot, err := Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("filestore: %s: %w", path, err)
	}
	return snapshot, state.Meta{ETag: etag(payload), UpdatedAt: info.ModTime().UTC()}, true, nil
}

// Save writes the snapshot atomically through a temporary file.
func (s Store) Save(_ context.Context, ref state.Ref, snapshot argstore.Snapshot, meta state.Meta) (state.Meta, error) {
	path, err := s.Path(ref)
	if err != nil {
		return state.Meta{}, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snapshot); err != nil {
		return state.Meta{}, err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return state.Meta{}, fmt.Errorf("filestore: create %s: %w", s.Dir, err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+ref.Namespace+"-*.yaml")
	if err != nil {
		return state.Meta{}, fmt.Errorf("filestore: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return state.Meta{}, fmt.Errorf("filestore: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return state.Meta{}, fmt.Errorf("filestore: close %s: %w", tmp.Name(), err)
	}

	saveMu.Lock()
	defer saveMu.Unlock()
	if err := checkETag(path, meta.ETag); err != nil {
		return state.Meta{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return state.Meta{}, fmt.Errorf("filestore: replace %s: %w", path, err)
	}

	stored := meta
	stored.ETag = etag(buf.Bytes())
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	return stored, nil
}

// Decode reads a YAML snapshot document. Empty documents and null records
// decode as empty.
func Decode(r io.Reader) (argstore.Snapshot, error) {
	var document map[string]map[string]any
	if err := yaml.NewDecoder(r).Decode(&document); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml snapshot: %w", err)
	}
	snapshot := make(argstore.Snapshot, len(document))
	for key, record := range document {
		if record == nil {
			record = map[string]any{}
		}
		snapshot[key] = argstore.Record(record)
	}
	return snapshot, nil
}

// Encode writes snapshot as a YAML document with sorted keys.
func Encode(w io.Writer, snapshot argstore.Snapshot) error {
	document := make(map[string]map[string]any, len(snapshot))
	for key, record := range snapshot {
		if record == nil {
			record = argstore.Record{}
		}
		document[key] = map[string]any(record)
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("encode yaml snapshot: %w", err)
	}
	return encoder.Close()
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (argstore.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}
	defer f.Close()
	snapshot, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("filestore: %s: %w", path, err)
	}
	return snapshot, nil
}

func checkETag(path, expected string) error {
	if expected == "" {
		return nil
	}
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return state.CheckETag(expected, state.Meta{}, false)
	}
	if err != nil {
		return fmt.Errorf("filestore: read %s: %w", path, err)
	}
	return state.CheckETag(expected, state.Meta{ETag: etag(payload)}, true)
}

func etag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
