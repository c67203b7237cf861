package argstore

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-argstore/layering"
)

// ErrMarkerCollision reports a store holding both the wildcard record and a
// function named like the wildcard marker. Both map to the same boundary text,
// so the pair cannot be exported without losing one record.
var ErrMarkerCollision = errors.New("argstore: function named like the wildcard marker collides with the wildcard record")

// Store holds argument records keyed by function (or Wildcard) and resolves
// the effective arguments for a call. A Store is owned by a single dispatch
// loop; it takes no locks and its operations never fail.
type Store struct {
	records map[Key]Record
	cfg     storeConfig
	emitter *activityEmitter
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	cfg := applyOptions(opts)
	return &Store{
		records: map[Key]Record{},
		cfg:     cfg,
		emitter: newActivityEmitter(cfg),
	}
}

// SetFuncArg sets name to value in the record for key, creating the record
// when absent and overwriting any previous value.
func (s *Store) SetFuncArg(key Key, name string, value any) {
	record := s.recordFor(key)
	previous, existed := record[name]
	record[name] = layering.CloneValue(value)

	s.cfg.logger.Debug("args set", "key", key.Format(s.cfg.marker), "name", name)
	s.emitter.argSet(key.Format(s.cfg.marker), name, previous, existed, value)
}

// PatchFuncArgs merges partial into the record for key according to the
// configured PatchMode.
func (s *Store) PatchFuncArgs(key Key, partial Record) {
	s.patch(key, partial)
	s.cfg.logger.Debug("args patched", "key", key.Format(s.cfg.marker), "fields", len(partial), "mode", s.cfg.patchMode.String())
	s.emitter.argsPatched([]string{key.Format(s.cfg.marker)}, s.cfg.patchMode)
}

// PatchArgs applies PatchFuncArgs to every key in keyed independently. Keys
// that are not present are left untouched.
func (s *Store) PatchArgs(keyed map[Key]Record) {
	if len(keyed) == 0 {
		return
	}
	keys := make([]Key, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sortKeys(keys)

	touched := make([]string, 0, len(keys))
	for _, key := range keys {
		s.patch(key, keyed[key])
		touched = append(touched, key.Format(s.cfg.marker))
	}
	s.cfg.logger.Debug("args patched", "keys", touched, "mode", s.cfg.patchMode.String())
	s.emitter.argsPatched(touched, s.cfg.patchMode)
}

// GetArgs returns the effective record for a call to key: the wildcard
// record, overlaid by the record for key, overlaid by override. The result is
// detached from stored state. With no prior writes it is an empty record.
func (s *Store) GetArgs(key Key, override Record) Record {
	return Record(layering.MergeRecords(override, s.records[key], s.records[Wildcard]))
}

// Record returns a copy of the record stored for key.
func (s *Store) Record(key Key) (Record, bool) {
	record, ok := s.records[key]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// Keys returns the keys that hold a record, Wildcard first and then function
// names in lexical order.
func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// PatchMode reports the configured patch behaviour.
func (s *Store) PatchMode() PatchMode {
	return s.cfg.patchMode
}

// WildcardMarker returns the boundary text used for Wildcard.
func (s *Store) WildcardMarker() string {
	return s.cfg.marker
}

// ParseKey maps boundary text onto a Key using the store's wildcard marker.
func (s *Store) ParseKey(text string) Key {
	return ParseKey(text, s.cfg.marker)
}

// Logger returns the store logger so adapters can share it.
func (s *Store) Logger() Logger {
	return s.cfg.logger
}

// Snapshot exports every record keyed by its boundary text. A function whose
// name equals the wildcard marker cannot be represented and is skipped with a
// warning; the wildcard record keeps the marker. Callers that must not lose
// records use Export instead.
func (s *Store) Snapshot() Snapshot {
	out, collided := s.snapshot()
	for _, key := range collided {
		s.cfg.logger.Warn("args snapshot skipped function named like the wildcard marker", "key", key.String(), "marker", s.cfg.marker)
	}
	return out
}

// Export is Snapshot for persistence: it fails with ErrMarkerCollision rather
// than dropping a record.
func (s *Store) Export() (Snapshot, error) {
	out, collided := s.snapshot()
	if len(collided) > 0 {
		return nil, fmt.Errorf("%w: %s (marker %q)", ErrMarkerCollision, collided[0], s.cfg.marker)
	}
	return out, nil
}

func (s *Store) snapshot() (Snapshot, []Key) {
	out := make(Snapshot, len(s.records))
	var collided []Key
	for _, key := range s.Keys() {
		text := key.Format(s.cfg.marker)
		if _, taken := out[text]; taken {
			collided = append(collided, key)
			continue
		}
		out[text] = s.records[key].Clone()
	}
	return out, collided
}

// Restore spreads every record of snapshot into the store. Existing keys not
// present in snapshot are kept. Restore always spreads regardless of the
// configured PatchMode since snapshots already carry the stored layout.
func (s *Store) Restore(snapshot Snapshot) {
	if len(snapshot) == 0 {
		return
	}
	for text, record := range snapshot {
		layering.Overlay(s.recordFor(s.ParseKey(text)), record)
	}
	s.cfg.logger.Debug("args restored", "records", len(snapshot))
}

func (s *Store) recordFor(key Key) Record {
	record, ok := s.records[key]
	if !ok {
		record = Record{}
		s.records[key] = record
	}
	return record
}

func (s *Store) patch(key Key, partial Record) {
	switch s.cfg.patchMode {
	case PatchNestOld:
		// Legacy layout is {old, ...partial}: a partial field named old wins.
		next := Record{OldField: map[string]any(s.records[key].Clone())}
		layering.Overlay(next, partial)
		s.records[key] = next
	default:
		layering.Overlay(s.recordFor(key), partial)
	}
}
