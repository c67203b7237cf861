package argstore

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-argstore/layering"
	"github.com/goliatone/go-argstore/pkg/activity"
)

// Record maps argument names to untyped values. Values are validated only
// when a caller consumes the effective record.
type Record map[string]any

// Clone returns a detached copy of r. A nil record yields an empty record.
func (r Record) Clone() Record {
	return Record(layering.CloneMap(r))
}

// Snapshot is the untyped export of a Store, keyed by the boundary text of
// each Key (see Key.Format).
type Snapshot map[string]Record

// Clone returns a detached copy of s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for key, record := range s {
		out[key] = record.Clone()
	}
	return out
}

// PatchMode selects how PatchFuncArgs combines a partial record with the
// record already stored for a key.
type PatchMode int

const (
	// PatchSpread adds new keys, overwrites existing ones and preserves keys
	// the partial record does not mention.
	PatchSpread PatchMode = iota
	// PatchNestOld replaces the stored record with the partial record plus a
	// field named OldField holding the previous record. Kept for data written
	// by hosts that relied on this layout.
	PatchNestOld
)

// OldField is the field PatchNestOld stores the previous record under.
const OldField = "old"

func (m PatchMode) String() string {
	switch m {
	case PatchSpread:
		return "spread"
	case PatchNestOld:
		return "nest-old"
	default:
		return "unknown"
	}
}

// ParsePatchMode converts a textual mode ("spread", "nest-old") into a
// PatchMode.
func ParsePatchMode(value string) (PatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "spread":
		return PatchSpread, nil
	case "nest-old", "nest_old", "old":
		return PatchNestOld, nil
	default:
		return PatchSpread, fmt.Errorf("argstore: unknown patch mode %q", value)
	}
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	marker        string
	patchMode     PatchMode
	logger        Logger
	activityHooks activity.Hooks
	channel       string
	actorID       string
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{
		marker:    DefaultWildcardMarker,
		patchMode: PatchSpread,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return cfg
}

// WithWildcardMarker sets the boundary text used for Wildcard in snapshots.
func WithWildcardMarker(marker string) Option {
	return func(cfg *storeConfig) {
		if marker != "" {
			cfg.marker = marker
		}
	}
}

// WithPatchMode selects the PatchFuncArgs behaviour.
func WithPatchMode(mode PatchMode) Option {
	return func(cfg *storeConfig) {
		cfg.patchMode = mode
	}
}

// WithLogger attaches a logger to the store.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
