package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-argstore"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrNotFound = errors.New("state: snapshot not found")

// ETagAbsent as the Meta.ETag passed to Save requires that no snapshot is
// stored for the ref yet.
const ETagAbsent = "-"

// Ref identifies one persisted snapshot.
type Ref struct {
	Namespace string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single reference. Save returns the
// metadata as stored, including any ETag the adapter assigned.
//
// The ETag in the meta passed to Save is a precondition checked atomically
// with the write (see CheckETag): empty writes unconditionally, ETagAbsent
// requires a missing snapshot, any other value must equal the stored ETag.
// A failed precondition returns ErrETagMismatch and leaves storage untouched.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot argstore.Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot argstore.Snapshot, meta Meta) (Meta, error)
}

// Mutator edits a store restored from the persisted snapshot.
type Mutator func(*argstore.Store) error

// Resolver moves snapshots between a Store and argstore stores. StoreOptions
// configure the stores Mutate builds (wildcard marker, patch mode, logger).
type Resolver struct {
	Store        Store
	StoreOptions []argstore.Option
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	namespace := strings.TrimSpace(r.Namespace)
	if namespace == "" {
		return "", fmt.Errorf("state: namespace is required")
	}
	if strings.ContainsAny(namespace, "/\\") {
		return "", fmt.Errorf("state: namespace %q must not contain path separators", namespace)
	}
	return "args/" + namespace, nil
}

// Restore loads the snapshot for ref and spreads it into target. A missing
// snapshot returns ErrNotFound and leaves target untouched.
func (r Resolver) Restore(ctx context.Context, ref Ref, target *argstore.Store) (Meta, error) {
	if err := r.validate(ref); err != nil {
		return Meta{}, err
	}
	if target == nil {
		return Meta{}, fmt.Errorf("state: target store is required")
	}
	snapshot, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.Namespace, err)
	}
	if !ok {
		return Meta{}, fmt.Errorf("%w: %q", ErrNotFound, ref.Namespace)
	}
	target.Restore(snapshot)
	return meta, nil
}

// Persist saves the snapshot of source under ref. A non-empty meta.ETag must
// match the stored ETag, both before the save and inside the adapter's write.
// A SnapshotID is generated when meta has none.
func (r Resolver) Persist(ctx context.Context, ref Ref, source *argstore.Store, meta Meta) (Meta, error) {
	if err := r.validate(ref); err != nil {
		return Meta{}, err
	}
	if source == nil {
		return Meta{}, fmt.Errorf("state: source store is required")
	}
	snapshot, err := source.Export()
	if err != nil {
		return Meta{}, fmt.Errorf("state: persist %q: %w", ref.Namespace, err)
	}
	loadedMeta := Meta{}
	if meta.ETag != "" {
		_, current, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return Meta{}, fmt.Errorf("state: load %q: %w", ref.Namespace, err)
		}
		if ok {
			loadedMeta = current
		}
		if err := CheckETag(meta.ETag, loadedMeta, ok); err != nil {
			return loadedMeta, err
		}
	}
	return r.save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
}

// Mutate loads the snapshot for ref into a fresh store, applies fn, then
// saves the result. A missing snapshot starts from an empty store. The save
// only succeeds if the snapshot is still the one that was loaded.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (*argstore.Store, Meta, error) {
	if err := r.validate(ref); err != nil {
		return nil, Meta{}, err
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q: %w", ref.Namespace, err)
	}
	if !ok {
		snapshot = nil
		loadedMeta = Meta{}
	}
	if err := CheckETag(meta.ETag, loadedMeta, ok); err != nil {
		return nil, loadedMeta, err
	}

	store := argstore.New(r.StoreOptions...)
	store.Restore(snapshot)
	if err := fn(store); err != nil {
		return nil, loadedMeta, err
	}
	next, err := store.Export()
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: mutate %q: %w", ref.Namespace, err)
	}

	// A mutation produces a new snapshot, so any previous id is dropped.
	saveMeta := mergeMeta(loadedMeta, meta)
	if meta.SnapshotID == "" {
		saveMeta.SnapshotID = ""
	}
	saveMeta.ETag = loadedMeta.ETag
	if !ok {
		saveMeta.ETag = ETagAbsent
	}
	savedMeta, err := r.save(ctx, ref, next, saveMeta)
	if err != nil {
		return nil, loadedMeta, err
	}
	return store, savedMeta, nil
}

func (r Resolver) validate(ref Ref) error {
	if r.Store == nil {
		return fmt.Errorf("state: store is required")
	}
	_, err := ref.Identifier()
	return err
}

func (r Resolver) save(ctx context.Context, ref Ref, snapshot argstore.Snapshot, meta Meta) (Meta, error) {
	if meta.SnapshotID == "" {
		meta.SnapshotID = uuid.NewString()
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now().UTC()
	}
	saved, err := r.Store.Save(ctx, ref, snapshot, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q: %w", ref.Namespace, err)
	}
	return saved, nil
}

// CheckETag reports whether a save carrying expected may replace the stored
// snapshot. exists tells whether a snapshot is stored and current holds its
// metadata. Adapters call it inside their write critical section.
func CheckETag(expected string, current Meta, exists bool) error {
	switch {
	case expected == "":
		return nil
	case expected == ETagAbsent:
		if exists {
			return fmt.Errorf("%w: expected no snapshot, got %q", ErrETagMismatch, current.ETag)
		}
		return nil
	case !exists:
		return fmt.Errorf("%w: expected %q, no snapshot stored", ErrETagMismatch, expected)
	case expected != current.ETag:
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected, current.ETag)
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	} else {
		out.UpdatedAt = time.Time{}
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
