package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-argstore"
	"github.com/goliatone/go-argstore/pkg/state"
	"github.com/goliatone/go-argstore/pkg/state/filestore"
	"github.com/goliatone/go-argstore/pkg/state/sqlitestore"
)

// session is one command's view of the configured defaults: a store restored
// from --db or --file (or empty) and the means to persist it back.
type session struct {
	store    *argstore.Store
	resolver state.Resolver
	ref      state.Ref
	meta     state.Meta
	backed   bool
	close    func() error
}

func (o *RootOptions) openSession(ctx context.Context) (*session, error) {
	mode, err := argstore.ParsePatchMode(o.config.GetString("patch_mode"))
	if err != nil {
		return nil, Userf("%v", err)
	}
	store := argstore.New(
		argstore.WithWildcardMarker(o.config.GetString("wildcard")),
		argstore.WithPatchMode(mode),
		argstore.WithLogger(o.logger),
	)
	s := &session{store: store, close: func() error { return nil }}

	db := o.config.GetString("db")
	file := o.config.GetString("file")
	switch {
	case db != "" && file != "":
		return nil, User("--db and --file are mutually exclusive")
	case db != "":
		sqlite, err := sqlitestore.Open(db)
		if err != nil {
			return nil, err
		}
		s.resolver = state.Resolver{Store: sqlite}
		s.ref = state.Ref{Namespace: o.config.GetString("namespace")}
		s.close = sqlite.Close
	case file != "":
		if filepath.Ext(file) != ".yaml" {
			return nil, Userf("--file %s must have a .yaml extension", file)
		}
		s.resolver = state.Resolver{Store: filestore.New(filepath.Dir(file))}
		s.ref = state.Ref{Namespace: strings.TrimSuffix(filepath.Base(file), ".yaml")}
	default:
		return s, nil
	}

	if _, err := s.ref.Identifier(); err != nil {
		s.close()
		return nil, Userf("%v", err)
	}
	s.backed = true

	meta, err := s.resolver.Restore(ctx, s.ref, store)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		s.close()
		return nil, err
	}
	s.meta = meta
	if err != nil {
		// Saving must not replace a snapshot another writer created meanwhile.
		s.meta.ETag = state.ETagAbsent
	}
	o.logger.Debug("defaults loaded", "namespace", s.ref.Namespace, "records", store.Len(), "etag", meta.ETag)
	return s, nil
}

// persist saves the store, failing if the backing data changed since it was
// loaded.
func (s *session) persist(ctx context.Context) error {
	if !s.backed {
		return User("nothing to save to: pass --db or --file")
	}
	meta, err := s.resolver.Persist(ctx, s.ref, s.store, state.Meta{ETag: s.meta.ETag})
	if err != nil {
		return err
	}
	s.meta = meta
	return nil
}
