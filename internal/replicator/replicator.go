// Package replicator copies a whole document tree from one store to another.
//
// A migration runs in two strictly sequential phases: the entire source tree
// is read into a tree.Store, then every document is upserted at the same
// path in the destination, depth first. Nothing runs concurrently, there is
// no retry, and an interrupted run leaves the destination partially
// written. Reruns are idempotent because every write is a full replace.
package replicator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// Options tune the write phase
type Options struct {
	// ContinueOnError keeps writing after a failed upsert and returns every
	// failure as WriteFailures at the end. The default aborts on the first.
	ContinueOnError bool

	// SkipEmptyFields leaves documents with no fields unwritten, as the
	// original seeding script did. Their sub-collections are still written.
	SkipEmptyFields bool
}

// Report summarises a migration
type Report struct {
	RootCollections int
	Documents       int
	Written         int
	Skipped         int
	Failed          []string
	ReadDuration    time.Duration
	WriteDuration   time.Duration
	Digest          tree.Digest
}

// Replicator runs a single migration
type Replicator struct {
	opts   Options
	logger *zap.Logger
	phase  atomic.Int32
}

// New creates an idle replicator
func New(logger *zap.Logger, opts Options) *Replicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replicator{opts: opts, logger: logger}
}

// Phase returns the current migration phase
func (r *Replicator) Phase() Phase {
	return Phase(r.phase.Load())
}

func (r *Replicator) advance(to Phase) error {
	from := r.Phase()
	if !CanTransition(from, to) || !r.phase.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("replicator: illegal transition %s -> %s", from, to)
	}
	r.logger.Debug("phase", zap.Stringer("from", from), zap.Stringer("to", to))
	return nil
}

// Migrate reads the whole source, then writes it to the destination.
// It may be called once per Replicator.
func (r *Replicator) Migrate(ctx context.Context, src repository.Source, dst repository.Sink) (*Report, error) {
	if err := r.advance(PhaseReading); err != nil {
		return nil, ErrAlreadyStarted
	}

	start := time.Now()
	store, err := r.ReadStore(ctx, src)
	if err != nil {
		r.phase.Store(int32(PhaseFailed))
		return nil, err
	}
	readDuration := time.Since(start)

	if err := r.advance(PhaseWriting); err != nil {
		return nil, err
	}
	report, err := r.WriteStore(ctx, store, dst)
	if report != nil {
		report.ReadDuration = readDuration
		report.Digest = store.Digest()
	}
	if err != nil {
		r.phase.Store(int32(PhaseFailed))
		return report, err
	}
	if err := r.advance(PhaseDone); err != nil {
		return report, err
	}
	return report, nil
}

// ReadStore materialises the entire source tree. Any failed call abandons
// the read; no partial store is returned.
func (r *Replicator) ReadStore(ctx context.Context, src repository.Source) (*tree.Store, error) {
	roots, err := src.RootCollections(ctx)
	if err != nil {
		return nil, &ReadError{Op: OpListRootCollections, Path: tree.Root(), Err: err}
	}

	store := tree.NewStore()
	for _, name := range roots {
		r.logger.Info("reading collection", zap.String("collection", name))
		coll, err := r.readCollection(ctx, src, tree.Root().Collection(name))
		if err != nil {
			return nil, err
		}
		store.AddCollection(coll)
		r.logger.Info("read collection",
			zap.String("collection", name),
			zap.Int("documents", len(coll.Docs)))
	}
	return store, nil
}

func (r *Replicator) readCollection(ctx context.Context, src repository.Source, path tree.Path) (*tree.Collection, error) {
	coll := &tree.Collection{Name: path.ID()}
	for doc, err := range src.Documents(ctx, path) {
		if err != nil {
			return nil, &ReadError{Op: OpListDocuments, Path: path, Err: err}
		}
		docPath := path.Doc(doc.ID)
		fields := doc.Fields
		if fields == nil {
			fields = tree.Fields{}
		}
		node := &tree.Node{ID: doc.ID, Fields: fields}

		names, err := src.SubCollections(ctx, docPath)
		if err != nil {
			return nil, &ReadError{Op: OpListSubCollections, Path: docPath, Err: err}
		}
		for _, name := range names {
			r.logger.Debug("reading sub-collection", zap.Stringer("path", docPath.Collection(name)))
			child, err := r.readCollection(ctx, src, docPath.Collection(name))
			if err != nil {
				return nil, err
			}
			node.AddChild(child)
		}
		coll.Add(node)
	}
	return coll, nil
}

// WriteStore upserts every document of store at the same path in dst,
// parents before children.
func (r *Replicator) WriteStore(ctx context.Context, store *tree.Store, dst repository.Sink) (*Report, error) {
	start := time.Now()
	w := &writer{Replicator: r, dst: dst, report: &Report{}}
	w.report.RootCollections, w.report.Documents = store.Count()

	var err error
	for _, coll := range store.Collections {
		r.logger.Info("writing collection",
			zap.String("collection", coll.Name),
			zap.Int("documents", len(coll.Docs)))
		if err = w.writeCollection(ctx, tree.Root().Collection(coll.Name), coll); err != nil {
			break
		}
	}
	w.report.WriteDuration = time.Since(start)

	if err != nil {
		return w.report, err
	}
	if len(w.failures) > 0 {
		return w.report, w.failures
	}
	return w.report, nil
}

type writer struct {
	*Replicator
	dst      repository.Sink
	report   *Report
	failures WriteFailures
}

func (w *writer) writeCollection(ctx context.Context, path tree.Path, coll *tree.Collection) error {
	for _, node := range coll.Docs {
		docPath := path.Doc(node.ID)
		if err := w.writeDocument(ctx, docPath, node); err != nil {
			return err
		}
		for _, child := range node.Children {
			w.logger.Debug("writing sub-collection", zap.Stringer("path", docPath.Collection(child.Name)))
			if err := w.writeCollection(ctx, docPath.Collection(child.Name), child); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeDocument returns an error only when the run must stop
func (w *writer) writeDocument(ctx context.Context, path tree.Path, node *tree.Node) error {
	if w.opts.SkipEmptyFields && len(node.Fields) == 0 {
		w.report.Skipped++
		w.logger.Debug("skipping empty document", zap.Stringer("path", path))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	err := w.dst.Upsert(ctx, path, node.Fields)
	if err == nil {
		w.report.Written++
		return nil
	}

	werr := &WriteError{Path: path, Err: err}
	w.report.Failed = append(w.report.Failed, path.String())
	if !w.opts.ContinueOnError {
		return werr
	}
	w.logger.Warn("write failed, continuing", zap.Stringer("path", path), zap.Error(err))
	w.failures = append(w.failures, werr)
	return nil
}

// Verify re-reads dst and checks that every document of want is present
// with identical fields. Documents that exist only in dst are ignored.
// It returns the mismatching paths together with ErrMismatch.
func (r *Replicator) Verify(ctx context.Context, want *tree.Store, dst repository.Source) ([]string, error) {
	got, err := r.ReadStore(ctx, dst)
	if err != nil {
		return nil, err
	}
	if want.Digest() == got.Digest() {
		return nil, nil
	}

	var mismatched []string
	for _, path := range tree.Diff(want, got) {
		p, _ := tree.ParsePath(path)
		if want.Lookup(p) != nil {
			mismatched = append(mismatched, path)
		}
	}
	if len(mismatched) > 0 {
		return mismatched, fmt.Errorf("%w: %d document(s) differ", ErrMismatch, len(mismatched))
	}
	return nil, nil
}

// ReadStore reads src with default options and no logging
func ReadStore(ctx context.Context, src repository.Source) (*tree.Store, error) {
	return New(nil, Options{}).ReadStore(ctx, src)
}

// WriteStore writes store to dst with default options and no logging
func WriteStore(ctx context.Context, store *tree.Store, dst repository.Sink) error {
	_, err := New(nil, Options{}).WriteStore(ctx, store, dst)
	return err
}
