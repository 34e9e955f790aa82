package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/logger"
	"github.com/hobbyshelf/hobbyshelf-server/internal/store"
)

// EngineBleve names the Bleve engine.
const EngineBleve = "bleve"

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on startup recreates the index.
const mappingVersion = "1"

const batchSize = 500

// BleveIndex is a Bleve-backed store.SearchIndexer. Writes are collected per
// transaction and applied as one batch just before the SQL commit. If the
// commit fails, the touched entries are re-read from the store and re-indexed.
//
// Thread safety: all public methods are safe for concurrent use.
type BleveIndex struct {
	index  bleve.Index
	path   string
	source store.DocumentSource
	logger *slog.Logger
	mu     sync.RWMutex // guards index replacement during Reset and repair
}

// BleveOptions configures the Bleve engine.
type BleveOptions struct {
	Path   string               // index directory
	Source store.DocumentSource // committed state, used for repair
	Logger *slog.Logger
}

// pendingBatch is the index work of one transaction. A nil document marks
// a delete.
type pendingBatch struct {
	reset bool
	order []int64
	docs  map[int64]*store.SearchDocument
}

func (p *pendingBatch) put(id int64, doc *store.SearchDocument) {
	if _, ok := p.docs[id]; !ok {
		p.order = append(p.order, id)
	}
	p.docs[id] = doc
}

// NewBleveIndex opens the index at opts.Path, recreating it when it is
// unreadable or was built with another mapping version.
func NewBleveIndex(opts BleveOptions) (*BleveIndex, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard().Logger
	}

	b := &BleveIndex{path: opts.Path, source: opts.Source, logger: log}
	versionPath := b.versionPath()

	needsRebuild := false
	if _, err := os.Stat(b.path); err == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			log.Info("search index has no version file, will rebuild", "new_version", mappingVersion)
			needsRebuild = true
		case string(existing) != mappingVersion:
			log.Info("search index mapping version changed, will rebuild",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		default:
			index, openErr := bleve.Open(b.path)
			if openErr != nil {
				log.Warn("failed to open existing index, will recreate", "path", b.path, "error", openErr)
				needsRebuild = true
			} else {
				b.index = index
			}
		}
	}

	if b.index == nil {
		if err := b.create(); err != nil {
			return nil, err
		}
		log.Info("created new search index", "path", b.path, "mapping_version", mappingVersion)
		if needsRebuild && b.source != nil {
			if err := b.rebuildFromSource(context.Background()); err != nil {
				log.Warn("initial search index fill failed", "error", err)
			}
		}
	} else {
		log.Info("opened existing search index", "path", b.path)
	}

	return b, nil
}

func (b *BleveIndex) versionPath() string {
	return b.path + ".version"
}

// create removes whatever is at path and builds an empty index.
// Callers hold b.mu or own b exclusively.
func (b *BleveIndex) create() error {
	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Warn("close search index", "error", err)
		}
		b.index = nil
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("remove old index: %w", err)
	}
	index, err := bleve.New(b.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(b.versionPath(), []byte(mappingVersion), 0o644); err != nil {
		b.logger.Warn("failed to write search version file", "error", err)
	}
	b.index = index
	return nil
}

// Name implements store.SearchIndexer.
func (b *BleveIndex) Name() string { return EngineBleve }

// Close closes the index and releases resources.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index == nil {
		return nil
	}
	return b.index.Close()
}

// DocumentCount returns the number of indexed entries.
func (b *BleveIndex) DocumentCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// IndexEntry implements store.SearchIndexer.
func (b *BleveIndex) IndexEntry(_ context.Context, tx *store.Tx, doc *store.SearchDocument) error {
	b.pending(tx).put(doc.ID, doc)
	return nil
}

// DeleteEntry implements store.SearchIndexer.
func (b *BleveIndex) DeleteEntry(_ context.Context, tx *store.Tx, entryID int64) error {
	b.pending(tx).put(entryID, nil)
	return nil
}

// Reset implements store.SearchIndexer. The index is recreated when the
// transaction commits.
func (b *BleveIndex) Reset(_ context.Context, tx *store.Tx) error {
	p := b.pending(tx)
	p.reset = true
	p.order = nil
	clear(p.docs)
	return nil
}

// pending returns the batch for tx, registering its hooks on first use.
func (b *BleveIndex) pending(tx *store.Tx) *pendingBatch {
	if p, ok := tx.Value(b).(*pendingBatch); ok {
		return p
	}
	p := &pendingBatch{docs: make(map[int64]*store.SearchDocument)}
	tx.SetValue(b, p)
	tx.BeforeCommit(func() error { return b.apply(p) })
	tx.OnFailure(func() { b.repair(context.Background(), p) })
	return p
}

func (b *BleveIndex) apply(p *pendingBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.reset {
		if err := b.create(); err != nil {
			return err
		}
	}
	return b.write(p.order, p.docs)
}

// write applies puts and deletes in chunks of batchSize.
func (b *BleveIndex) write(ids []int64, docs map[int64]*store.SearchDocument) error {
	for i := 0; i < len(ids); i += batchSize {
		end := min(i+batchSize, len(ids))

		batch := b.index.NewBatch()
		for _, id := range ids[i:end] {
			doc := docs[id]
			if doc == nil {
				batch.Delete(docID(id))
				continue
			}
			if err := batch.Index(docID(id), toMap(doc)); err != nil {
				return fmt.Errorf("batch index %d: %w", id, err)
			}
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// repair brings the entries touched by a failed transaction back in line
// with committed state.
func (b *BleveIndex) repair(ctx context.Context, p *pendingBatch) {
	if b.source == nil {
		b.logger.Warn("search index may be stale: no document source for repair")
		return
	}
	if p.reset {
		if err := b.rebuildFromSource(ctx); err != nil {
			b.logger.Error("search index rebuild after failed commit", "error", err)
		}
		return
	}
	if len(p.order) == 0 {
		return
	}

	docs := make(map[int64]*store.SearchDocument, len(p.order))
	for _, id := range p.order {
		docs[id] = nil
	}
	for doc, err := range b.source.SearchDocuments(ctx, p.order) {
		if err != nil {
			b.logger.Error("load documents for search repair", "error", err)
			return
		}
		docs[doc.ID] = doc
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.write(p.order, docs); err != nil {
		b.logger.Error("search index repair", "error", err, "entries", len(p.order))
		return
	}
	b.logger.Info("search index repaired after failed commit", "entries", len(p.order))
}

// rebuildFromSource recreates the index from every committed entry.
func (b *BleveIndex) rebuildFromSource(ctx context.Context) error {
	var (
		ids  []int64
		docs = make(map[int64]*store.SearchDocument)
	)
	for doc, err := range b.source.SearchDocuments(ctx, nil) {
		if err != nil {
			return err
		}
		ids = append(ids, doc.ID)
		docs[doc.ID] = doc
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.create(); err != nil {
		return err
	}
	if err := b.write(ids, docs); err != nil {
		return err
	}
	b.logger.Info("rebuilt search index", "path", b.path, "entries", len(ids))
	return nil
}

// Search implements store.SearchIndexer.
func (b *BleveIndex) Search(ctx context.Context, q store.SearchQuery) (*store.SearchPage, error) {
	if len(q.Tokens) == 0 {
		return &store.SearchPage{}, nil
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), q.Limit, q.Offset, false)

	b.mu.RLock()
	result, err := b.index.SearchInContext(ctx, req)
	b.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	page := &store.SearchPage{
		Total: int(result.Total),
		Hits:  make([]store.SearchHit, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			b.logger.Warn("skipping search hit with foreign id", "id", hit.ID)
			continue
		}
		page.Hits = append(page.Hits, store.SearchHit{ID: id, Rank: hit.Score})
	}
	return page, nil
}
