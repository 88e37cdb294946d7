// Package index implements the vector index (C10): a local on-disk store of
// Turns keyed by a sentence embedding, with batch-discipline and
// content-hash dedup, adapted from the teacher's chromem-go vector store.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"turnindex/internal/types"
)

// MaxBatch is the largest sub-batch size for a single atomic call into the
// underlying store (spec.md §4.10).
const MaxBatch = 166

// Entry is one record to add to the index.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Record is a stored document as returned by Get/Iterate.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Candidate is a query result: a Record plus its raw similarity to the
// query embedding.
type Candidate struct {
	Record
	Similarity float32
}

// AddResult is add_batch's outcome counters.
type AddResult struct {
	Added   int
	Skipped int
	Errors  int
}

// Gateway is the subset of internal/embedding.Gateway the index needs to
// embed new content, narrowed so a test can substitute an encoder that
// fails on demand.
type Gateway interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index wraps a chromem-go collection with the write discipline spec.md
// §4.10 requires: every write serialises through a single mutex, content
// hashes are deduplicated before any write reaches the store, and batches
// larger than MaxBatch are split into sub-batches each written atomically.
type Index struct {
	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
	gateway    Gateway

	// hashToID and idHashes track content_hash -> id and the reverse,
	// for the dedup invariant: add_batch must never write two records
	// with the same content_hash.
	hashToID map[string]string
	idHashes map[string]string

	// ids lists the ids written through this Index, maintained alongside
	// chromem-go (whose Go API has no "list all documents" call) so
	// Iterate can walk the record set without re-querying the vector
	// store. Count reads the collection's own count instead. Ids already
	// in a persistent store when the Index is opened are not in ids.
	ids []string
}

// Config configures a new Index.
type Config struct {
	PersistPath    string // empty = in-memory only
	CollectionName string
	Gateway        Gateway
}

// New constructs an Index backed by chromem-go.
func New(cfg Config) (*Index, error) {
	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
	} else {
		db = chromem.NewDB()
	}
	if err != nil {
		return nil, fmt.Errorf("index: open store: %w", err)
	}

	name := cfg.CollectionName
	if name == "" {
		name = "turns"
	}
	collection, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("index: create collection: %w", err)
	}

	return &Index{
		db:         db,
		collection: collection,
		gateway:    cfg.Gateway,
		hashToID:   make(map[string]string),
		idHashes:   make(map[string]string),
	}, nil
}

// maxHalvings bounds the transient-failure retry policy (spec.md §7 error
// kind 1): a sub-batch that fails to write is split in half and retried, up
// to three halvings, after which the remainder counts as errors.
const maxHalvings = 3

// AddBatch writes entries to the index, skipping any whose content_hash
// already exists, sub-batching the rest at MaxBatch, and embedding each
// sub-batch in one call. A content hash is only recorded as seen once its
// write actually succeeds, so a failed write never blacklists content a
// caller legitimately resubmits later.
func (idx *Index) AddBatch(ctx context.Context, entries []Entry) (AddResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var result AddResult
	var accepted []Entry
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		hash := types.ContentHash(e.Content)
		if _, exists := idx.hashToID[hash]; exists || seen[hash] {
			result.Skipped++
			continue
		}
		seen[hash] = true
		accepted = append(accepted, e)
	}

	for start := 0; start < len(accepted); start += MaxBatch {
		end := start + MaxBatch
		if end > len(accepted) {
			end = len(accepted)
		}
		idx.addChunk(ctx, accepted[start:end], 0, &result)
	}

	return result, nil
}

// addChunk attempts to embed and write chunk as one atomic call. On failure
// it halves the chunk and retries each half, up to maxHalvings, before
// giving up and counting the remainder as errors. Only entries in a chunk
// that is actually written have their content hash recorded, so a chunk
// that exhausts its retries remains resubmittable.
func (idx *Index) addChunk(ctx context.Context, chunk []Entry, depth int, result *AddResult) {
	if len(chunk) == 0 {
		return
	}

	texts := make([]string, len(chunk))
	for i, e := range chunk {
		texts[i] = e.Content
	}

	written := false
	if vecs, err := idx.gateway.EncodeBatch(ctx, texts); err == nil {
		docs := make([]chromem.Document, len(chunk))
		for i, e := range chunk {
			docs[i] = chromem.Document{
				ID:        e.ID,
				Content:   e.Content,
				Metadata:  e.Metadata,
				Embedding: vecs[i],
			}
		}
		written = idx.collection.AddDocuments(ctx, docs, 1) == nil
	}

	if written {
		for _, e := range chunk {
			hash := types.ContentHash(e.Content)
			idx.hashToID[hash] = e.ID
			idx.idHashes[e.ID] = hash
			idx.ids = append(idx.ids, e.ID)
		}
		result.Added += len(chunk)
		return
	}

	if depth >= maxHalvings || len(chunk) == 1 {
		result.Errors += len(chunk)
		return
	}

	mid := len(chunk) / 2
	idx.addChunk(ctx, chunk[:mid], depth+1, result)
	idx.addChunk(ctx, chunk[mid:], depth+1, result)
}

// UpdateMetadata replaces (never merges) the metadata for each id, batched
// at MaxBatch. An id with no existing record is skipped silently — per
// spec.md's schema-evolution invariant, absence is not an error.
func (idx *Index) UpdateMetadata(ctx context.Context, ids []string, metadatas []map[string]string) error {
	if len(ids) != len(metadatas) {
		return fmt.Errorf("index: ids and metadatas length mismatch (%d vs %d)", len(ids), len(metadatas))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for start := 0; start < len(ids); start += MaxBatch {
		end := start + MaxBatch
		if end > len(ids) {
			end = len(ids)
		}
		for i := start; i < end; i++ {
			doc, err := idx.collection.GetByID(ctx, ids[i])
			if err != nil {
				continue
			}
			if err := idx.collection.Delete(ctx, nil, nil, ids[i]); err != nil {
				continue
			}
			doc.Metadata = metadatas[i]
			_ = idx.collection.AddDocument(ctx, doc)
		}
	}
	return nil
}

// Get returns the stored record for each requested id that exists.
func (idx *Index) Get(ctx context.Context, ids []string) ([]Record, error) {
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		doc, err := idx.collection.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, Record{ID: doc.ID, Content: doc.Content, Metadata: doc.Metadata, Embedding: doc.Embedding})
	}
	return out, nil
}

// Query encodes text via C1 and asks the store for the top-k candidates by
// cosine similarity under filter.
func (idx *Index) Query(ctx context.Context, text string, k int, filter map[string]string) ([]Candidate, error) {
	vec, err := idx.gateway.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("index: encode query: %w", err)
	}

	results, err := idx.collection.QueryEmbedding(ctx, vec, k, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{
			Record: Record{ID: r.ID, Content: r.Content, Metadata: r.Metadata, Embedding: r.Embedding},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the total number of records in the index.
func (idx *Index) Count() int {
	return idx.collection.Count()
}

// Iterate streams all records matching filter in batches of batchSize,
// calling fn once per batch. Iteration stops and returns fn's error if it
// returns one.
func (idx *Index) Iterate(ctx context.Context, filter map[string]string, batchSize int, fn func([]Record) error) error {
	if batchSize <= 0 {
		batchSize = MaxBatch
	}

	idx.mu.Lock()
	ids := make([]string, len(idx.ids))
	copy(ids, idx.ids)
	idx.mu.Unlock()
	sort.Strings(ids)

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := idx.Get(ctx, ids[start:end])
		if err != nil {
			return err
		}
		if filter != nil {
			batch = filterRecords(batch, filter)
		}
		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func filterRecords(records []Record, filter map[string]string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		match := true
		for k, v := range filter {
			if r.Metadata[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, r)
		}
	}
	return out
}
