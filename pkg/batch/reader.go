package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/timoklimmer/documentdb-go/pkg/client"
)

// Config holds batch reader configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel point reads.
	// Each read spends request units, so the ceiling also caps the
	// burst charge against the collection's provisioned throughput.
	MaxConcurrency int

	// Timeout per document read
	Timeout time.Duration
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		Timeout:        10 * time.Second,
	}
}

// DocumentReader is the single-document read the pool fans out over.
// *client.Client implements it.
type DocumentReader interface {
	GetDocument(ctx context.Context, db, coll, id string, partitionKey any) (client.Document, error)
}

// Ref addresses one document to read.
type Ref struct {
	ID           string
	PartitionKey any
}

type readResult struct {
	id  string
	doc client.Document
}

// Reader fans point reads out over a bounded worker pool.
type Reader struct {
	reader DocumentReader
	config Config
}

// NewReader creates a new batch reader
func NewReader(reader DocumentReader, config Config) *Reader {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Reader{
		reader: reader,
		config: config,
	}
}

// ReadAll reads all referenced documents of one collection in parallel.
// Returns a map of id -> document for the documents that exist; refs that
// resolve to 404 are skipped. Any other read error stops the worker that
// hit it and surfaces after collection, together with the documents read
// so far.
func (b *Reader) ReadAll(ctx context.Context, db, coll string, refs []Ref) (map[string]client.Document, error) {
	start := time.Now()

	found := make(map[string]client.Document)
	if len(refs) == 0 {
		return found, nil
	}

	log.Debug().
		Str("collection", coll).
		Int("refs", len(refs)).
		Int("workers", b.config.MaxConcurrency).
		Msg("Starting parallel document read")

	queue := make(chan Ref, len(refs))
	for _, ref := range refs {
		queue <- ref
	}
	close(queue)

	results := make(chan readResult, len(refs))
	errs := make(chan error, b.config.MaxConcurrency)

	var wg sync.WaitGroup
	for i := 0; i < b.config.MaxConcurrency; i++ {
		wg.Add(1)
		go b.worker(ctx, db, coll, queue, results, errs, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	for result := range results {
		found[result.id] = result.doc

		// Progress logging every 50 documents
		if len(found)%50 == 0 {
			log.Debug().
				Int("read", len(found)).
				Int("total", len(refs)).
				Msg("Read progress")
		}
	}

	select {
	case err := <-errs:
		if err != nil {
			log.Warn().
				Err(err).
				Int("read", len(found)).
				Int("total", len(refs)).
				Msg("Worker error, returning partial result")
			return found, fmt.Errorf("batch read (partial result: %d/%d documents): %w", len(found), len(refs), err)
		}
	default:
	}

	if err := ctx.Err(); err != nil {
		return found, err
	}

	log.Debug().
		Str("collection", coll).
		Int("read", len(found)).
		Int("total", len(refs)).
		Dur("duration", time.Since(start)).
		Msg("Parallel document read complete")

	return found, nil
}

// worker reads refs from the queue until it is drained.
func (b *Reader) worker(ctx context.Context, db, coll string, queue <-chan Ref, results chan<- readResult, errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for ref := range queue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		readCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
		doc, err := b.reader.GetDocument(readCtx, db, coll, ref.ID, ref.PartitionKey)
		cancel()

		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				log.Warn().
					Str("document", ref.ID).
					Msg("Document not found, skipping")
				continue
			}

			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("document", ref.ID).
				Msg("Document read failed")

			// Non-blocking error send
			select {
			case errs <- err:
			default:
			}
			return
		}

		select {
		case results <- readResult{id: ref.ID, doc: doc}:
		case <-ctx.Done():
			return
		}
	}
}
