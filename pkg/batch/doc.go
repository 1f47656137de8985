// Package batch reads many documents in parallel with a bounded worker pool.
//
// Query pages are strictly sequential (each page is addressed by its
// predecessor's continuation token), but point reads by id have no such
// ordering and can fan out. The reader takes a set of document refs and
// fetches them with bounded concurrency.
//
// Example usage:
//
//	reader := batch.NewReader(docClient, batch.DefaultConfig())
//	docs, err := reader.ReadAll(ctx, "shop", "orders", refs)
//
// Missing documents are skipped, not treated as failures: the result holds
// what was found. Any other read error stops the failing worker and returns
// the partial result alongside the error.
package batch
