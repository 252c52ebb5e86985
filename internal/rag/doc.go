// Package rag implements the retrieval-augmented-generation pipeline for the
// portfolio backend.
//
// The pipeline has two phases:
//
//   - Indexing (startup, single writer): ChunkDocument splits the profile
//     document into bounded, section-tagged chunks; Indexer embeds them and
//     stores them in the vector index. The run is idempotent and guarded by
//     an advisory file lock.
//
//   - Answering (per request, read-mostly): Engine embeds the question,
//     retrieves the most similar chunks, builds an augmented prompt, streams
//     tokens from the generation model, and persists the exchange.
//
// Engine.Answer produces a stream of Event values (token/done/error) as an
// iter.Seq, so the same pipeline can back SSE handlers, tests, or any other
// transport.
package rag
