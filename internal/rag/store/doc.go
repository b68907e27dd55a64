// Package store provides the persisted multimodal page index.
//
// It defines the PageStore contract and a SQLite-backed implementation that
// keeps one record per rendered PDF page: identity, multi-vector embedding,
// and a reference to the page image. Similarity search uses late-interaction
// max-sim scoring over the stored vector sequences.
package store
