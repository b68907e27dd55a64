// Package biz provides the retrieval-and-generation pipeline for visrag.
//
// The Service composes the page renderer, embedding provider, index store,
// and vision-language provider into the two user-facing operations: indexing
// a document set and answering a question. The shared accelerator is treated
// as a single exclusively-held resource: every embedding or generation call
// is serialized behind one mutex.
package biz
