// Package aggregates defines the write boundaries of the crop-yield domain.
//
// Contracts here are storage-neutral: the same record aggregate is served by
// the relational, document and in-memory backends.
package aggregates
