// Package upload turns captured assets into durable asset references.
//
// The orchestrator asks a storage provider for one upload instruction
// per asset, then processes the assets strictly sequentially with a
// bounded linear-backoff retry around each transfer. Sequential
// processing bounds outbound connections to one and keeps aggregate
// progress reporting monotonic and deterministic.
package upload
