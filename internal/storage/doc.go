// Package storage implements the pluggable upload backends that turn
// captured assets into durable references.
//
// Three providers satisfy one capability contract: a proxy provider
// that streams raw blobs to a single backend endpoint, a presigned
// provider that obtains per-asset upload targets from a presign
// endpoint and uploads directly to them, and a local provider that
// posts multipart forms to a development backend. The orchestrator in
// package upload drives any Provider without knowing which one it has.
package storage
