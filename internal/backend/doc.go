// Package backend implements the development backend server.
//
// The server is the counterparty for every upload surface the client
// providers speak: the local multipart endpoint, the raw proxy
// endpoint, and the presign endpoint with its signed form-upload
// target. Stored assets are served statically, and submitted bug
// reports are persisted to SQLite with a rendered markdown summary
// per report.
//
// It is a development tool: single process, local disk storage, no
// authentication. Production deployments bring their own backend and
// only need to honor the same wire formats.
package backend
