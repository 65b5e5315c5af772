// Package download pulls page images from the coordinating server.
//
// The server exposes one endpoint, GET /api/img, keyed by the device id and a
// 0-based page number. It answers 200 with the raw image bytes, or 201 with an
// empty body when the page does not exist. The client treats anything other
// than 200 with content as a failure and never retries; retry policy belongs to
// the caller.
package download
