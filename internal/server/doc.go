// Package server exposes a Generator over HTTP.
//
// Endpoints:
//   - GET /index.json   - v4 index
//   - GET /stories.json - v3 index (v3-compat when storiesV2Compatibility is set)
//   - GET /events       - server-sent INDEX_INVALIDATED notifications
//   - GET /status       - generator, cache and watcher status
//
// Indexing failures are served as HTTP 500 with a text/plain body listing
// the failed files; a partial index is never served.
package server
