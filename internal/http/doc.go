// Package http provides the REST surface over the script source runtime.
//
// Endpoints:
//   - Health: / and /health
//   - Catalog: /sources, /sources/scan, /sources/import, /sources/:id
//   - Per source: /sources/:id/search, /sources/:id/home,
//     /sources/:id/tracks/:trackId/url, /sources/:id/tracks/:trackId/lyrics
//   - Aggregate: /search
//   - Metrics: /metrics
package http
