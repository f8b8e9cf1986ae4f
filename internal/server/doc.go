// Package server wires the script manager, source registry, metrics and
// REST handlers into one runnable HTTP server.
//
// Lifecycle:
//  1. Load configuration from environment
//  2. Create the script manager and scan the script directory
//  3. Build the source registry from the scanned catalog
//  4. Set up gin routing with CORS, rate limit, request id, logging and
//     prometheus middleware
//  5. Serve until shutdown, then close all engines
package server
