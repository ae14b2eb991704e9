// Package handlers provides the HTTP surface of the bookshelf server.
//
// It includes handlers for:
//   - Rebuilding the catalog of the configured library
//   - Reading the persisted catalog
//   - Fetching cover images as base64
//   - Health, version and Prometheus metrics endpoints
package handlers
