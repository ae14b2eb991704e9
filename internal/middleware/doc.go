// Package middleware provides HTTP middleware for the bookshelf server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labeled by route template
//   - gzip compression of JSON responses (catalogs and encoded covers)
package middleware
