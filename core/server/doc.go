// Package server holds the HTTP server configuration.
//
// The actual Fiber application is assembled in cmd/start.go; this package only
// carries the settings (port, cron API key, external root URL) so that the
// config loader can bind them.
package server
