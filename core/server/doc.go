// Package server holds the HTTP server configuration.
//
// The main application entry point handles the server startup; this package
// only defines the configuration structure (listen port and the API key
// protecting the mutation endpoints). It is embedded by core/config.
package server
