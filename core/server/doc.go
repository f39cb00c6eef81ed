// Package server holds the HTTP server configuration and constants.
//
// The start command owns the server lifecycle; this package only defines the
// settings (port, API key, marketplace channel, default audit actor) and the set
// of supported channels.
package server
