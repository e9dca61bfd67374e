// Package cli implements the interactive authkeeper command line client.
//
// The REPL accepts register, login, profile, logout, status, help and exit.
// The session token returned by login is kept in a local SQLite store and
// attached as a bearer token to profile and logout. A 401 from the server
// drops the stored token.
package cli
