// Package logging provides file-based logging with rotation for partsearch.
// The serve command always writes its logs both to the file at
// DefaultLogPath and to stderr; there is no flag that switches file
// logging on or off.
package logging
