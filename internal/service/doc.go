// Package service implements the table operations behind the tabula CLI.
//
// TableService coordinates shape definitions, typed repositories, table
// codecs and the SQLite snapshot store. Every operation loads data through
// a repository first, so nothing is converted or stored unless all rows
// validate against the named shape.
//
// # Operations
//
// - Validate loads a CSV file and reports how many records it holds
// - Convert re-encodes a validated CSV file as CSV, JSON or YAML
// - Snapshot stores a validated CSV file as a named SQLite table
// - Restore validates a stored table and exports it to CSV
// - Tables and Drop list and remove stored snapshots
//
// # Event System
//
// Completed operations are published on an EventBus so the CLI can report
// results without the service writing to stdout.
package service
