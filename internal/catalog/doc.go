// Package catalog persists conversion outcomes in SQLite so the scanner can
// tell which files still need conversion across runs. It records only terminal
// history; queued or running work never touches the database.
package catalog
