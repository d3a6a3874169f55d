// Package cmd defines and implements the CLI commands for the doulist-movies
// executable.
package cmd
