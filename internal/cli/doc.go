// Package cli implements the confgen command line: argument parsing,
// scanner selection, output rendering and process exit codes.
package cli
