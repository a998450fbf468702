// Package main provides the entry point for the bugsnap CLI.
//
// bugsnap runs the development backend for the bug-reporter pipeline
// and small helper commands around it.
//
// Usage:
//
//	bugsnap serve
//	bugsnap reports
//	bugsnap init
//
// See --help for all available options.
package main

// main is the entry point for bugsnap.
func main() {
	Execute()
}
