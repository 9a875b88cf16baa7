// Package daemon hosts the long-running spectra process: it enforces
// single-instance execution with a lock file, watches the incoming directory
// for dropped spectra, runs the workflow manager, and serves the HTTP status
// API. The IPC server in the ipc package drives it on behalf of the CLI.
package daemon
