// Package errs defines the typed errors returned across layers.
//
// Services return *HTTPError values carrying the status code, a stable
// machine-readable code and, for validation failures, per-field errors.
// The global error handler turns them into the JSON envelope so clients
// receive consistent error messages.
package errs
