// Package handler is the HTTP layer between the router and the services.
//
// Endpoints are typed functions wrapped by Handle or HandleNoContent, which
// bind and validate the payload, call the service and write the response
// envelope. Errors are returned to the global error handler.
package handler
