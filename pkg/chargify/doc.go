// Package chargify is a thin client for the Chargify v2 REST API.
//
// A Client holds the account credentials and one reusable transport. Request
// frames a single call: the method is upper-cased, the path gets the response
// format as an extension and is resolved against the fixed API root. Server
// error statuses are returned as ordinary responses; only network failures
// produce a Result without a Response.
//
// GET and DELETE requests forward a non-empty body when one is supplied. This
// is non-standard HTTP but some callers send DELETE-with-body, so it is kept.
//
// A Client records the outcome of its latest Request for LastResponse. That
// field is not synchronized: use one Client per concurrent caller.
package chargify
