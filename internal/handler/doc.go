// Package handler implements the HTTP API.
//
// # Routes
//
//	GET  /              liveness banner
//	GET  /health        health check
//	GET  /mvps          list tracked MVPs
//	POST /mvps          add an MVP (409 when the id exists)
//	GET  /mvps/{id}     one MVP
//	PUT  /mvps/{id}     report status, kill time or notes
//	GET  /users         list users
//	GET  /users/{uid}   one user's preferences, {} when unknown
//	PUT  /users/{uid}   merge preferences
//	GET  /events        server-sent events
//
// # Errors
//
// Errors are JSON {error, details}. Missing resources answer 404, bad
// input 400, duplicate ids 409, store failures 500. Unknown routes answer
// {"error":"Not Found","path":...}.
//
// # Middleware
//
// Recover, CORS, request logging and trailing-slash normalisation wrap the
// router; see NewRouter.
package handler
