// Package service implements the guild's business logic on top of a
// repository.DocumentStore.
//
// # Services
//
// MvpService lists and edits tracked MVPs and imports the spawn catalog.
//
// UserService reads users and merges preference updates.
//
// # Events
//
// Every change is published on the EventBus; the HTTP layer forwards the
// events to SSE clients.
package service
