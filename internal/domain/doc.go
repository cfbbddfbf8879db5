// Package domain defines the guild entities served by the API.
//
// # MVPs
//
// Mvp is a tracked boss monster. The static spawn data (mob id, map, spawn
// delay and variance in minutes) comes from the catalog; the live data
// (status, last kill, computed respawn time, notes) is edited by guild
// members as kills are reported.
//
// # Users
//
// User holds profile preferences keyed by the identity provider's uid. Only
// preferences live here; authentication is handled elsewhere.
//
// Both entities convert to and from tree.Fields so they can be stored in any
// document store the repository package supports.
package domain
