// Package server exposes the importer over HTTP for the bundled web UI.
// Every API response uses one envelope shape so the frontend renders
// success and failure the same way: a status, the state the operation
// reached, a human message, structured details, a suggested next action,
// and the step log accumulated along the way.
package server
