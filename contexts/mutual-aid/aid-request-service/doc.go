// Package aidrequestservice owns the aid request lifecycle inside the
// mutual-aid context: creation, the closed status state machine with its
// audit history, requester-initiated cancellation, and the owner-facing
// request queries.
package aidrequestservice
