// Package validationengine implements peer validation of mutual-aid requests.
//
// The module owns the validator eligibility gate, vote ingestion with
// first-vote-wins dedup, quorum evaluation over the persisted vote set, the
// at-most-once request resolution, and the downstream funding/notification
// dispatch driven both inline and through outbox-backed workers. Business
// rules live in domain/application layers; infrastructure sits behind ports
// and adapters.
package validationengine
