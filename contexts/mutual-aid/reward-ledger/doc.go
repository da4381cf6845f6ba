// Package rewardledger settles validator payouts: the pure reward formula,
// the per-vote idempotent ledger, profile crediting, and the retrier that
// re-drives deferred credits.
package rewardledger
