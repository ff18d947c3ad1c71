// Package ledger defines the append-only performance ledger: the entry
// record written exactly once per contract, the storage contract both
// backends satisfy, and the canonical serialization used to prove the
// backends equivalent.
//
// # Critical Patterns
//
// Exactly-once emission
//   - A contract ID produces one Entry, ever. The engine's dedup gate is
//     the first line of defense; each backend enforces uniqueness on
//     (campaign, contract) as the second.
//
// Append-only
//   - Entries are never rewritten by the engine. The single sanctioned
//     later mutation is the notification status flip, performed through
//     MarkNotified on behalf of the external notifier.
//
// Reconstructible state
//   - Per-agent running totals are never stored separately; they are
//     rebuilt from the entries themselves (StateFromEntries), so the two
//     backends cannot drift apart on derived state.
//
// Canonical form
//   - CanonicalLines serializes entries field-for-field with fixed column
//     order, fixed decimal scale, and NFC-normalized text, excluding
//     storage-internal fields. Two stores are equivalent iff their
//     canonical lines are byte-identical.
package ledger
