// Package promotionvoting implements the promotion voting engine inside the
// workforce context.
//
// The module owns the promotion proposal lifecycle (initiate, vote, resolve),
// hierarchy-aware voter eligibility, exactly-once tallying through the
// persistence gateway's atomic vote primitive, and the deadline sweep that
// finalizes overdue proposals. Resolution side effects leave the module only
// through outbox-backed events.
package promotionvoting
