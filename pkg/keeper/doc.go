// Package keeper is the front desk of the sanctuary. It drives the intake
// workflow on a sanctuary.Registry by primate name and instruments every step.
//
// Each operation opens a span, logs through a component logger, records
// metrics, publishes a domain event and refreshes the occupancy gauges.
// Admission policies run before intake and before a move to an enclosure; in
// enforcing mode a denial surfaces as a validation error with code
// POLICY_DENIED.
//
// Unknown names produce a not_found error carrying the closest housed name:
//
//	_, err := k.Medicate(ctx, "Bubles")
//	// [not_found] no primate named "Bubles", did you mean "Bubbles"? (primate=Bubles)
package keeper
