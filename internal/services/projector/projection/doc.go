// Package projection propagates domain events into the projector read models.
//
// Every handler follows the same shape: locate each projection that may embed
// the changed fact, guard on identity, rebuild a copy with the patch applied,
// and persist it. A handler is planned as an ordered list of steps, one per
// projection kind. Steps run independently: a missing projection or a guard
// miss skips that step only, and a store failure in one step never prevents
// the next. Failed steps can be parked in the outbox and re-run alone through
// Applier.ApplyKind.
package projection
