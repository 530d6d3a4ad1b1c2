// Package membership holds the subscription tier catalogue and the capacity
// gate consulted before anyone is admitted to a team.
//
// Everything here is pure: no I/O, no locking. Callers that need the
// check and the roster write to be atomic must hold the team's admission
// lock around both (see services.AdmissionService).
package membership
