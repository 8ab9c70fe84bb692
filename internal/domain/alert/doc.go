// Package alert contains the domain types of the help-request alert:
// the lifecycle Phase, the State snapshot, and the result values returned by
// notify and respond. Skips and "already ..." answers are results, not errors.
package alert
