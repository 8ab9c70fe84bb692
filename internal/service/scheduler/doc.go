// Package scheduler resets the alert on a cron schedule and sweeps alerts
// that stayed open for too long.
package scheduler
