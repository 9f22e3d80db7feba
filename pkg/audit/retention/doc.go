// Package retention prunes audit entries past the compliance archive
// window, on demand or on a cron schedule.
package retention
