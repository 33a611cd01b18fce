// Package notifications announces finished pipeline runs over ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether alerts are enabled.
package notifications
