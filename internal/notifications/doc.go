// Package notifications delivers optional ntfy push notifications for batch
// lifecycle events. Failures to notify never affect scheduler behaviour.
package notifications
