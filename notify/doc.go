// Package notify implements the change-notification hub: per-collection
// and per-document broadcast channels driven by writes, plus an optional
// filesystem watch that turns out-of-process changes to a collection
// directory into the same in-process notifications.
//
// Every [Hub] broadcast is non-blocking: a subscriber that can't keep up
// loses its oldest buffered event rather than stalling the writer that
// called [Hub.Publish].
package notify
