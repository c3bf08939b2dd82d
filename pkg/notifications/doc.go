// Package notifications holds the client-side view of a tender marketplace
// notification feed.
//
// A Store is the single source of truth for the session's notifications,
// scheduled (pending) notifications and unread count. It is reconciled from
// two directions: optimistic local actions (MarkAsRead, DeleteNotification,
// ...) that update state first and then emit the matching event, and
// server-pushed events (new-notification, notifications-loaded, ...) that the
// socket client dispatches to it. Every mutation is applied under one lock in
// the order its triggering call runs.
//
// Optimistic mutations carry a correlation id. If the server answers with
// mutation-rejected naming that id, the store applies the recorded inverse.
// Without a rejection the behavior is plain fire-and-forget.
//
// A PreferenceManager holds the identity's notification preferences. Updates
// are merged over the current value, applied locally and sent to the server
// as the full merged object.
//
// Side effects of a new notification (sound, toast) are Deliverers:
//
//	bus := broadcast.NewMemoryBroadcaster[notifications.Notification](16)
//	prefs := notifications.NewPreferenceManager(client, scope)
//	store := notifications.NewStore(client, scope,
//	    notifications.WithDeliverer(notifications.NewMultiDeliverer(
//	        notifications.NewSoundDeliverer(player, prefs),
//	        notifications.NewToastDeliverer(bus),
//	    )),
//	)
//
// Filter derives the visible list from the store synchronously and without
// network access.
package notifications
