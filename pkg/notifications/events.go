package notifications

import "github.com/dmitrymomot/tenderbell/pkg/socket"

// Outbound events.
const (
	EventJoinRoom           = "join-room"
	EventLoadNotifications  = "load-notifications"
	EventLoadPending        = "load-pending-notifications"
	EventMarkAsRead         = "mark-as-read"
	EventMarkAsUnread       = "mark-as-unread"
	EventMarkAllAsRead      = "mark-all-as-read"
	EventDeleteNotification = "delete-notification"
	EventUpdatePreferences  = "update-preferences"
)

// Inbound events.
const (
	EventNewNotification     = "new-notification"
	EventNotificationUpdated = "notification-updated"
	EventNotificationsLoaded = "notifications-loaded"
	EventPendingLoaded       = "pending-notifications-loaded"
	EventNotificationDeleted = "notification-deleted"
	EventMutationRejected    = "mutation-rejected"
)

// Transport is the part of the socket client the store and the preference
// manager rely on. *socket.Client implements it.
type Transport interface {
	IsConnected() bool
	Emit(event string, payload any)
	EmitCorrelated(event, cid string, payload any)
	Subscribe(event string, h socket.Handler) func()
}

type idPayload struct {
	NotificationID int64 `json:"notificationId"`
}

type rejection struct {
	CID    string `json:"cid"`
	Event  string `json:"event,omitempty"`
	Reason string `json:"reason,omitempty"`
}
