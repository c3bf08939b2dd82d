package surface

import (
	"strconv"
	"sync"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

// Feed is the store surface the bell panel reads and drives.
type Feed interface {
	Notifications() []notifications.Notification
	UnreadCount() int
	Connected() bool
	Get(id int64) (notifications.Notification, bool)
	MarkAsRead(id int64)
	MarkAsUnread(id int64)
	MarkAllAsRead() error
	DeleteNotification(id int64)
}

// BadgeLimit is the largest unread count the badge shows verbatim.
const BadgeLimit = 99

// BellPanel is the bell icon with its drop-down list.
type BellPanel struct {
	feed Feed

	mu     sync.RWMutex
	open   bool
	filter notifications.Filter
}

func NewBellPanel(feed Feed) *BellPanel {
	return &BellPanel{feed: feed, filter: notifications.Filter{ReadState: notifications.ReadAll}}
}

// Badge renders the unread count: empty for zero, "99+" above BadgeLimit.
func (b *BellPanel) Badge() string {
	n := b.feed.UnreadCount()
	switch {
	case n <= 0:
		return ""
	case n > BadgeLimit:
		return strconv.Itoa(BadgeLimit) + "+"
	default:
		return strconv.Itoa(n)
	}
}

// Connected drives the connection indicator dot.
func (b *BellPanel) Connected() bool { return b.feed.Connected() }

func (b *BellPanel) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open
}

func (b *BellPanel) SetOpen(open bool) {
	b.mu.Lock()
	b.open = open
	b.mu.Unlock()
}

// ToggleOpen flips the panel and returns the new state.
func (b *BellPanel) ToggleOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = !b.open
	return b.open
}

func (b *BellPanel) Filter() notifications.Filter {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter
}

func (b *BellPanel) SetFilter(f notifications.Filter) {
	if f.ReadState == "" {
		f.ReadState = notifications.ReadAll
	}
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
}

// Visible returns the feed with the current filter applied.
func (b *BellPanel) Visible() []notifications.Notification {
	return b.Filter().Apply(b.feed.Notifications())
}

// Toggle flips the read state of id. It reports false for an unknown id.
func (b *BellPanel) Toggle(id int64) bool {
	n, ok := b.feed.Get(id)
	if !ok {
		return false
	}
	if n.IsRead {
		b.feed.MarkAsUnread(id)
	} else {
		b.feed.MarkAsRead(id)
	}
	return true
}

func (b *BellPanel) MarkAll() error { return b.feed.MarkAllAsRead() }

func (b *BellPanel) Delete(id int64) { b.feed.DeleteNotification(id) }

// Categories lists the tender categories present in the feed, for the
// category picker.
func (b *BellPanel) Categories() []string {
	return notifications.Categories(b.feed.Notifications())
}
