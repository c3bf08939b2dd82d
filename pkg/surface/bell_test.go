package surface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
	"github.com/dmitrymomot/tenderbell/pkg/surface"
)

func TestBellPanel_Badge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		unread int
		want   string
	}{
		{0, ""},
		{1, "1"},
		{99, "99"},
		{100, "99+"},
		{250, "99+"},
	}
	for _, tt := range tests {
		lb, store := newSession(t)
		list := make([]notifications.Notification, 0, tt.unread)
		for i := range tt.unread {
			list = append(list, entry(int64(i+1), false, notifications.TypeSystem, "", "x"))
		}
		lb.push(t, notifications.EventNotificationsLoaded, list)

		bell := surface.NewBellPanel(store)
		assert.Equal(t, tt.want, bell.Badge(), "unread=%d", tt.unread)
		assert.Equal(t, tt.unread, store.UnreadCount())
	}
}

func TestBellPanel_Gestures(t *testing.T) {
	t.Parallel()

	lb, store := newSession(t)
	lb.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{
		entry(3, false, notifications.TypeTender, "Construction", "Bridge tender opened"),
		entry(2, true, notifications.TypePayment, "Medical", "Payment received"),
		entry(1, false, notifications.TypeSystem, "", "Welcome"),
	})
	bell := surface.NewBellPanel(store)
	assert.True(t, bell.Connected())

	assert.False(t, bell.IsOpen())
	assert.True(t, bell.ToggleOpen())
	bell.SetOpen(false)
	assert.False(t, bell.IsOpen())

	require.True(t, bell.Toggle(3))
	assert.Equal(t, "1", bell.Badge())
	require.True(t, bell.Toggle(2))
	assert.Equal(t, "2", bell.Badge())
	assert.False(t, bell.Toggle(404))

	require.True(t, bell.Toggle(1))
	assert.Equal(t, "1", bell.Badge())

	bell.Delete(2)
	assert.Equal(t, []int64{3, 1}, idsOf(bell.Visible()))
	assert.Equal(t, "", bell.Badge())

	require.NoError(t, bell.MarkAll())
	assert.Equal(t, []string{
		notifications.EventMarkAsRead,
		notifications.EventMarkAsUnread,
		notifications.EventMarkAsRead,
		notifications.EventDeleteNotification,
		notifications.EventMarkAllAsRead,
	}, lb.emitted())
}

func TestBellPanel_Filter(t *testing.T) {
	t.Parallel()

	lb, store := newSession(t)
	lb.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{
		entry(4, false, notifications.TypePayment, "IT", "Invoice for tender docs"),
		entry(3, false, notifications.TypeTender, "Construction", "Bridge tender opened"),
		entry(2, true, notifications.TypePayment, "Medical", "Payment received"),
		entry(1, false, notifications.TypeSystem, "", "Welcome"),
	})
	bell := surface.NewBellPanel(store)

	assert.Equal(t, notifications.ReadAll, bell.Filter().ReadState)
	assert.Equal(t, []string{"IT", "Construction", "Medical"}, bell.Categories())

	bell.SetFilter(notifications.Filter{Type: notifications.TypePayment, Search: "TENDER"})
	assert.Equal(t, []int64{4, 2}, idsOf(bell.Visible()))

	bell.SetFilter(notifications.Filter{ReadState: notifications.UnreadOnly, Category: "construction"})
	assert.Equal(t, []int64{3}, idsOf(bell.Visible()))

	bell.SetFilter(notifications.Filter{})
	assert.Len(t, bell.Visible(), 4)
	assert.Equal(t, notifications.ReadAll, bell.Filter().ReadState)
}
