package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenderbell/pkg/logger"
	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

type mockDeliverer struct {
	mock.Mock
}

func (m *mockDeliverer) Deliver(ctx context.Context, n notifications.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func newStore(t *testing.T, tr *fakeTransport, opts ...notifications.StoreOption) *notifications.Store {
	t.Helper()
	base := []notifications.StoreOption{
		notifications.WithStoreLogger(logger.Discard()),
		notifications.WithCorrelationIDs(sequentialIDs()),
	}
	s := notifications.NewStore(tr, notifications.UserScope(42), append(base, opts...)...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_LoadedNewMarkAllScenario(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	d := &mockDeliverer{}
	d.On("Deliver", mock.Anything, mock.MatchedBy(func(n notifications.Notification) bool { return n.ID == 4 })).
		Return(nil).Once()
	s := newStore(t, tr, notifications.WithDeliverer(d))

	assert.Empty(t, s.Notifications())

	tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{
		note(3, false), note(2, true), note(1, false),
	})
	assert.Equal(t, 2, s.UnreadCount())

	tr.push(t, notifications.EventNewNotification, note(4, false))
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(s.Notifications()))
	assert.Equal(t, 3, s.UnreadCount())
	d.AssertExpectations(t)

	require.NoError(t, s.MarkAllAsRead())
	for _, n := range s.Notifications() {
		assert.True(t, n.IsRead, "notification %d", n.ID)
	}
	assert.Zero(t, s.UnreadCount())

	last := tr.last(t)
	assert.Equal(t, notifications.EventMarkAllAsRead, last.Event)
	assert.JSONEq(t, `{"userId":42}`, last.Payload)
}

func TestStore_Requests(t *testing.T) {
	t.Parallel()

	t.Run("scoped requests", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)

		require.NoError(t, s.JoinRoom())
		require.NoError(t, s.LoadNotifications())
		require.NoError(t, s.LoadPendingNotifications())

		out := tr.emitted()
		require.Len(t, out, 3)
		assert.Equal(t, notifications.EventJoinRoom, out[0].Event)
		assert.JSONEq(t, `{"userType":"user","id":42}`, out[0].Payload)
		assert.Equal(t, notifications.EventLoadNotifications, out[1].Event)
		assert.JSONEq(t, `{"userId":42}`, out[1].Payload)
		assert.Equal(t, notifications.EventLoadPending, out[2].Event)
		assert.Empty(t, s.Notifications(), "requests do not mutate state")
	})

	t.Run("customer scope payload", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := notifications.NewStore(tr, notifications.CustomerScope(7), notifications.WithStoreLogger(logger.Discard()))
		defer s.Close()

		require.NoError(t, s.LoadNotifications())
		assert.JSONEq(t, `{"customerId":7}`, tr.last(t).Payload)
	})

	t.Run("no scope", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := notifications.NewStore(tr, notifications.Scope{}, notifications.WithStoreLogger(logger.Discard()))
		defer s.Close()

		assert.ErrorIs(t, s.LoadNotifications(), notifications.ErrNoScope)
		assert.ErrorIs(t, s.LoadPendingNotifications(), notifications.ErrNoScope)
		assert.ErrorIs(t, s.JoinRoom(), notifications.ErrNoScope)
		assert.ErrorIs(t, s.MarkAllAsRead(), notifications.ErrNoScope)
		assert.Empty(t, tr.emitted())
	})
}

func TestStore_MarkAsReadUnread(t *testing.T) {
	t.Parallel()

	t.Run("idempotent mark as read", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{note(1, false), note(2, false)})

		s.MarkAsRead(1)
		once := s.Notifications()
		s.MarkAsRead(1)

		assert.Equal(t, once, s.Notifications())
		assert.Equal(t, 1, s.UnreadCount())

		out := tr.emitted()
		require.Len(t, out, 2)
		assert.Equal(t, notifications.EventMarkAsRead, out[0].Event)
		assert.JSONEq(t, `{"notificationId":1}`, out[0].Payload)
		assert.Equal(t, "cid-1", out[0].CID)
	})

	t.Run("unread floor", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{note(1, true)})

		s.MarkAsUnread(1)
		assert.Equal(t, 1, s.UnreadCount())
		s.MarkAsRead(1)
		s.MarkAsRead(1)
		assert.Equal(t, 0, s.UnreadCount())
	})

	t.Run("unknown id still emits", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)

		s.MarkAsRead(99)
		assert.Zero(t, s.UnreadCount())
		assert.Equal(t, notifications.EventMarkAsRead, tr.last(t).Event)
	})

	t.Run("resync recomputes the unread count", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		list := []notifications.Notification{note(1, false), note(2, true), note(3, false)}
		tr.push(t, notifications.EventNotificationsLoaded, list)

		for _, id := range []int64{1, 2, 3, 2, 1, 1} {
			s.MarkAsUnread(id)
			s.MarkAsRead(id)
		}
		s.MarkAsUnread(3)

		tr.push(t, notifications.EventNotificationsLoaded, list)
		unread := 0
		for _, n := range s.Notifications() {
			if !n.IsRead {
				unread++
			}
		}
		assert.Equal(t, unread, s.UnreadCount())
		assert.Equal(t, 2, s.UnreadCount())
	})
}

func TestStore_DeleteNotification(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	s := newStore(t, tr)
	tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{
		note(3, false), note(2, true), note(1, false),
	})

	s.DeleteNotification(2)
	assert.Equal(t, []int64{3, 1}, ids(s.Notifications()))
	assert.Equal(t, 2, s.UnreadCount())

	s.DeleteNotification(3)
	assert.Equal(t, []int64{1}, ids(s.Notifications()))
	assert.Equal(t, 1, s.UnreadCount())

	before := s.Notifications()
	s.DeleteNotification(404)
	assert.Equal(t, before, s.Notifications())
	assert.Equal(t, 1, s.UnreadCount())

	last := tr.last(t)
	assert.Equal(t, notifications.EventDeleteNotification, last.Event)
	assert.JSONEq(t, `{"notificationId":404}`, last.Payload)
}

func TestStore_InboundReconciliation(t *testing.T) {
	t.Parallel()

	t.Run("updated replaces in place", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{note(3, false), note(2, false), note(1, false)})

		updated := note(2, true)
		updated.Message = "edited"
		tr.push(t, notifications.EventNotificationUpdated, updated)

		list := s.Notifications()
		assert.Equal(t, []int64{3, 2, 1}, ids(list))
		assert.Equal(t, "edited", list[1].Message)
		assert.Equal(t, 2, s.UnreadCount())

		tr.push(t, notifications.EventNotificationUpdated, note(77, false))
		assert.Len(t, s.Notifications(), 3)
	})

	t.Run("duplicate new notification collapses", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		d := &mockDeliverer{}
		d.On("Deliver", mock.Anything, mock.Anything).Return(nil).Once()
		s := newStore(t, tr, notifications.WithDeliverer(d))

		tr.push(t, notifications.EventNewNotification, note(5, false))
		again := note(5, false)
		again.Message = "refreshed"
		tr.push(t, notifications.EventNewNotification, again)

		list := s.Notifications()
		require.Len(t, list, 1)
		assert.Equal(t, "refreshed", list[0].Message)
		assert.Equal(t, 1, s.UnreadCount())
		d.AssertNumberOfCalls(t, "Deliver", 1)
	})

	t.Run("read new notification does not bump unread", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.push(t, notifications.EventNewNotification, note(5, true))
		assert.Zero(t, s.UnreadCount())
	})

	t.Run("foreign and malformed notifications are dropped", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)

		foreign := note(8, false)
		foreign.UserID = 7
		tr.push(t, notifications.EventNewNotification, foreign)
		tr.pushRaw(notifications.EventNewNotification, []byte(`{"id":"nope"`))
		tr.push(t, notifications.EventNewNotification, map[string]any{"message": "no id"})

		assert.Empty(t, s.Notifications())
		assert.Zero(t, s.UnreadCount())
	})

	t.Run("unknown type decodes to other", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.pushRaw(notifications.EventNewNotification, []byte(`{"id":1,"message":"x","type":"promo","userId":42}`))

		n, ok := s.Get(1)
		require.True(t, ok)
		assert.Equal(t, notifications.TypeOther, n.Type)
	})

	t.Run("pending and server deletes", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{note(2, false), note(1, false)})

		tr.push(t, notifications.EventPendingLoaded, []notifications.PendingNotification{
			{ID: 10, Message: "closing soon", Type: "tender", NotifyAt: baseTime.Add(time.Hour)},
		})
		require.Len(t, s.Pending(), 1)
		assert.Equal(t, "closing soon", s.Pending()[0].Message)

		tr.push(t, notifications.EventNotificationDeleted, map[string]int64{"notificationId": 2})
		assert.Equal(t, []int64{1}, ids(s.Notifications()))
		assert.Equal(t, 1, s.UnreadCount())
	})
}

func TestStore_SnapshotPolicy(t *testing.T) {
	t.Parallel()

	late := note(10, false)
	late.CreatedAt = baseTime.Add(24 * time.Hour)
	snapshot := []notifications.Notification{note(3, true), note(2, false)}

	t.Run("replace clobbers live arrivals", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr)

		require.NoError(t, s.LoadNotifications())
		tr.push(t, notifications.EventNewNotification, late)
		tr.push(t, notifications.EventNotificationsLoaded, snapshot)

		assert.Equal(t, []int64{3, 2}, ids(s.Notifications()))
		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("keep newer preserves live arrivals", func(t *testing.T) {
		t.Parallel()
		tr := newFakeTransport()
		s := newStore(t, tr, notifications.WithSnapshotPolicy(notifications.SnapshotKeepNewer))

		old := note(1, false)
		tr.push(t, notifications.EventNewNotification, old)
		require.NoError(t, s.LoadNotifications())
		tr.push(t, notifications.EventNewNotification, late)
		tr.push(t, notifications.EventNotificationsLoaded, snapshot)

		assert.Equal(t, []int64{10, 3, 2}, ids(s.Notifications()))
		assert.Equal(t, 2, s.UnreadCount())
	})
}

func TestStore_MutationRejected(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*fakeTransport, *notifications.Store) {
		tr := newFakeTransport()
		s := newStore(t, tr)
		tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{
			note(3, false), note(2, true), note(1, false),
		})
		return tr, s
	}

	t.Run("mark as read rolls back", func(t *testing.T) {
		t.Parallel()
		tr, s := setup(t)

		s.MarkAsRead(3)
		cid := tr.last(t).CID
		tr.push(t, notifications.EventMutationRejected, map[string]string{"cid": cid, "reason": "forbidden"})

		n, _ := s.Get(3)
		assert.False(t, n.IsRead)
		assert.Equal(t, 2, s.UnreadCount())

		tr.push(t, notifications.EventMutationRejected, map[string]string{"cid": cid})
		assert.Equal(t, 2, s.UnreadCount(), "a cid rolls back once")
	})

	t.Run("mark all rolls back only flipped entries", func(t *testing.T) {
		t.Parallel()
		tr, s := setup(t)

		require.NoError(t, s.MarkAllAsRead())
		tr.push(t, notifications.EventMutationRejected, map[string]string{"cid": tr.last(t).CID})

		read := map[int64]bool{}
		for _, n := range s.Notifications() {
			read[n.ID] = n.IsRead
		}
		assert.Equal(t, map[int64]bool{3: false, 2: true, 1: false}, read)
		assert.Equal(t, 2, s.UnreadCount())
	})

	t.Run("delete reinserts at its position", func(t *testing.T) {
		t.Parallel()
		tr, s := setup(t)

		s.DeleteNotification(2)
		tr.push(t, notifications.EventMutationRejected, map[string]string{"cid": tr.last(t).CID})

		assert.Equal(t, []int64{3, 2, 1}, ids(s.Notifications()))
		assert.Equal(t, 2, s.UnreadCount())
	})

	t.Run("resync clears the journal", func(t *testing.T) {
		t.Parallel()
		tr, s := setup(t)

		s.MarkAsUnread(2)
		cid := tr.last(t).CID
		tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{note(2, false)})
		tr.push(t, notifications.EventMutationRejected, map[string]string{"cid": cid})

		n, _ := s.Get(2)
		assert.False(t, n.IsRead)
		assert.Equal(t, 1, s.UnreadCount())
	})
}

func TestStore_SideEffectFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	d := &mockDeliverer{}
	d.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("speaker busy"))
	s := newStore(t, tr, notifications.WithDeliverer(d))

	tr.push(t, notifications.EventNewNotification, note(1, false))
	assert.Equal(t, 1, s.UnreadCount())
	d.AssertExpectations(t)
}

func TestStore_Changes(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	s := newStore(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := s.Changes(ctx)

	tr.push(t, notifications.EventNewNotification, note(1, false))
	s.MarkAsRead(1)
	s.DeleteNotification(1)

	want := []notifications.ChangeKind{notifications.ChangeAdded, notifications.ChangeUpdated, notifications.ChangeRemoved}
	for _, kind := range want {
		select {
		case msg := <-sub.Receive(ctx):
			assert.Equal(t, kind, msg.Data.Kind)
		case <-time.After(time.Second):
			t.Fatalf("missing %s change", kind)
		}
	}
}

func TestStore_SnapshotWarmStart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := notifications.NewMemorySnapshotStorage()
	tr := newFakeTransport()
	s := newStore(t, tr, notifications.WithSnapshotStorage(storage))

	require.NoError(t, s.Restore(ctx), "missing snapshot is not an error")
	tr.push(t, notifications.EventNotificationsLoaded, []notifications.Notification{note(2, false), note(1, true)})
	s.MarkAsRead(2)

	saved, err := storage.Load(ctx, notifications.UserScope(42))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(saved.Notifications))
	assert.True(t, saved.Notifications[0].IsRead)

	fresh := newStore(t, newFakeTransport(), notifications.WithSnapshotStorage(storage))
	require.NoError(t, fresh.Restore(ctx))
	assert.True(t, fresh.Stale())
	assert.Equal(t, []int64{2, 1}, ids(fresh.Notifications()))
	assert.Zero(t, fresh.UnreadCount())
}

func TestStore_Close(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	s := notifications.NewStore(tr, notifications.UserScope(42), notifications.WithStoreLogger(logger.Discard()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	tr.push(t, notifications.EventNewNotification, note(1, false))
	assert.Empty(t, s.Notifications())
}
