// Package broadcast provides typed, in-process one-to-many messaging.
//
// tenderbell uses it wherever one producer has to reach an unknown number of
// consumers without knowing about them: the toast bus between the
// notification store and the toast surface, and the change feeds that tell
// surfaces to re-render.
//
//	bus := broadcast.NewMemoryBroadcaster[notifications.Notification](16)
//	defer bus.Close()
//
//	sub := bus.Subscribe(ctx)
//	defer sub.Close()
//
//	_ = bus.Broadcast(ctx, broadcast.Message[notifications.Notification]{Data: n})
//
//	for msg := range sub.Receive(ctx) {
//	    show(msg.Data)
//	}
//
// Broadcast never blocks. When a subscriber's buffer is full the message is
// dropped for that subscriber; WithEvictSlow switches to removing the
// subscriber instead. Subscriptions end when their context is cancelled, when
// Close is called on them, or when the broadcaster is closed.
package broadcast
