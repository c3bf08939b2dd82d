// Package socket maintains a single persistent, bidirectional event channel to
// the notification server.
//
// A Client owns at most one live transport connection. Frames are JSON
// envelopes of the form {"event": "...", "data": ..., "cid": "..."}. Outbound
// events are fire-and-forget: Emit on a disconnected client is a silent no-op
// and nothing is queued for later. Inbound events are dispatched to
// subscribers in registration order on a single goroutine, one handler at a
// time, so subscribers never race each other.
//
// Connection signals are delivered as the reserved events "connect" and
// "disconnect" through the same Subscribe mechanism. Run redials with capped
// exponential backoff and jitter until its context ends or Close is called.
//
//	client := socket.New(socket.NewWebsocketDialer(url, token), socket.WithLogger(log))
//	unsubscribe := client.Subscribe("new-notification", func(m socket.Message) {
//	    var n notifications.Notification
//	    _ = m.Decode(&n)
//	})
//	defer unsubscribe()
//	go client.Run(ctx)
//	client.Emit("load-notifications", map[string]int64{"userId": 42})
package socket
