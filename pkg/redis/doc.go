// Package redis connects the daemon to the optional Redis instance that keeps
// notification snapshots between restarts.
//
// Connect parses the URL from Config, pings with exponential backoff and
// returns a ready client or ErrRedisNotReady. Healthcheck wraps the client
// in a probe for the local status endpoint.
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	storage := notifications.NewRedisSnapshotStorage(client)
package redis
