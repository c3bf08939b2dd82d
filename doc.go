// Package tenderbell wires the notification subsystem of the tender
// marketplace into a single session per signed-in identity.
//
// A Session owns one event connection, one notification store, one
// preference manager and one toast bus. Every surface (the bell panel, the
// toast stack, preference forms, the terminal UI and the loopback API) reads
// and drives those same instances, so a notification marked read in one
// place is read everywhere.
//
//	s, err := tenderbell.New(socket.NewWebsocketDialer(url, token), notifications.UserScope(42),
//		tenderbell.WithLogger(log),
//		tenderbell.WithAPI(api.New(apiURL, token)),
//	)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	go s.Run(ctx)
//	fmt.Println(s.Bell().Badge())
package tenderbell
