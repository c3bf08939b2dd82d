// Package logger builds *slog.Logger instances for tenderbell components and
// keeps attribute naming consistent across them.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "tenderbell"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.LogAttrs(ctx, slog.LevelInfo, "notification received",
//	    logger.NotificationID(n.ID),
//	    logger.Event("new-notification"),
//	)
//
// Attributes named token, authorization or password are masked before they
// reach the output. Helpers such as Error and Scope return an empty
// slog.Attr for nil values, so call sites do not need nil checks.
package logger
