// Package requestid tags local API requests with a correlation id.
//
// Middleware reuses a well-formed X-Request-ID supplied by the caller or
// mints a UUID, stores it in the request context and echoes it back in the
// response header. Register LoggerExtractor with the logger so every record
// written while serving the request carries a request_id attribute:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
