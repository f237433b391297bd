// Package middleware provides the HTTP middleware used by the infrasim API.
//
// All middleware follows the standard pattern func(http.Handler) http.Handler,
// so a chain reads outermost first:
//
//	handler := middleware.RequestID()(
//		middleware.Logging(logger)(
//			middleware.PanicRecovery(logger)(
//				middleware.Metrics(reg)(mux))))
//
// Metrics must sit directly around the ServeMux so that it observes the
// matched route pattern rather than the raw path.
package middleware
