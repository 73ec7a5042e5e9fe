package middleware

import (
	"github.com/deppfellow/iban-manager/internal/server"
)

// Middlewares groups every middleware component so router setup receives
// one object built once.
type Middlewares struct {
	// Global holds CORS, request logging, recovery, secure headers and the
	// global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer attaches a request-scoped logger to each request.
	ContextEnhancer *ContextEnhancer

	// Tracing installs New Relic transactions and custom attributes.
	// It degrades to a no-op without a license key.
	Tracing *TracingMiddleware

	// RateLimit throttles the API per client IP, through Redis when it is
	// configured and in memory otherwise.
	RateLimit *RateLimitMiddleware
}

func NewMiddlewares(s *server.Server) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, s.LoggerService.GetApplication()),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
