package api

import "github.com/okian/pokepack/pkg/logger"

// Server defaults.
const (
	DefaultCORSOrigin     = "http://localhost:5173"
	DefaultRateLimitRPS   = 20
	DefaultRateLimitBurst = 40
	DefaultMaxBodyBytes   = 1 << 20

	// AdminTokenHeader carries the admin secret.
	AdminTokenHeader = "X-Admin-Token"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCORSOrigin sets the single browser origin allowed to call the API.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithRateLimit sets the per-client token bucket. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateRPS = rps
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for recovered panics.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
