// Package log provides secure logging built on the standard slog package.
//
// Crawl logs are full of URLs, and catalog sources sometimes need session
// cookies, API headers or an authenticated proxy. The SecureHandler masks:
//   - attributes named after secrets (cookie, authorization, token, headers)
//   - values that look like credentials (bearer tokens, JWTs, long keys)
//   - passwords in URL userinfo and secret query parameters, wherever a URL
//     appears in a message, string attribute or error
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Warn("page fetch failed",
//	    "url", "https://catalog.example.edu/search?token=abc", // token masked
//	    "error", err, // URLs inside the message are sanitized too
//	)
package log
