package fetch

import "strings"

// challengeMarkers are lowercase substrings found on anti-bot interstitials
// (Cloudflare challenge pages and similar). Plain references to Cloudflare
// hosting, such as cdnjs assets or /cdn-cgi/ email protection, are not markers.
var challengeMarkers = []string{
	"challenges.cloudflare.com",
	"/cdn-cgi/challenge-platform",
	"cf-chl-",
	"cf-ray",
	"cf-browser-verification",
	"just a moment",
	"attention required",
	"utm_source=challenge",
}

// LooksLikeChallenge reports whether html appears to be an anti-bot
// interstitial rather than real page content.
func LooksLikeChallenge(html string) bool {
	if html == "" {
		return false
	}
	h := strings.ToLower(html)
	for _, m := range challengeMarkers {
		if strings.Contains(h, m) {
			return true
		}
	}
	return false
}
