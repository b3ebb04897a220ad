package fetch

import "testing"

// TestLooksLikeChallenge tests interstitial detection.
func TestLooksLikeChallenge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want bool
	}{
		{name: "empty", html: "", want: false},
		{name: "ordinary catalog page", html: `<html><body><h1>Course Descriptions</h1></body></html>`, want: false},
		{name: "just a moment title", html: `<title>Just a moment...</title>`, want: true},
		{name: "cdn-cgi script", html: `<script src="/cdn-cgi/challenge-platform/h/b/orchestrate/jsch/v1"></script>`, want: true},
		{name: "cf-chl form", html: `<form id="challenge-form" action="/?__cf_chl_f_tk=abc" class="cf-chl-widget">`, want: true},
		{name: "attention required", html: `<TITLE>Attention Required! | Cloudflare</TITLE>`, want: true},
		{name: "turnstile script", html: `<script src="https://challenges.cloudflare.com/turnstile/v0/api.js"></script>`, want: true},
		{name: "cdnjs asset", html: `<script src="https://cdnjs.cloudflare.com/ajax/libs/jquery/3.7.1/jquery.min.js"></script><h1>Courses</h1>`, want: false},
		{name: "email protection link", html: `<a href="/cdn-cgi/l/email-protection#abc">Registrar</a>`, want: false},
		{name: "ray id header echo", html: `<div>CF-RAY: 7d1c2b3a4f</div>`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := LooksLikeChallenge(tt.html); got != tt.want {
				t.Errorf("LooksLikeChallenge() = %v, want %v", got, tt.want)
			}
		})
	}
}
