package web

import (
	_ "embed"
	"net/http"
)

//go:embed robots.txt
var robotsTxt []byte

//go:embed style.css
var styleCSS []byte

// RobotsTxtHandler serves a robots.txt that keeps crawlers out of the console.
func RobotsTxtHandler() http.Handler {
	return staticHandler(robotsTxt, "text/plain; charset=utf-8", "public, max-age=86400")
}

// StyleHandler serves the console stylesheet.
func StyleHandler() http.Handler {
	return staticHandler(styleCSS, "text/css; charset=utf-8", "public, max-age=3600, must-revalidate")
}

func staticHandler(body []byte, contentType, cacheControl string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", cacheControl)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body) // Error is ignored as WriteHeader already sent status
		}
	})
}
