package middleware

import (
	"net/http"
)

// RequestSize limits the size of incoming request bodies.
//
// A declared Content-Length above maxBytes is refused with 413 Payload Too
// Large before the view runs. Otherwise the body is wrapped with
// http.MaxBytesReader: reads past the limit fail, and the event views answer
// 413 when multipart parsing hits it.
//
// Event forms may carry file uploads, so maxBytes comes from
// ui.max_upload_bytes rather than a fixed constant.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
