package timeout

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Timeout cancels the request context after the given number of seconds and
// answers 504 if the handler did not finish in time.
func Timeout(seconds int) func(next http.Handler) http.Handler {
	if seconds <= 0 {
		seconds = 5
	}
	return middleware.Timeout(time.Duration(seconds) * time.Second)
}
