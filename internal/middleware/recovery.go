package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/Tiers-Limited/Cadence-Quote-sub008/pkg/utils"
)

// PanicRecovery converts handler panics into a 500 response instead of
// tearing down the connection.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[Panic] %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				utils.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
