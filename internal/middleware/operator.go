package middleware

import (
	"crypto/subtle"
	"net/http"
)

// OperatorHeader carries the operator key on draw administration requests.
const OperatorHeader = "X-Operator-Key"

// RequireOperator admits only requests presenting key. With an empty key
// every request is refused.
func RequireOperator(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(OperatorHeader)
			if key == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
