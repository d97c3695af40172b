package httputil

import (
	"fmt"
	"net/http"
	"strings"
)

// GetQueryParameter reads the key query parameter, falling back to def when
// it is missing. A value outside of allowed writes a 400 status code with the
// reasoning into the ResponseWriter and returns false.
func GetQueryParameter(w http.ResponseWriter, r *http.Request, key, def string, allowed ...string) (string, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}
	http.Error(
		w,
		fmt.Sprintf("expected %s query parameter to be one of %s", key, strings.Join(allowed, ", ")),
		http.StatusBadRequest,
	)
	return "", false
}
