package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Jyok1m/ipseis-backend/internal/contextx"
	apphttpx "github.com/Jyok1m/ipseis-backend/internal/httpx"
)

// Authenticator is the chi counterpart of JWTAuthHuma for plain http routes such
// as the websocket upgrade. Browsers cannot set headers on a websocket
// handshake, so the token may also come from the "token" query parameter.
func Authenticator(jwtSecret string, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	a := &authenticator{secret: jwtSecret, sessions: sessions, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFrom(r.Header.Get("Authorization"), r.Header.Get("Cookie"))
			if raw == "" {
				raw = r.URL.Query().Get("token")
			}

			id, reason, ok := a.identify(r.Context(), raw)
			if !ok {
				apphttpx.UnauthorizedProblem(r.Context(), reason).Write(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextx.WithIdentity(r.Context(), id)))
		})
	}
}

func jsonEncode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
