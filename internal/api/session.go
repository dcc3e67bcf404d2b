package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sells-group/geotarget/internal/region"
	"github.com/sells-group/geotarget/internal/session"
)

// SessionHeader carries the session id. Requests without a valid one get a
// fresh id, echoed back on the response.
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = session.NewID()
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// sessionWhitelist loads the caller's whitelist.
func (s *Server) sessionWhitelist(r *http.Request) (region.Whitelist, error) {
	return s.deps.Sessions.Get(r.Context(), sessionID(r.Context()))
}
