package api

import (
	"context"
	"net/http"

	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

const SessionCookie = "deepguard_session"

type ctxKey struct{}

// sessionMiddleware attaches the visitor's controller to the request,
// issuing a new session cookie when none matches.
func (app *App) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			id = cookie.Value
		}

		c, created, err := app.Sessions.GetOrCreate(id)
		if err != nil {
			logger.Error("session create failed", "error", err)
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    c.ID(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func controllerFrom(r *http.Request) *workflow.Controller {
	c, _ := r.Context().Value(ctxKey{}).(*workflow.Controller)
	return c
}
