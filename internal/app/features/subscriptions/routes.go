package subscriptions

import (
	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the subscription endpoints. Anonymous callers get 401 before
// any upgrade.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/team", h.Team())
	r.Get("/team-member", h.TeamMember())
	r.Get("/notification", h.Notification())
	return r
}
