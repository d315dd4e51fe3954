package meetingops

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the mutation endpoints. Token loading happens upstream;
// an anonymous caller gets an UNAUTHENTICATED result, not a 401.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/remove-reflection", h.RemoveReflection())
	r.Post("/promote-to-team-lead", h.PromoteToTeamLead())
	r.Post("/create-reflection", h.CreateReflection())
	r.Post("/complete-phase", h.CompletePhase())
	r.Post("/set-stage-timer", h.SetStageTimer())
	r.Post("/end-meeting", h.EndMeeting())
	return r
}
