package meetingops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/dalemusser/retrohub/internal/app/system/timeouts"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.uber.org/zap"
)

// SocketHeader names the caller's subscription socket, used as the mutatorId.
const SocketHeader = "X-Socket-Id"

const maxBodyBytes = 64 << 10

// Handler exposes the mutations over HTTP.
type Handler struct {
	Svc *Service
	Log *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type removeReflectionInput struct {
	ReflectionID string `json:"reflectionId"`
}

type promoteInput struct {
	TeamMemberID string `json:"teamMemberId"`
}

type createReflectionInput struct {
	MeetingID string `json:"meetingId"`
	Content   string `json:"content"`
}

type completePhaseInput struct {
	MeetingID string           `json:"meetingId"`
	PhaseType models.PhaseType `json:"phaseType"`
}

type setStageTimerInput struct {
	MeetingID string    `json:"meetingId"`
	StageID   string    `json:"stageId"`
	RunAt     time.Time `json:"runAt"`
}

type endMeetingInput struct {
	MeetingID string `json:"meetingId"`
}

func (h *Handler) RemoveReflection() http.HandlerFunc {
	return serve(h, "remove-reflection", func(ctx context.Context, req Request, in removeReflectionInput) (RemoveReflectionPayload, error) {
		return h.Svc.RemoveReflection(ctx, req, in.ReflectionID)
	})
}

func (h *Handler) PromoteToTeamLead() http.HandlerFunc {
	return serve(h, "promote-to-team-lead", func(ctx context.Context, req Request, in promoteInput) (PromoteToTeamLeadPayload, error) {
		return h.Svc.PromoteToTeamLead(ctx, req, in.TeamMemberID)
	})
}

func (h *Handler) CreateReflection() http.HandlerFunc {
	return serve(h, "create-reflection", func(ctx context.Context, req Request, in createReflectionInput) (CreateReflectionPayload, error) {
		return h.Svc.CreateReflection(ctx, req, in.MeetingID, in.Content)
	})
}

func (h *Handler) CompletePhase() http.HandlerFunc {
	return serve(h, "complete-phase", func(ctx context.Context, req Request, in completePhaseInput) (CompletePhasePayload, error) {
		return h.Svc.CompletePhase(ctx, req, in.MeetingID, in.PhaseType)
	})
}

func (h *Handler) SetStageTimer() http.HandlerFunc {
	return serve(h, "set-stage-timer", func(ctx context.Context, req Request, in setStageTimerInput) (SetStageTimerPayload, error) {
		return h.Svc.SetStageTimer(ctx, req, in.MeetingID, in.StageID, in.RunAt)
	})
}

func (h *Handler) EndMeeting() http.HandlerFunc {
	return serve(h, "end-meeting", func(ctx context.Context, req Request, in endMeetingInput) (EndMeetingPayload, error) {
		return h.Svc.EndMeeting(ctx, req, in.MeetingID)
	})
}

// serve decodes the body, runs the mutation on a context the client cannot
// cancel, and writes the Result union.
//
// Domain errors answer 200 with the error arm; malformed bodies 400;
// anything else 500.
func serve[In, Out any](h *Handler, op string, run func(context.Context, Request, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, Result[Out]{Error: &ErrorPayload{
				Message: "malformed request body",
				Kind:    "BAD_REQUEST",
			}})
			return
		}

		tok, _ := auth.CurrentToken(r)
		req := h.Svc.NewRequest(tok, r.Header.Get(SocketHeader))

		ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Long(), h.Log, op)
		defer cancel()

		out, err := run(ctx, req, in)
		if err != nil {
			if de, ok := apperr.As(err); ok {
				h.Log.Info("mutation rejected",
					zap.String("op", op),
					zap.String("kind", string(de.Kind)),
					zap.String("user_id", de.UserID),
					zap.String("message", de.Message))
				writeJSON(w, http.StatusOK, Fail[Out](de))
				return
			}
			h.Log.Error("mutation failed",
				zap.String("op", op),
				zap.String("user_id", tok.UserID),
				zap.String("operation_id", req.Loader.Share()),
				zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Result[Out]{Error: &ErrorPayload{
				Message: "internal error",
				Kind:    "INTERNAL",
			}})
			return
		}
		writeJSON(w, http.StatusOK, Ok(out))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
