// Package meetingops implements the meeting mutations.
//
// Every mutation runs the same four stages in order: authenticate, authorize,
// validate, then apply & publish. Validation reads state inside the write
// transaction, immediately before the first write, and a failed stage leaves
// no writes and publishes nothing.
package meetingops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/retrohub/internal/app/system/analytics"
	"github.com/dalemusser/retrohub/internal/app/system/apperr"
	"github.com/dalemusser/retrohub/internal/app/system/auth"
	"github.com/dalemusser/retrohub/internal/app/system/dataloader"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MeetingStore reads and updates meetings. Update methods report false when
// no open meeting matched.
type MeetingStore interface {
	GetByID(ctx context.Context, id string) (models.Meeting, error)
	UpdatePhases(ctx context.Context, id string, phases []models.Phase, at time.Time) (bool, error)
	End(ctx context.Context, id string, at time.Time) (bool, error)
	Touch(ctx context.Context, id string, at time.Time) (bool, error)
}

// ReflectionStore reads and soft-deletes reflections.
type ReflectionStore interface {
	Create(ctx context.Context, r models.Reflection) error
	GetByID(ctx context.Context, id string) (models.Reflection, error)
	ListActiveByMeeting(ctx context.Context, meetingID string) ([]models.Reflection, error)
	CountActiveByGroup(ctx context.Context, groupID string) (int64, error)
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
}

// ReflectionGroupStore creates and retires reflection groups.
type ReflectionGroupStore interface {
	Create(ctx context.Context, g models.ReflectionGroup) error
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
}

// TeamMemberStore reads members and flips the team lead.
type TeamMemberStore interface {
	GetByID(ctx context.Context, id string) (models.TeamMember, error)
	TransferLead(ctx context.Context, fromID, toID string, at time.Time) error
}

// JobStore schedules and cancels stage timers.
type JobStore interface {
	Create(ctx context.Context, job models.ScheduledJob) (models.ScheduledJob, error)
	DeleteByStage(ctx context.Context, meetingID, stageID string) (int64, error)
	DeleteByMeeting(ctx context.Context, meetingID string) (int64, error)
}

// TxRunner runs fn atomically when the backing store allows it.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service holds the dependencies shared by all mutations.
type Service struct {
	Meetings    MeetingStore
	Reflections ReflectionStore
	Groups      ReflectionGroupStore
	TeamMembers TeamMemberStore
	Jobs        JobStore
	Tx          TxRunner
	Broker      pubsub.Broker
	Analytics   *analytics.Tracker
	Log         *zap.Logger

	// Now defaults to time.Now().UTC.
	Now func() time.Time
}

// Request is the per-call context of one mutation: who is calling, from
// which socket, and the request-scoped loader.
type Request struct {
	Token    auth.Token
	SocketID string
	Loader   *dataloader.Loader
}

// NewRequest starts a request with a fresh loader.
func (s *Service) NewRequest(tok auth.Token, socketID string) Request {
	return Request{
		Token:    tok,
		SocketID: socketID,
		Loader:   dataloader.New(s.Meetings, s.Reflections),
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// loadTeamMeeting loads a meeting through the request loader and checks the
// caller belongs to its team.
func (s *Service) loadTeamMeeting(ctx context.Context, req Request, userID, meetingID string) (models.Meeting, error) {
	m, err := req.Loader.Meeting(ctx, meetingID)
	if err != nil {
		if isNotFound(err) {
			return models.Meeting{}, apperr.NotFound(userID, "Meeting not found")
		}
		return models.Meeting{}, fmt.Errorf("load meeting %s: %w", meetingID, err)
	}
	if !authzTeamMember(req, m.TeamID) {
		return models.Meeting{}, apperr.Forbidden(userID, "Team not found")
	}
	return m, nil
}

// reloadOpenMeeting re-reads the meeting inside the transaction and rejects
// it when it has ended.
func (s *Service) reloadOpenMeeting(ctx context.Context, req Request, userID, meetingID string) (models.Meeting, error) {
	req.Loader.ClearMeeting(meetingID)
	m, err := req.Loader.Meeting(ctx, meetingID)
	if err != nil {
		if isNotFound(err) {
			return models.Meeting{}, apperr.NotFound(userID, "Meeting not found")
		}
		return models.Meeting{}, fmt.Errorf("reload meeting %s: %w", meetingID, err)
	}
	if m.IsEnded() {
		return models.Meeting{}, apperr.InvalidState(userID, "Meeting already ended")
	}
	return m, nil
}

// publish stamps the request's mutator and operation IDs on the event.
// Publish failures are logged: the write has already committed.
func publish[T any](ctx context.Context, s *Service, req Request, kind pubsub.ChannelKind, key, typ string, data T) {
	err := pubsub.Publish(ctx, s.Broker, kind, key, typ, data, pubsub.Options{
		MutatorID:   req.SocketID,
		OperationID: req.Loader.Share(),
	})
	if err != nil {
		s.Log.Error("publish failed",
			zap.String("channel", pubsub.ChannelName(kind, key)),
			zap.String("type", typ),
			zap.Error(err))
	}
}
