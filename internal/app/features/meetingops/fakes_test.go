package meetingops

import (
	"context"
	"errors"
	"sync"
	"time"

	teammemberstore "github.com/dalemusser/retrohub/internal/app/store/teammembers"
	"github.com/dalemusser/retrohub/internal/app/system/pubsub"
	"github.com/dalemusser/retrohub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// memDB is an in-memory stand-in for the Mongo stores. writes counts every
// successful mutation and survives rollback, so tests can prove a rejected
// mutation never wrote.
type memDB struct {
	mu          sync.Mutex
	meetings    map[string]models.Meeting
	reflections map[string]models.Reflection
	groups      map[string]models.ReflectionGroup
	members     map[string]models.TeamMember
	jobs        map[string]models.ScheduledJob
	writes      int

	readErr    error // returned by every GetByID when set
	promoteErr error // returned by TransferLead after the demote is applied
}

func newMemDB() *memDB {
	return &memDB{
		meetings:    map[string]models.Meeting{},
		reflections: map[string]models.Reflection{},
		groups:      map[string]models.ReflectionGroup{},
		members:     map[string]models.TeamMember{},
		jobs:        map[string]models.ScheduledJob{},
	}
}

type memSnapshot struct {
	meetings    map[string]models.Meeting
	reflections map[string]models.Reflection
	groups      map[string]models.ReflectionGroup
	members     map[string]models.TeamMember
	jobs        map[string]models.ScheduledJob
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	ms := make(map[string]models.Meeting, len(db.meetings))
	for k, v := range db.meetings {
		ms[k] = v.Clone()
	}
	return memSnapshot{
		meetings:    ms,
		reflections: copyMap(db.reflections),
		groups:      copyMap(db.groups),
		members:     copyMap(db.members),
		jobs:        copyMap(db.jobs),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.meetings, db.reflections, db.groups, db.members, db.jobs =
		s.meetings, s.reflections, s.groups, s.members, s.jobs
}

func (db *memDB) writeCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.writes
}

func (db *memDB) leadCount(teamID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, m := range db.members {
		if m.TeamID == teamID && m.IsLead && m.IsNotRemoved {
			n++
		}
	}
	return n
}

// rollbackTx runs transactions one at a time and restores the pre-call
// state when fn fails.
type rollbackTx struct {
	mu sync.Mutex
	db *memDB
}

func (t *rollbackTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memMeetings struct{ *memDB }

func (s memMeetings) GetByID(_ context.Context, id string) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return models.Meeting{}, s.readErr
	}
	m, ok := s.meetings[id]
	if !ok {
		return models.Meeting{}, mongo.ErrNoDocuments
	}
	return m.Clone(), nil
}

func (s memMeetings) UpdatePhases(_ context.Context, id string, phases []models.Phase, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.IsEnded() {
		return false, nil
	}
	m.Phases = models.Meeting{Phases: phases}.Clone().Phases
	m.UpdatedAt = at
	s.meetings[id] = m
	s.writes++
	return true, nil
}

func (s memMeetings) End(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.IsEnded() {
		return false, nil
	}
	m.EndedAt = &at
	m.UpdatedAt = at
	s.meetings[id] = m
	s.writes++
	return true, nil
}

func (s memMeetings) Touch(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok || m.IsEnded() {
		return false, nil
	}
	m.UpdatedAt = at
	s.meetings[id] = m
	s.writes++
	return true, nil
}

type memReflections struct{ *memDB }

func (s memReflections) Create(_ context.Context, r models.Reflection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reflections[r.ID] = r
	s.writes++
	return nil
}

func (s memReflections) GetByID(_ context.Context, id string) (models.Reflection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return models.Reflection{}, s.readErr
	}
	r, ok := s.reflections[id]
	if !ok {
		return models.Reflection{}, mongo.ErrNoDocuments
	}
	return r, nil
}

func (s memReflections) ListActiveByMeeting(_ context.Context, meetingID string) ([]models.Reflection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reflection
	for _, r := range s.reflections {
		if r.MeetingID == meetingID && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s memReflections) CountActiveByGroup(_ context.Context, groupID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.reflections {
		if r.ReflectionGroupID == groupID && r.IsActive {
			n++
		}
	}
	return n, nil
}

func (s memReflections) Deactivate(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reflections[id]
	if !ok || !r.IsActive {
		return false, nil
	}
	r.IsActive = false
	r.UpdatedAt = at
	s.reflections[id] = r
	s.writes++
	return true, nil
}

type memGroups struct{ *memDB }

func (s memGroups) Create(_ context.Context, g models.ReflectionGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	s.writes++
	return nil
}

func (s memGroups) Deactivate(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok || !g.IsActive {
		return false, nil
	}
	g.IsActive = false
	g.UpdatedAt = at
	s.groups[id] = g
	s.writes++
	return true, nil
}

type memMembers struct{ *memDB }

func (s memMembers) GetByID(_ context.Context, id string) (models.TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return models.TeamMember{}, s.readErr
	}
	m, ok := s.members[id]
	if !ok {
		return models.TeamMember{}, mongo.ErrNoDocuments
	}
	return m, nil
}

// TransferLead mirrors the Mongo store: demote, then promote, with the
// one-lead-per-team rule enforced like the partial unique index.
func (s memMembers) TransferLead(_ context.Context, fromID, toID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := 0
	if from, ok := s.members[fromID]; ok && from.IsLead && from.IsNotRemoved {
		from.IsLead = false
		from.UpdatedAt = at
		s.members[fromID] = from
		s.writes++
		matched++
	}
	if s.promoteErr != nil {
		return s.promoteErr
	}
	to, ok := s.members[toID]
	if ok && to.IsNotRemoved {
		for id, m := range s.members {
			if id != toID && m.TeamID == to.TeamID && m.IsLead && m.IsNotRemoved {
				return teammemberstore.ErrLeadConflict
			}
		}
		to.IsLead = true
		to.UpdatedAt = at
		s.members[toID] = to
		s.writes++
		matched++
	}
	if matched != 2 {
		return teammemberstore.ErrLeadChanged
	}
	return nil
}

type memJobs struct{ *memDB }

func (s memJobs) Create(_ context.Context, job models.ScheduledJob) (models.ScheduledJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	s.writes++
	return job, nil
}

func (s memJobs) DeleteByStage(_ context.Context, meetingID, stageID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, j := range s.jobs {
		if j.MeetingID == meetingID && j.StageID == stageID {
			delete(s.jobs, id)
			n++
		}
	}
	if n > 0 {
		s.writes++
	}
	return n, nil
}

func (s memJobs) DeleteByMeeting(_ context.Context, meetingID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, j := range s.jobs {
		if j.MeetingID == meetingID {
			delete(s.jobs, id)
			n++
		}
	}
	if n > 0 {
		s.writes++
	}
	return n, nil
}

// recordingBroker captures every publish.
type recordingBroker struct {
	mu   sync.Mutex
	envs []pubsub.Envelope
}

func (b *recordingBroker) Publish(_ context.Context, channel string, env pubsub.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	env.Channel = channel
	b.envs = append(b.envs, env)
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, []string, pubsub.Filter) (*pubsub.Subscription, error) {
	return nil, errors.New("recordingBroker does not support subscribe")
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) published() []pubsub.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]pubsub.Envelope(nil), b.envs...)
}
