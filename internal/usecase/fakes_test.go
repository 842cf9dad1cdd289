package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ballotd/internal/domain"
)

// In-memory fakes for the usecase interfaces. Shared across the
// package's tests.

type fakeLedger struct {
	mu            sync.Mutex
	elections     map[string]*domain.Election
	counts        map[string]map[string]int // electionID -> candidate -> votes
	statusUpdates []string                  // "electionID:status" in call order
	getCalls      int

	listErr   error
	tallyErr  error
	castErr   error
	updateErr map[string]error // per-election failures
}

func newFakeLedger(elections ...*domain.Election) *fakeLedger {
	l := &fakeLedger{
		elections: map[string]*domain.Election{},
		counts:    map[string]map[string]int{},
		updateErr: map[string]error{},
	}
	for _, e := range elections {
		l.elections[e.ElectionID] = e
	}
	return l
}

func (l *fakeLedger) GetElection(ctx context.Context, electionID string) (*domain.Election, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.getCalls++
	e, ok := l.elections[electionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (l *fakeLedger) ListElections(ctx context.Context) ([]domain.Election, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	out := make([]domain.Election, 0, len(l.elections))
	for _, e := range l.elections {
		out = append(out, *e)
	}
	return out, nil
}

func (l *fakeLedger) CreateElection(ctx context.Context, election domain.Election) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := election
	l.elections[election.ElectionID] = &cp
	return nil
}

func (l *fakeLedger) UpdateElectionStatus(ctx context.Context, electionID string, status domain.ElectionStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.updateErr[electionID]; err != nil {
		return err
	}
	e, ok := l.elections[electionID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	l.statusUpdates = append(l.statusUpdates, electionID+":"+string(status))
	return nil
}

func (l *fakeLedger) ComputeTally(ctx context.Context, tallyID, electionID string) (*domain.Tally, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tallyErr != nil {
		return nil, l.tallyErr
	}
	counts := map[string]int{}
	for candidate, n := range l.counts[electionID] {
		counts[candidate] = n
	}
	return &domain.Tally{TallyID: tallyID, ElectionID: electionID, Tallies: counts}, nil
}

func (l *fakeLedger) CastVote(ctx context.Context, voteID, electionID, candidateID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.castErr != nil {
		return "", l.castErr
	}
	if l.counts[electionID] == nil {
		l.counts[electionID] = map[string]int{}
	}
	l.counts[electionID][candidateID]++
	return "receipt-" + voteID, nil
}

func (l *fakeLedger) GetVote(ctx context.Context, voteID string) (*domain.Vote, error) {
	return nil, domain.ErrNotFound
}

func (l *fakeLedger) ClearElections(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.elections = map[string]*domain.Election{}
	l.counts = map[string]map[string]int{}
	return nil
}

type memVoteStore struct {
	mu        sync.Mutex
	votes     []domain.Vote
	insertErr error
}

func (s *memVoteStore) Insert(ctx context.Context, vote domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.votes = append(s.votes, vote)
	return nil
}

func (s *memVoteStore) GetByID(ctx context.Context, voteID string) (*domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.VoteID == voteID {
			cp := v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memVoteStore) ListByElection(ctx context.Context, electionID string) ([]domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Vote
	for _, v := range s.votes {
		if v.ElectionID == electionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *memVoteStore) ListByVoter(ctx context.Context, voterID string) ([]domain.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Vote
	for _, v := range s.votes {
		if v.VoterID == voterID {
			out = append(out, v)
		}
	}
	return out, nil
}

type memTallyStore struct {
	mu         sync.Mutex
	tallies    map[string]domain.Tally
	increments []string // "electionID:candidateID"
}

func newMemTallyStore() *memTallyStore {
	return &memTallyStore{tallies: map[string]domain.Tally{}}
}

func (s *memTallyStore) Get(ctx context.Context, electionID string) (*domain.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tallies[electionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (s *memTallyStore) Upsert(ctx context.Context, tally domain.Tally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[tally.ElectionID] = tally
	return nil
}

func (s *memTallyStore) Increment(ctx context.Context, electionID, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tallies[electionID]
	if !ok {
		t = domain.Tally{ElectionID: electionID, Tallies: map[string]int{}}
	}
	t.Tallies[candidateID]++
	t.TotalVotes++
	s.tallies[electionID] = t
	s.increments = append(s.increments, electionID+":"+candidateID)
	return nil
}

type memVoterStore struct {
	mu     sync.Mutex
	voters map[string]domain.Voter
}

func newMemVoterStore(voters ...domain.Voter) *memVoterStore {
	s := &memVoterStore{voters: map[string]domain.Voter{}}
	for _, v := range voters {
		s.voters[v.VoterID] = v
	}
	return s
}

func (s *memVoterStore) GetByID(ctx context.Context, voterID string) (*domain.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voters[voterID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := v
	return &cp, nil
}

func (s *memVoterStore) Upsert(ctx context.Context, voter domain.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[voter.VoterID] = voter
	return nil
}

type memFeedbackStore struct {
	mu        sync.Mutex
	byReceipt map[string]domain.Feedback
}

func newMemFeedbackStore(fbs ...domain.Feedback) *memFeedbackStore {
	s := &memFeedbackStore{byReceipt: map[string]domain.Feedback{}}
	for _, fb := range fbs {
		s.byReceipt[fb.Receipt] = fb
	}
	return s
}

func (s *memFeedbackStore) Insert(ctx context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byReceipt[fb.Receipt]; exists {
		return fmt.Errorf("duplicate receipt %s", fb.Receipt)
	}
	s.byReceipt[fb.Receipt] = fb
	return nil
}

func (s *memFeedbackStore) GetByReceipt(ctx context.Context, receipt string) (*domain.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fb, ok := s.byReceipt[receipt]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := fb
	return &cp, nil
}

type memAnalyticsStore struct {
	mu      sync.Mutex
	upserts []domain.AnalyticsSnapshot
}

func (s *memAnalyticsStore) Upsert(ctx context.Context, snap domain.AnalyticsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, snap)
	return nil
}

type memMetaStore struct {
	mu    sync.Mutex
	metas map[string]domain.ElectionMeta
}

func newMemMetaStore() *memMetaStore {
	return &memMetaStore{metas: map[string]domain.ElectionMeta{}}
}

func (s *memMetaStore) Upsert(ctx context.Context, meta domain.ElectionMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas[meta.ElectionID] = meta
	return nil
}

func (s *memMetaStore) GetByID(ctx context.Context, electionID string) (*domain.ElectionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metas[electionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := m
	return &cp, nil
}

func (s *memMetaStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metas = map[string]domain.ElectionMeta{}
	return nil
}

type memAuditStore struct {
	mu        sync.Mutex
	events    []domain.AuditEvent
	insertErr error
}

func (s *memAuditStore) Insert(ctx context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memAuditStore) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEvent
	for i := len(s.events) - 1; i >= 0; i-- { // newest first
		e := s.events[i]
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.ElectionID != "" && detailValue(e, "election_id") != filter.ElectionID {
			continue
		}
		if filter.VoterID != "" && detailValue(e, "voter_id") != filter.VoterID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func detailValue(e domain.AuditEvent, key string) string {
	if s, ok := e.Details[key].(string); ok {
		return s
	}
	return ""
}

type fakeEventStream struct {
	mu       sync.Mutex
	sessions []chan domain.LedgerEvent
	openErr  error
}

func (s *fakeEventStream) Events(ctx context.Context) (<-chan domain.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	ch := make(chan domain.LedgerEvent, 16)
	s.sessions = append(s.sessions, ch)
	return ch, nil
}

type fakeDevices struct {
	mu        sync.Mutex
	connected map[string]bool
	sent      []domain.SigningRequest
	sendErr   error
	onSend    func(req domain.SigningRequest)
}

func (d *fakeDevices) IsConnected(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected[userID]
}

func (d *fakeDevices) SendToUser(ctx context.Context, userID string, req domain.SigningRequest) error {
	d.mu.Lock()
	if d.sendErr != nil {
		d.mu.Unlock()
		return d.sendErr
	}
	d.sent = append(d.sent, req)
	onSend := d.onSend
	d.mu.Unlock()
	if onSend != nil {
		go onSend(req)
	}
	return nil
}

type allowAllPolicy struct{}

func (allowAllPolicy) Evaluate(ctx context.Context, input domain.EligibilityInput) (domain.PolicyResult, error) {
	return domain.PolicyResult{Allow: true}, nil
}

type denyPolicy struct{ reason string }

func (p denyPolicy) Evaluate(ctx context.Context, input domain.EligibilityInput) (domain.PolicyResult, error) {
	return domain.PolicyResult{Allow: false, Deny: []domain.PolicyDeny{{Code: "denied", Message: p.reason}}}, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
