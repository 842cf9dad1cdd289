package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ballotd/internal/domain"
	"ballotd/internal/usecase"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TallyStore interface {
	Get(ctx context.Context, electionID string) (*domain.Tally, error)
}

type VoterStore interface {
	Upsert(ctx context.Context, voter domain.Voter) error
}

type VoteStore interface {
	ListByVoter(ctx context.Context, voterID string) ([]domain.Vote, error)
}

type FeedbackStore interface {
	Insert(ctx context.Context, fb domain.Feedback) error
}

type AuditStore interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createElectionRequest struct {
	Name                 string           `json:"name"`
	Description          string           `json:"description,omitempty"`
	Candidates           []candidateInput `json:"candidates"`
	StartTime            time.Time        `json:"start_time"`
	EndTime              time.Time        `json:"end_time"`
	EligibleGovernorates []string         `json:"eligible_governorates,omitempty"`
	FeaturedImage        string           `json:"featured_image,omitempty"`
	CreatedBy            string           `json:"created_by,omitempty"`
}

type candidateInput struct {
	Name         string `json:"name"`
	Party        string `json:"party"`
	ProfileImage string `json:"profile_image,omitempty"`
}

type castVoteRequest struct {
	VoterID     string `json:"voter_id"`
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
}

type castVoteResponse struct {
	VoteID  string `json:"vote_id"`
	Receipt string `json:"receipt"`
}

type feedbackRequest struct {
	VoterID    string `json:"voter_id"`
	ElectionID string `json:"election_id"`
	Receipt    string `json:"receipt"`
	Rating     int    `json:"rating"`
	Comments   string `json:"comments,omitempty"`
}

type upsertVoterRequest struct {
	Governorate string `json:"governorate"`
	Age         int    `json:"age"`
}

type activityEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
}

type voterActivityResponse struct {
	VoterID  string          `json:"voter_id"`
	Activity []activityEntry `json:"activity"`
}

type reconcileResponse struct {
	Status      string                   `json:"status"`
	Tally       *domain.Tally            `json:"tally,omitempty"`
	Discrepancy *domain.TallyDiscrepancy `json:"discrepancy,omitempty"`
}

func (s *Server) handleListElections(c *gin.Context) {
	if s.elections == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	elections, err := s.elections.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, elections)
}

func (s *Server) handleGetElection(c *gin.Context) {
	if s.elections == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	election, err := s.elections.Get(c.Request.Context(), c.Param("election_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, election)
}

func (s *Server) handleAdminCreateElection(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.elections == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req createElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Name == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ELECTION", "name is required")
		return
	}
	if len(req.Candidates) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ELECTION", "at least one candidate is required")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ELECTION", "end_time must be after start_time")
		return
	}
	candidates := make([]domain.Candidate, 0, len(req.Candidates))
	for _, in := range req.Candidates {
		if in.Name == "" {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ELECTION", "candidate name is required")
			return
		}
		candidates = append(candidates, domain.Candidate{
			Name:         in.Name,
			Party:        in.Party,
			ProfileImage: in.ProfileImage,
		})
	}
	electionID, err := s.elections.Create(c.Request.Context(), usecase.CreateElectionRequest{
		Name:                 req.Name,
		Description:          req.Description,
		Candidates:           candidates,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		EligibleGovernorates: req.EligibleGovernorates,
		FeaturedImage:        req.FeaturedImage,
		CreatedBy:            req.CreatedBy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"election_id": electionID})
}

func (s *Server) handleAdminPublishElection(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.scheduler == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	electionID := c.Param("election_id")
	if err := s.scheduler.Publish(c.Request.Context(), electionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"election_id": electionID, "status": string(domain.ElectionPublished)})
}

func (s *Server) handleAdminClearElections(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.elections == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	if err := s.elections.Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleAdminReconcileTally(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.audit == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	result, err := s.audit.Reconcile(c.Request.Context(), c.Param("election_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := reconcileResponse{Status: "match", Tally: result.Tally}
	if result.Discrepancy != nil {
		out = reconcileResponse{Status: "discrepancy", Discrepancy: result.Discrepancy}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetTally(c *gin.Context) {
	if s.tallies == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	tally, err := s.tallies.Get(c.Request.Context(), c.Param("election_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

func (s *Server) handleGetAnalytics(c *gin.Context) {
	if s.analytics == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	refresh := c.Query("refresh") == "true"
	snap, err := s.analytics.GetAnalytics(c.Request.Context(), c.Param("election_id"), refresh)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleCastVote(c *gin.Context) {
	if s.castVote == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.VoterID == "" || req.ElectionID == "" || req.CandidateID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_VOTE", "voter_id, election_id, and candidate_id are required")
		return
	}
	if !s.enforceRateLimit(c, "voter:"+req.VoterID+":cast") {
		return
	}
	resp, err := s.castVote.Execute(c.Request.Context(), usecase.CastVoteRequest{
		VoterID:     req.VoterID,
		ElectionID:  req.ElectionID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, castVoteResponse{VoteID: resp.VoteID, Receipt: resp.Receipt})
}

func (s *Server) handleGetVote(c *gin.Context) {
	if s.ledger == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	vote, err := s.ledger.GetVote(c.Request.Context(), c.Param("vote_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if s.feedback == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Receipt == "" || req.VoterID == "" || req.ElectionID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_FEEDBACK", "voter_id, election_id, and receipt are required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_FEEDBACK", "rating must be between 1 and 5")
		return
	}
	fb := domain.Feedback{
		VoterID:    req.VoterID,
		ElectionID: req.ElectionID,
		Receipt:    req.Receipt,
		Rating:     req.Rating,
		Comments:   req.Comments,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.feedback.Insert(c.Request.Context(), fb); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeErrorCode(c, http.StatusConflict, "ALREADY_EXISTS", "feedback already submitted for this receipt")
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

func (s *Server) handleAdminUpsertVoter(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.voters == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req upsertVoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Age <= 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_VOTER", "age must be positive")
		return
	}
	voter := domain.Voter{
		VoterID:     c.Param("voter_id"),
		Governorate: req.Governorate,
		Age:         req.Age,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.voters.Upsert(c.Request.Context(), voter); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voter_id": voter.VoterID})
}

const defaultEventListLimit = 50

func (s *Server) handleAdminListEvents(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.auditEvents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	limit := defaultEventListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_FILTER", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	events, err := s.auditEvents.List(c.Request.Context(), domain.AuditFilter{
		EventType:  domain.AuditEventType(c.Query("event_type")),
		ElectionID: c.Query("election_id"),
		Limit:      limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// handleGetVoterActivity merges the voter's ballots with the audit
// entries mentioning them into one chronological feed. vote_cast audit
// rows are skipped; the mirrored votes already cover them.
func (s *Server) handleGetVoterActivity(c *gin.Context) {
	if s.votes == nil || s.auditEvents == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	voterID := c.Param("voter_id")
	votes, err := s.votes.ListByVoter(c.Request.Context(), voterID)
	if err != nil {
		writeError(c, err)
		return
	}
	events, err := s.auditEvents.List(c.Request.Context(), domain.AuditFilter{VoterID: voterID})
	if err != nil {
		writeError(c, err)
		return
	}

	activity := make([]activityEntry, 0, len(votes)+len(events))
	for _, vote := range votes {
		activity = append(activity, activityEntry{
			Timestamp: vote.CreatedAt,
			Action:    string(domain.EventVoteCast),
			Details: map[string]any{
				"election_id":  vote.ElectionID,
				"candidate_id": vote.CandidateID,
				"receipt":      vote.Receipt,
			},
		})
	}
	for _, event := range events {
		if event.EventType == domain.EventVoteCast {
			continue
		}
		activity = append(activity, activityEntry{
			Timestamp: event.CreatedAt,
			Action:    string(event.EventType),
			Details:   event.Details,
		})
	}
	sort.Slice(activity, func(i, j int) bool {
		return activity[i].Timestamp.Before(activity[j].Timestamp)
	})
	c.JSON(http.StatusOK, voterActivityResponse{VoterID: voterID, Activity: activity})
}

func (s *Server) handleListVoterVotes(c *gin.Context) {
	if s.votes == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	votes, err := s.votes.ListByVoter(c.Request.Context(), c.Param("voter_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrElectionNotLive):
		status, code = http.StatusConflict, "ELECTION_NOT_LIVE"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		status, code = http.StatusConflict, "INVALID_STATE_TRANSITION"
	case errors.Is(err, domain.ErrNotEligible):
		status, code = http.StatusForbidden, "NOT_ELIGIBLE"
	case errors.Is(err, domain.ErrNoDeviceConnected):
		status, code = http.StatusServiceUnavailable, "NO_DEVICE_CONNECTED"
	case errors.Is(err, domain.ErrSigningTimeout):
		status, code = http.StatusGatewayTimeout, "SIGNING_TIMEOUT"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		status, code = http.StatusBadGateway, "LEDGER_UNAVAILABLE"
	case errors.Is(err, domain.ErrTallyComputation):
		status, code = http.StatusBadGateway, "TALLY_COMPUTATION_FAILED"
	case errors.Is(err, domain.ErrCacheRecomputation):
		status, code = http.StatusBadGateway, "ANALYTICS_UNAVAILABLE"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
