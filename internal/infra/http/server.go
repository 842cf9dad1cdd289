package http

import (
	"log/slog"
	"net/http"
	"time"

	"ballotd/internal/config"
	"ballotd/internal/domain"
	"ballotd/internal/infra/db"
	"ballotd/internal/infra/ratelimit"
	"ballotd/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	store *db.Store

	elections *usecase.Elections
	castVote  *usecase.CastVote
	audit     *usecase.TallyAudit
	analytics *usecase.AnalyticsService
	scheduler *usecase.LifecycleScheduler
	ledger    usecase.LedgerRepository

	tallies     TallyStore
	voters      VoterStore
	votes       VoteStore
	feedback    FeedbackStore
	auditEvents AuditStore

	deviceSocket http.HandlerFunc

	adminAPIKey string
	logger      *slog.Logger

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// Deps carries everything the handlers touch. Nil fields disable the
// routes that need them; those routes answer 404 so a partially wired
// server still starts.
type Deps struct {
	Store        *db.Store
	Elections    *usecase.Elections
	CastVote     *usecase.CastVote
	TallyAudit   *usecase.TallyAudit
	Analytics    *usecase.AnalyticsService
	Scheduler    *usecase.LifecycleScheduler
	Ledger       usecase.LedgerRepository
	Tallies      TallyStore
	Voters       VoterStore
	Votes        VoteStore
	Feedback     FeedbackStore
	AuditEvents  AuditStore
	DeviceSocket http.HandlerFunc
	RateLimiter  domain.RateLimiter
	Logger       *slog.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:          cfg,
		r:            r,
		store:        deps.Store,
		elections:    deps.Elections,
		castVote:     deps.CastVote,
		audit:        deps.TallyAudit,
		analytics:    deps.Analytics,
		scheduler:    deps.Scheduler,
		ledger:       deps.Ledger,
		tallies:      deps.Tallies,
		voters:       deps.Voters,
		votes:        deps.Votes,
		feedback:     deps.Feedback,
		auditEvents:  deps.AuditEvents,
		deviceSocket: deps.DeviceSocket,
		adminAPIKey:  cfg.AdminAPIKey,
		logger:       deps.Logger,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.GET("/elections", s.handleListElections)
		v1.GET("/elections/:election_id", s.handleGetElection)
		v1.GET("/elections/:election_id/tally", s.handleGetTally)
		v1.GET("/elections/:election_id/analytics", s.handleGetAnalytics)
		v1.GET("/votes/:vote_id", s.handleGetVote)
		v1.GET("/voters/:voter_id/votes", s.handleListVoterVotes)
		v1.GET("/voters/:voter_id/activity", s.handleGetVoterActivity)

		v1.POST("/votes", s.handleCastVote)
		v1.POST("/feedback", s.handleSubmitFeedback)

		v1.POST("/elections", s.handleAdminCreateElection)
		v1.POST("/elections/:election_id/publish", s.handleAdminPublishElection)
		v1.POST("/elections/:election_id/tally/recalculate", s.handleAdminReconcileTally)
		v1.DELETE("/elections", s.handleAdminClearElections)
		v1.PUT("/voters/:voter_id", s.handleAdminUpsertVoter)
		v1.GET("/events", s.handleAdminListEvents)

		if s.deviceSocket != nil {
			v1.GET("/signing/socket", gin.WrapF(s.deviceSocket))
		}
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.r
}
