package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"ballotd/internal/config"
	"ballotd/internal/correlate"
	"ballotd/internal/infra/cachemem"
	"ballotd/internal/infra/db"
	"ballotd/internal/infra/devicehub"
	httpinfra "ballotd/internal/infra/http"
	"ballotd/internal/infra/identity"
	"ballotd/internal/infra/ledger"
	"ballotd/internal/infra/policy"
	"ballotd/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)

	store, err := db.NewStore(cfg.PostgresDSN, logger)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	ledgerCfg := ledger.ConnectionConfig{
		PeerEndpoint:  cfg.PeerEndpoint,
		PeerHostAlias: cfg.PeerHostAlias,
		TLSCertPath:   cfg.PeerTLSCertPath,
		MSPID:         cfg.MSPID,
		ChannelName:   cfg.ChannelName,
		ChaincodeName: cfg.ChaincodeName,
	}
	conn, err := ledger.NewGrpcConnection(ledgerCfg)
	if err != nil {
		log.Fatalf("failed to dial peer: %v", err)
	}
	defer conn.Close()

	wallet := identity.NewWallet(cfg.WalletDir, cfg.MSPID)
	adminID, err := wallet.AdminIdentity()
	if err != nil {
		log.Fatalf("failed to load admin identity: %v", err)
	}
	adminSign, err := wallet.AdminSign()
	if err != nil {
		log.Fatalf("failed to load admin key: %v", err)
	}
	gw, err := ledger.Connect(conn, adminID, adminSign, true)
	if err != nil {
		log.Fatalf("failed to connect gateway: %v", err)
	}
	defer gw.Close()
	ledgerRepo := ledger.NewRepository(&ledger.GatewayContract{Contract: ledger.ContractFor(gw, ledgerCfg)})

	hub := devicehub.NewHub(logger)
	signer := &usecase.RemoteSigner{
		Devices:  hub,
		Registry: correlate.NewRegistry(),
		Timeout:  cfg.SigningTimeout(),
		Logger:   logger,
	}
	hub.OnResponse(signer.HandleResponse)

	factory := &ledger.ConnectionFactory{
		Conn:       conn,
		Wallet:     wallet,
		Cfg:        ledgerCfg,
		RemoteSign: signer.SignerFor,
	}

	engine, err := policy.NewEngineFromPath(context.Background(), cfg.EligibilityPolicyPath)
	if err != nil {
		log.Fatalf("failed to load eligibility policy: %v", err)
	}

	elections := &usecase.Elections{Ledger: ledgerRepo, Meta: store.Meta, Logger: logger}
	cast := &usecase.CastVote{
		Ledger:  ledgerRepo,
		Votes:   store.Votes,
		Tallies: store.Tallies,
		Voters:  store.Voters,
		Policy:  engine,
		Logger:  logger,
		UserLedger: func(voterID string) (usecase.LedgerRepository, func(), error) {
			return factory.RepositoryForUser(voterID)
		},
	}
	audit := &usecase.TallyAudit{Ledger: ledgerRepo, Tallies: store.Tallies}
	analytics := &usecase.AnalyticsService{
		Ledger:    ledgerRepo,
		Votes:     store.Votes,
		Voters:    store.Voters,
		Feedback:  store.Feedback,
		Snapshots: store.Analytics,
		Cache:     cachemem.New(),
		TTL:       cfg.AnalyticsTTL(),
		Logger:    logger,
	}
	scheduler := &usecase.LifecycleScheduler{
		Ledger:   ledgerRepo,
		Tallies:  store.Tallies,
		Interval: cfg.SchedulerInterval(),
		Logger:   logger,
	}
	scheduler.Start()
	defer scheduler.Stop()

	mirror := &usecase.EventMirror{
		Stream:  ledger.NewEventStream(gw.GetNetwork(cfg.ChannelName), cfg.ChaincodeName),
		Votes:   store.Votes,
		Tallies: store.Tallies,
		Audit:   store.Audit,
		Logger:  logger,
	}
	mirror.Start()
	defer mirror.Stop()

	srv := httpinfra.NewServer(cfg, httpinfra.Deps{
		Store:        store,
		Elections:    elections,
		CastVote:     cast,
		TallyAudit:   audit,
		Analytics:    analytics,
		Scheduler:    scheduler,
		Ledger:       ledgerRepo,
		Tallies:      store.Tallies,
		Voters:       store.Voters,
		Votes:        store.Votes,
		Feedback:     store.Feedback,
		AuditEvents:  store.Audit,
		DeviceSocket: hub.Handler(),
		Logger:       logger,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
