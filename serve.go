package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chative-commerce/server/internal/agent/graph"
	"github.com/Chative-commerce/server/internal/agent/graph/conversations"
	"github.com/Chative-commerce/server/internal/agent/graph/nodes"
	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/graph/tools"
	"github.com/Chative-commerce/server/internal/agent/llm"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/agent/repo"
	"github.com/Chative-commerce/server/internal/agent/responders"
	"github.com/Chative-commerce/server/internal/api"
	"github.com/Chative-commerce/server/internal/config"
	"github.com/Chative-commerce/server/internal/freight"
	"github.com/Chative-commerce/server/internal/notify"
	"github.com/Chative-commerce/server/internal/orchestrator"
	"github.com/Chative-commerce/server/internal/order"
	"github.com/Chative-commerce/server/internal/rules"
	"github.com/Chative-commerce/server/internal/session"
	"github.com/Chative-commerce/server/internal/telemetry"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const (
	serviceName     = "chative"
	historyCap      = 50
	shutdownTimeout = 15 * time.Second
)

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.App) error {
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel, Service: serviceName})

	shutdownTracer, err := telemetry.InitTracer(cfg.Tracing, serviceName, nil)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	storeNow := func() time.Time { return time.Now().In(loc) }

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.close(context.Background()) }()

	health := map[string]api.Pinger{"store": st.ping}

	// Sessions and transcripts live in Redis when configured, in process otherwise.
	var (
		sessions session.Store
		history  model.ConversationRepository
	)
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		history = repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL, historyCap)
		health["redis"] = pingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logx.Info().Msg("connected to redis")
	} else {
		sessions = session.NewMemoryStore()
		history = repo.NewMemoryConversationRepository(historyCap)
		logx.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
	}

	models, err := llm.NewChatModels(ctx, cfg.LLM, cfg.Responders, cfg.Retry)
	if err != nil {
		return err
	}
	catalogTools := tools.NewCatalogTools(st, nil)
	infos, err := tools.ToolInfos(ctx, catalogTools)
	if err != nil {
		return err
	}
	if err := models.BindToolsToResponseModel(infos); err != nil {
		return err
	}

	hub := notify.NewHub()
	go hub.Run(ctx)
	notifiers := notify.Multi{hub}
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram, nil)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, tg)
	}

	engine := rules.New(st)
	engine.Now = storeNow
	calculator := freight.NewCalculator(st, freight.NewDistanceProvider(cfg.Maps))

	deps := &nodes.Deps{
		Messages: conversations.NewMessagesManager(history, cfg.Conversation),
		Media: &responders.MediaSummarizer{
			Analyzer: models.Media,
			Timeout:  cfg.Responders.File.Timeout,
			Policy:   cfg.Retry,
		},
		Intent: responders.NewIntentClassifier(models.Intent),
		Signal: responders.NewSignalClassifier(models.Signal),
		Orders: responders.NewOrderExtractor(models.Order),
		Pending: &order.PendingHandler{
			Addresses: st,
			Orders:    st,
			Prices:    st,
			Freight:   calculator,
			Now:       storeNow,
		},
		Catalog:   st,
		Rules:     engine,
		Freight:   calculator,
		Addresses: st,
		Notifier:  notifiers,
		ToolNames: prompts.ToolNames{ProductQuery: tools.ProductQueryToolName, Addons: tools.ProductAddonsToolName},
		Now:       storeNow,
	}

	runner, err := graph.NewRunner(ctx, &graph.GraphConfig{
		Deps:              deps,
		ResponseModel:     models.Response,
		ResponseModelName: models.ResponseModelName,
		Tools:             catalogTools,
		ToolMaxCalls:      cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Runner:       runner,
		Sessions:     sessions,
		Catalog:      st,
		Interactions: st,
		Location:     loc,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Options{
		Processor:      orch,
		Catalog:        st,
		Interactions:   st,
		Handoffs:       http.HandlerFunc(hub.ServeWS),
		Health:         health,
		RequestTimeout: cfg.RequestTimeout,
	})

	logx.Info().
		Str("environment", cfg.Environment.String()).
		Str("store_backend", cfg.StoreBackend).
		Str("llm_provider", cfg.LLM.Provider).
		Int("notifiers", len(notifiers)).
		Msg("service wired")

	return api.NewServer(cfg.HTTPAddr, router).Run(ctx, shutdownTimeout)
}
