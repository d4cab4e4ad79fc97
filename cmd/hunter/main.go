package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ghost-wallet-hunter/hunter/pkg/agent"
	"github.com/ghost-wallet-hunter/hunter/pkg/blacklist"
	"github.com/ghost-wallet-hunter/hunter/pkg/chain"
	"github.com/ghost-wallet-hunter/hunter/pkg/config"
	"github.com/ghost-wallet-hunter/hunter/pkg/detective"
	"github.com/ghost-wallet-hunter/hunter/pkg/httpapi"
	"github.com/ghost-wallet-hunter/hunter/pkg/llm"
	"github.com/ghost-wallet-hunter/hunter/pkg/rpcpool"
	"github.com/ghost-wallet-hunter/hunter/pkg/sigcache"
	"github.com/ghost-wallet-hunter/hunter/pkg/store"
	"github.com/ghost-wallet-hunter/hunter/pkg/strategy"
	"github.com/ghost-wallet-hunter/hunter/pkg/tools"
)

// subcommands of cmd/hunter, per SPEC_FULL.md §4.14: `serve` (default, also
// explicit) starts the HTTP API and scheduler; `investigate` runs one
// investigation and prints it; `agents` lists persisted agents.
func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "investigate":
			runCLIInvestigate(os.Args[2:])
			return
		case "agents":
			runCLIAgents(os.Args[2:])
			return
		case "serve":
			// falls through to the server start below
		default:
			fmt.Fprintf(os.Stderr, "unknown subcommand %q; usage: hunter [serve|investigate <address>|agents]\n", os.Args[1])
			os.Exit(1)
		}
	}

	runServe()
}

func runServe() {
	log.Info().Msg("🕵️  Ghost Wallet Hunter starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer db.Close()

	engine, llmClient, blacklistChecker, chainClient := buildEngine(cfg)
	registry := agent.NewRegistry()

	investigate := func(ctx context.Context, address string, subset []string, depth strategy.Depth) (*strategy.InvestigationResult, error) {
		result, err := engine.RunDetectiveInvestigation(ctx, address, subset, depth)
		if err != nil {
			return nil, err
		}
		if _, saveErr := db.SaveInvestigation(result); saveErr != nil {
			log.Warn().Err(saveErr).Msg("failed to persist investigation result")
		}
		return result, nil
	}

	toolRegistry := buildToolRegistry(cfg, llmClient, blacklistChecker, chainClient)
	genericEngine := strategy.NewGenericEngine(llmClient, toolRegistry)
	planExecute := func(ctx context.Context, task string) (*strategy.PlanAndExecuteResult, error) {
		return genericEngine.Run(ctx, task)
	}

	server := httpapi.New(registry, investigate, planExecute, db, cfg.APIKeys, cfg.EnableAuthentication)
	if err := server.RestoreAgents(); err != nil {
		log.Warn().Err(err).Msg("failed to restore persisted agents")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	scheduler := agent.NewScheduler()
	scheduler.Start()
	defer scheduler.Stop(context.Background())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: server.Handler(),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	printSummary(cfg)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}
	log.Info().Msg("goodbye 👋")
}

func buildEngine(cfg *config.Config) (*strategy.Engine, *llm.Client, *blacklist.Checker, *chain.Client) {
	pool := rpcpool.New(cfg.Endpoints(), cfg.SolanaTimeout, cfg.SolanaRetryMax, cfg.SolanaRetryBase)
	cache := sigcache.New(cfg.SignatureCacheTTL)
	chainClient := chain.New(pool, cache, cfg.SolanaCommitment, 1000)
	blacklistChecker := blacklist.New(cfg.BlacklistCachePath, cfg.BlacklistCacheTTL, cfg.SolscanAPIKey)

	var llmClient *llm.Client
	switch {
	case cfg.AnthropicAPIKey != "":
		llmClient = llm.New(llm.ProviderAnthropic, cfg.AnthropicAPIKey, cfg.AIModel, "", cfg.AIMaxTokens, 30*time.Second)
	case cfg.OpenAIAPIKey != "":
		llmClient = llm.New(llm.ProviderOpenAI, cfg.OpenAIAPIKey, cfg.AIModel, "", cfg.AIMaxTokens, 30*time.Second)
	case cfg.OllamaURL != "":
		llmClient = llm.New(llm.ProviderOllama, "", cfg.OllamaModel, cfg.OllamaURL, cfg.AIMaxTokens, 30*time.Second)
	}

	engine := strategy.NewEngine(chainClient, blacklistChecker, llmClient, detective.Squad())
	return engine, llmClient, blacklistChecker, chainClient
}

// buildToolRegistry wires the named tools of the Tool Registry (C5) that
// have a concrete backing client configured. Tools whose credentials are
// absent (Twitter, Telegram) are simply left unregistered; Execute then
// reports them as an unknown-tool error rather than panicking.
func buildToolRegistry(cfg *config.Config, llmClient *llm.Client, blacklistChecker *blacklist.Checker, chainClient *chain.Client) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewLLMChatTool(llmClient))
	registry.Register(tools.NewWriteBlogTool(llmClient))
	registry.Register(tools.NewDetectSwearingTool())
	registry.Register(tools.NewScrapeArticleTool(cfg.SolanaTimeout))
	registry.Register(tools.NewCheckBlacklistTool(blacklistChecker))
	registry.Register(tools.NewAnalyzeWalletTool(chainClient))
	registry.Register(tools.NewRiskAssessmentTool())
	if cfg.TwitterUsername != "" && cfg.TwitterPassword != "" {
		registry.Register(tools.NewPostToXTool(cfg.TwitterUsername, cfg.TwitterPassword))
	}
	if cfg.TelegramAPIID != 0 && cfg.TelegramAPIHash != "" {
		registry.Register(tools.NewSendMessageTool(cfg.TelegramAPIID, cfg.TelegramAPIHash))
		registry.Register(tools.NewBanUserTool(cfg.TelegramAPIID, cfg.TelegramAPIHash))
	}
	return registry
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n" + strings.Repeat("═", 60))
	fmt.Println("  🕵️  GHOST WALLET HUNTER - RUNNING")
	fmt.Println(strings.Repeat("═", 60))
	fmt.Printf("  RPC:       %s\n", cfg.SolanaRPCURL)
	fmt.Printf("  HTTP:      http://%s:%d/api/v1\n", cfg.Host, cfg.Port)
	aiStatus := "❌ Disabled (set ANTHROPIC_API_KEY or OPENAI_API_KEY)"
	switch {
	case cfg.AnthropicAPIKey != "":
		aiStatus = "✅ Anthropic Claude"
	case cfg.OpenAIAPIKey != "":
		aiStatus = "✅ OpenAI"
	case cfg.OllamaURL != "":
		aiStatus = "✅ Ollama (local)"
	}
	fmt.Printf("  AI Engine: %s\n", aiStatus)
	fmt.Println(strings.Repeat("═", 60) + "\n")
}

func runCLIInvestigate(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: hunter investigate <wallet-address>")
		os.Exit(1)
	}
	address := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	engine, _, _, _ := buildEngine(cfg)
	result, err := engine.RunDetectiveInvestigation(context.Background(), address, nil, strategy.DepthStandard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "investigation failed: %v\n", err)
		os.Exit(1)
	}
	renderInvestigationSummary(result)
}

// runCLIAgents lists every agent persisted in the configured store, reading
// it directly rather than going through a running server's HTTP API.
func runCLIAgents(args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	records, err := db.ListAgents()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list agents: %v\n", err)
		os.Exit(1)
	}
	renderAgentList(records)
}
