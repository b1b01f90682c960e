package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rohan/voyager/internal/agent"
	"github.com/rohan/voyager/internal/gateway"
	"github.com/rohan/voyager/internal/governance"
	"github.com/rohan/voyager/internal/llm"
	"github.com/rohan/voyager/internal/observability"
	"github.com/rohan/voyager/internal/session"
	"github.com/rohan/voyager/internal/store"
	"github.com/rohan/voyager/internal/tools"
	"github.com/rohan/voyager/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file (json or yaml)")
	flag.Parse()

	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Tool Registry. A duplicate registration is a fatal config error.
	registry := tools.NewRegistry()
	mustRegister := func(t tools.Tool) {
		if err := registry.Register(t); err != nil {
			log.Fatal(err)
		}
	}

	mustRegister(tools.NewFlightSearchTool())
	mustRegister(tools.NewHotelSearchTool())
	mustRegister(tools.NewBudgetEstimateTool())
	mustRegister(tools.NewItineraryFormatTool(cfg.App.Workspace))

	destTool, err := tools.NewDestinationInfoTool()
	if err != nil {
		log.Printf("Warning: Failed to initialize destination info tool: %v", err)
	} else {
		mustRegister(destTool)
	}

	// Session store.
	var sessionStore session.Store
	switch cfg.Memory.Type {
	case "memory":
		sessionStore = store.NewMemoryStore()
	default:
		sqlStore, err := store.NewSQLiteStore(cfg.Memory.Path)
		if err != nil {
			log.Fatal(err)
		}
		defer sqlStore.Close()
		sessionStore = sqlStore
	}

	// Model provider fallback chain.
	chain := cfg.ProviderChain()
	if len(chain) == 0 {
		log.Fatal("No enabled provider found in config")
	}
	providers := make([]llm.Provider, 0, len(chain))
	for _, pc := range chain {
		p, err := llm.NewOpenAIProvider(pc.Name, pc.APIKey, pc.Model, pc.BaseURL)
		if err != nil {
			log.Fatal(err)
		}
		providers = append(providers, p)
	}
	modelGateway := llm.NewGateway(providers, cfg.Engine.ModelTimeout())

	sessions := session.NewManager(sessionStore, modelGateway, cfg.Engine.HistoryWindow)
	prompts := agent.NewPromptManager(cfg.App.Prompts)
	if p, err := prompts.GetSummarizerPrompt(); err == nil {
		sessions.SummaryPrompt = p
	}

	gov := governance.NewDefaultPolicyEngine()
	// Default safety rule: never let planned tool arguments carry payment data.
	_ = gov.DenyArguments(`(?i)(credit\s*card|card\s*number|cvv)`)

	logger := observability.NewLogger()

	engine := &agent.Engine{
		Sessions: sessions,
		Planner: &agent.Planner{
			Gateway:  modelGateway,
			Registry: registry,
			Sessions: sessions,
			Prompts:  prompts,
		},
		Executor: &agent.Executor{
			Registry:       registry,
			Policy:         gov,
			Logger:         logger,
			MaxConcurrency: cfg.Engine.MaxConcurrency,
			StepTimeout:    cfg.Engine.ToolTimeout(),
		},
		Synthesizer: &agent.Synthesizer{
			Gateway:  modelGateway,
			Sessions: sessions,
			Prompts:  prompts,
		},
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var messengers []gateway.Messenger

	httpGw := gateway.NewHTTPGateway(cfg.Server.Addr, engine)
	messengers = append(messengers, httpGw)
	go func() {
		if err := httpGw.Start(); err != nil {
			log.Printf("\033[91m[ FAIL ] HTTP GATEWAY CRITICAL ERROR: %v\033[0m", err)
			stop()
		}
	}()

	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, engine)
		if err != nil {
			log.Fatal(err)
		}
		messengers = append(messengers, tg)
		go func() {
			if err := tg.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] TELEGRAM GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop()
			}
		}()
	}

	// Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	for _, m := range messengers {
		if err := m.Stop(); err != nil {
			log.Printf("Error stopping gateway: %v", err)
		}
	}

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] ENGINE DE-INITIALIZED. GOODBYE.\033[0m")
}
