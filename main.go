package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	buspkg "github.com/sat8bit/firstcontact/bus"
	"github.com/sat8bit/firstcontact/buslog"
	"github.com/sat8bit/firstcontact/config"
	"github.com/sat8bit/firstcontact/configs"
	"github.com/sat8bit/firstcontact/engine"
	"github.com/sat8bit/firstcontact/fetcher"
	"github.com/sat8bit/firstcontact/leader"
	"github.com/sat8bit/firstcontact/llm"
	"github.com/sat8bit/firstcontact/metrics"
	"github.com/sat8bit/firstcontact/renderer"
	"github.com/sat8bit/firstcontact/simclock"
	"github.com/sat8bit/firstcontact/species"
	"github.com/sat8bit/firstcontact/supervisor"
	"github.com/sat8bit/firstcontact/topic"
	"github.com/sat8bit/firstcontact/turn"
)

func main() {
	// --- 設定の読み込み ---
	cfg, err := config.Load(os.Args[1:], os.LookupEnv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl+C シグナルで cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	bus := buspkg.NewMemoryBus()

	// --- ログはstderrに出しつつ、警告以上をコンソールにも流す ---
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(buslog.NewBusHandler(bus, stderr, slog.LevelWarn)))

	// --- 指導者と種族を埋め込みリソースから読み込む ---
	registry, err := loadRegistry(cfg.LeadersFile)
	if err != nil {
		log.Fatalf("failed to load leaders: %v", err)
	}
	catalog, err := species.Load(configs.Species)
	if err != nil {
		log.Fatalf("failed to load species: %v", err)
	}

	headlines := fetchHeadlines(ctx, cfg.FeedURL, cfg.Headlines)

	gemini, err := llm.NewGemini(ctx, cfg.Gemini())
	if err != nil {
		log.Fatalf("failed to create gemini client: %v", err)
	}

	clock := simclock.New(cfg.Speed, simclock.DefaultInterval)
	eng := engine.New(ctx, registry, catalog, gemini, gemini, bus, turn.NewMutexManager(), engine.Options{
		SessionID:       uuid.NewString(),
		TranscriptLimit: cfg.TranscriptLimit,
		Casualties:      cfg.Casualties,
		Headlines:       headlines,
		Clock:           clock,
	})

	// --- レンダラーを初期化 ---
	var renderWG sync.WaitGroup
	console := renderer.NewConsoleRenderer(os.Stdout, 20*time.Millisecond)
	debrief := renderer.NewMarkdownRenderer(cfg.OutDir)
	renderers := []renderer.Renderer{console, debrief}
	for _, r := range renderers {
		if err := r.Render(bus, &renderWG); err != nil {
			log.Fatalf("failed to initialize renderer: %v", err)
		}
	}

	// --- Supervisorを初期化して起動 ---
	sup := supervisor.NewSupervisor(cfg.MaxExchanges, cfg.EndOnDepletion, bus, cancel)
	sup.PollResource(eng.ResourceState, time.Second)
	sup.Start(ctx)

	startedAt := time.Now()
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	if cfg.Species != "" {
		if err := eng.SelectSpecies(ctx, cfg.Species); err != nil {
			slog.Warn("could not select species, choose one with 'species'", "species", cfg.Species, "error", err)
		}
	}

	cli := &repl{
		engine:   eng,
		clock:    clock,
		registry: registry,
		catalog:  catalog,
		console:  console,
		out:      os.Stdout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return clock.Start(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return cli.Run(gctx, os.Stdin)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr)
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("session stopped with error", "error", err)
	}

	// --- 後片付け ---
	eng.Close()
	view := eng.Snapshot(context.Background())
	bus.Close()
	renderWG.Wait()

	report := renderer.Report{
		SessionID: view.SessionID,
		StartedAt: startedAt,
		EndedAt:   time.Now(),
		Reason:    sup.Reason(),
		Exchanges: sup.Exchanges(),
		Resource:  view.Resource,
		Leaders:   registry.All(),
		Headlines: headlines,
	}
	if view.Species != nil {
		report.Species = view.Species.Name
	}
	if report.Reason == "" {
		report.Reason = "The emissary withdrew."
	}
	for _, r := range renderers {
		if err := r.Finalize(report); err != nil {
			slog.Error("failed to finalize renderer", "error", err)
		}
	}
}

func loadRegistry(path string) (*leader.Registry, error) {
	if path != "" {
		return leader.LoadFile(path)
	}
	return leader.Load(configs.Leaders)
}

// fetchHeadlines は地球のニュースを取得します。失敗してもセッションは見出し無しで続けます。
func fetchHeadlines(ctx context.Context, url string, limit int) []*topic.Topic {
	if url == "" || limit == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	topics, err := fetcher.NewRSSFetcher(url, limit).Fetch(ctx)
	if err != nil {
		slog.Warn("failed to fetch headlines, continuing without them", "url", url, "error", err)
		return nil
	}
	slog.Info("fetched headlines", "count", len(topics))
	return topics
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
