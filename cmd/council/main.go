package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"councilofbots.ai/internal/bots"
	"councilofbots.ai/internal/llm"
	"councilofbots.ai/internal/observerproto"
	"councilofbots.ai/internal/persistence/indexdb"
	"councilofbots.ai/internal/persistence/journal"
	"councilofbots.ai/internal/persistence/snapshot"
	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/rng"
	"councilofbots.ai/internal/sim/templates"
	"councilofbots.ai/internal/sim/tuning"
	"councilofbots.ai/internal/transport/observer"
)

func main() {
	var (
		rounds     = flag.Int("rounds", 0, "number of rounds (default: tuning rounds, 25)")
		seed       = flag.Uint64("seed", 0, "random seed (0 = fresh entropy; the seed is journaled)")
		configDir  = flag.String("configs", "./configs", "config directory (names.json, templates.json, tuning.yaml)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml if present)")

		enableLLM    = flag.Bool("enable_llm", false, "give the five standard bots LLM personalities")
		enableLLMBot = flag.Bool("enable_llm_bot", false, "add a sixth, LLM-driven member")
		deliberate   = flag.Bool("deliberate", false, "let members comment before the vote")
		galnet       = flag.Bool("galnet", false, "print a GalNet news blurb each round")

		llmProvider = flag.String("llm_provider", "", "ollama or lmstudio (default: tuning, ollama)")
		llmBaseURL  = flag.String("llm_base_url", "", "LM Studio base URL (default: http://127.0.0.1:1234/v1)")
		llmModel    = flag.String("llm_model", "", "LM Studio model id (defaults to -ollama_model)")
		llmAPIKey   = flag.String("llm_api_key", "", "optional bearer key for LM Studio")
		ollamaHost  = flag.String("ollama_host", "", "Ollama endpoint host:port (default: 127.0.0.1:11434)")
		ollamaModel = flag.String("ollama_model", "", "Ollama model (default: llama3)")

		dataDir     = flag.String("data", "./data", "journal directory (empty disables the journal)")
		dbPath      = flag.String("db", "", "sqlite index path (empty disables indexing)")
		observeAddr = flag.String("observe", "", "spectator listen address, e.g. 127.0.0.1:8081 (empty disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[council] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	catalog, err := templates.FromCatalogs(cats)
	if err != nil {
		logger.Fatalf("templates: %v", err)
	}

	tune, err := loadTuning(*configDir, *tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *rounds < 0 {
		fmt.Fprintln(os.Stderr, "-rounds must be >= 1")
		os.Exit(2)
	}
	if *rounds > 0 {
		tune.Rounds = *rounds
	}
	tune.Deliberate = tune.Deliberate || *deliberate
	tune.GalNet = tune.GalNet || *galnet
	overrideLLM(&tune.LLM, llmOverrides{
		Provider:    *llmProvider,
		BaseURL:     *llmBaseURL,
		Model:       *llmModel,
		APIKey:      *llmAPIKey,
		OllamaHost:  *ollamaHost,
		OllamaModel: *ollamaModel,
	})

	ctx, cancel := signalContext()
	defer cancel()

	var chooser bots.Chooser
	if *enableLLM || *enableLLMBot {
		client, err := connectLLM(ctx, tune.LLM)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Printf("llm: %s model=%s at %s", client.Provider(), client.Model(), client.BaseURL())
		chooser = client
	}
	members := bots.Roster(bots.RosterConfig{
		Chooser:       chooser,
		Personalities: *enableLLM,
		ModelBot:      *enableLLMBot,
		Logger:        logger,
	})

	runSeed := *seed
	if runSeed == 0 {
		runSeed = rng.EntropySeed()
	}
	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	names := make([]string, len(members))
	infos := make([]observerproto.MemberInfo, len(members))
	summaries := make([]memberSummary, len(members))
	for i, m := range members {
		names[i] = m.Name()
		infos[i] = observerproto.MemberInfo{Name: m.Name(), Expertise: m.Expertise()}
		summaries[i] = memberSummary{Name: m.Name(), Expertise: m.Expertise()}
	}

	printer := &consolePrinter{w: os.Stdout, rounds: tune.Rounds}
	runner := council.NewRunner(council.Config{
		Rounds:      tune.Rounds,
		VoteTimeout: tune.VoteTimeout(),
		Deliberate:  tune.Deliberate,
		GalNet:      tune.GalNet,
		Logger:      logger,
	}, catalog, rng.New(runSeed), members, printer)

	var jr *journal.Journal
	if dir := strings.TrimSpace(*dataDir); dir != "" {
		jr, err = journal.Open(dir, journal.Header{
			RunID:         runID,
			Seed:          runSeed,
			Rounds:        tune.Rounds,
			Members:       names,
			CatalogDigest: cats.Digest(),
			Deliberate:    tune.Deliberate,
			GalNet:        tune.GalNet,
			StartedAt:     startedAt,
		})
		if err != nil {
			logger.Fatalf("open journal: %v", err)
		}
		defer jr.Close()
		runner.AddSink(jr)
	}

	var idx *indexdb.SQLiteIndex
	if p := strings.TrimSpace(*dbPath); p != "" {
		idx, err = indexdb.OpenSQLite(p)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(ctx, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
		if err := idx.StartRun(ctx, indexdb.RunRow{
			RunID:         runID,
			Seed:          runSeed,
			Rounds:        tune.Rounds,
			Members:       names,
			CatalogDigest: cats.Digest(),
			StartedAt:     startedAt,
		}); err != nil {
			logger.Printf("index: %v", err)
		} else {
			runner.AddSink(idx.Sink(runID))
		}
	}

	var obs *observer.Server
	if addr := strings.TrimSpace(*observeAddr); addr != "" {
		obs = observer.NewServer(observerproto.BootstrapResponse{
			RunID:         runID,
			Seed:          runSeed,
			Rounds:        tune.Rounds,
			CatalogDigest: cats.Digest(),
			Members:       infos,
		}, logger)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Fatalf("observe listen: %v", err)
		}
		srv := &http.Server{Handler: obs.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("observer stopped: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		logger.Printf("spectators: ws://%s/v1/observe", ln.Addr())
		runner.AddSink(obs)
	}

	logger.Printf("run=%s seed=%d rounds=%d members=%d catalog=%s", runID, runSeed, tune.Rounds, len(members), shortDigest(cats.Digest()))
	printer.banner(len(members))

	runErr := runner.Run(ctx)
	rep := runner.Report(tune.Bonuses, tune.RatingTiers)
	printer.report(rep, summaries)

	if jr != nil {
		if err := jr.Finish(rep); err != nil {
			logger.Printf("journal: %v", err)
		}
		snap := snapshot.New(runID, runSeed, runner.Galaxy(), runner.Ledger())
		if err := snapshot.WriteSnapshot(snapshot.Path(strings.TrimSpace(*dataDir), runID), snap); err != nil {
			logger.Printf("snapshot: %v", err)
		}
	}
	if idx != nil {
		idx.FinishRun(runID, rep)
	}
	if obs != nil {
		obs.Finish(rep)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Printf("run stopped: %v", runErr)
		if jr != nil {
			_ = jr.Close()
		}
		if idx != nil {
			_ = idx.Close()
		}
		os.Exit(1)
	}
	if jr != nil {
		logger.Printf("journal: %s (replay with: replay -data %s -run %s)", strings.Join(jr.Files(), ", "), *dataDir, runID)
	}
}

func loadTuning(configDir, path string) (tuning.Tuning, error) {
	tp := strings.TrimSpace(path)
	explicit := tp != ""
	if !explicit {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	t, err := tuning.Load(tp)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return tuning.Defaults(), nil
		}
		return t, err
	}
	return t, nil
}

type llmOverrides struct {
	Provider, BaseURL, Model, APIKey, OllamaHost, OllamaModel string
}

func overrideLLM(l *tuning.LLM, o llmOverrides) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&l.Provider, o.Provider)
	set(&l.BaseURL, o.BaseURL)
	set(&l.Model, o.Model)
	set(&l.APIKey, o.APIKey)
	set(&l.OllamaHost, o.OllamaHost)
	set(&l.OllamaModel, o.OllamaModel)
}

// connectLLM resolves the provider and checks the server answers before the run starts.
func connectLLM(ctx context.Context, l tuning.LLM) (*llm.Client, error) {
	cfg, err := llm.ConfigFromTuning(l)
	if err != nil {
		return nil, err
	}
	client, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx); err != nil {
		switch client.Provider() {
		case llm.ProviderLMStudio:
			return nil, fmt.Errorf("LLM mode enabled but LM Studio is not reachable at %s.\n"+
				"- Start LM Studio's local server and verify the base URL.\n"+
				"- Default is -llm_base_url http://127.0.0.1:1234/v1\n(%v)", client.BaseURL(), err)
		default:
			return nil, fmt.Errorf("LLM mode enabled but Ollama is not reachable at %s.\n"+
				"- Start it yourself (e.g. `ollama serve`) and make sure the model exists.\n"+
				"- Change the endpoint with -ollama_host\n(%v)", client.BaseURL(), err)
		}
	}
	return client, nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
