package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/reyeslabs/lexigrade/internal/api"
	"github.com/reyeslabs/lexigrade/internal/checker"
	"github.com/reyeslabs/lexigrade/internal/config"
	"github.com/reyeslabs/lexigrade/internal/database"
	"github.com/reyeslabs/lexigrade/internal/engine"
	"github.com/reyeslabs/lexigrade/internal/metrics"
	"github.com/reyeslabs/lexigrade/internal/ollama"
	"github.com/reyeslabs/lexigrade/internal/queue"
	"github.com/reyeslabs/lexigrade/internal/svm"
	"github.com/reyeslabs/lexigrade/internal/tagger"
	"github.com/reyeslabs/lexigrade/internal/tracing"
	"github.com/reyeslabs/lexigrade/pkg/logging"
)

func main() {
	// Setup structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("lexigrade service initializing", "version", "1.0.0")

	// Get default values from environment variables, with fallbacks
	portDefault := getEnv("PORT", "8080")
	dbPathDefault := getEnv("DB_PATH", "lexigrade.db")
	redisAddrDefault := getEnv("REDIS_ADDR", "")
	calibrationDefault := getEnv("CALIBRATION_PATH", "")
	lexiconDefault := getEnv("LEXICON_PATH", "")
	proficiencyModelDefault := getEnv("PROFICIENCY_MODEL", "")
	complexityModelDefault := getEnv("COMPLEXITY_MODEL", "")
	checkerURLDefault := getEnv("CHECKER_URL", "")
	taggerURLDefault := getEnv("TAGGER_URL", "")
	ollamaURLDefault := getEnv("OLLAMA_URL", "http://localhost:11434")
	ollamaModelDefault := getEnv("OLLAMA_MODEL", ollama.DefaultModel)
	useOllamaDefault := getEnvBool("USE_OLLAMA", false)
	otlpEndpointDefault := getEnv("OTLP_ENDPOINT", "")
	concurrencyDefault := getEnvInt("CONCURRENCY", 10)

	var (
		port             = flag.String("port", portDefault, "Server port (env: PORT)")
		dbPath           = flag.String("db", dbPathDefault, "Database file path (env: DB_PATH)")
		redisAddr        = flag.String("redis", redisAddrDefault, "Redis address for async processing; empty disables the queue (env: REDIS_ADDR)")
		calibrationPath  = flag.String("calibration", calibrationDefault, "Scoring calibration TOML file (env: CALIBRATION_PATH)")
		lexiconPath      = flag.String("lexicon", lexiconDefault, "CEFR lexicon TOML file; empty uses the built-in lexicon (env: LEXICON_PATH)")
		proficiencyModel = flag.String("proficiency-model", proficiencyModelDefault, "Trained proficiency model artifact (env: PROFICIENCY_MODEL)")
		complexityModel  = flag.String("complexity-model", complexityModelDefault, "Trained complexity model artifact (env: COMPLEXITY_MODEL)")
		checkerURL       = flag.String("checker-url", checkerURLDefault, "LanguageTool base URL; empty disables grammar checking (env: CHECKER_URL)")
		taggerURL        = flag.String("tagger-url", taggerURLDefault, "POS tagger base URL; empty uses built-in tokenization (env: TAGGER_URL)")
		ollamaURL        = flag.String("ollama-url", ollamaURLDefault, "Ollama API URL (env: OLLAMA_URL)")
		ollamaModel      = flag.String("ollama-model", ollamaModelDefault, "Ollama model to use (env: OLLAMA_MODEL)")
		useOllama        = flag.Bool("use-ollama", useOllamaDefault, "Enable Ollama for AI issue enhancement (env: USE_OLLAMA)")
		otlpEndpoint     = flag.String("otlp-endpoint", otlpEndpointDefault, "OTLP gRPC endpoint; empty disables tracing (env: OTLP_ENDPOINT)")
		concurrency      = flag.Int("concurrency", concurrencyDefault, "Worker concurrency (env: CONCURRENCY)")
	)
	flag.Parse()

	// Initialize tracing
	shutdownTracing, err := tracing.Init(context.Background(), *otlpEndpoint, "lexigrade")
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	} else if *otlpEndpoint != "" {
		logger.Info("tracing initialized", "endpoint", *otlpEndpoint)
	}

	// Load scoring calibration
	cfg, err := config.Load(*calibrationPath)
	if err != nil {
		logger.Error("failed to load calibration", "error", err, "path", *calibrationPath)
		os.Exit(1)
	}

	// Engine options: lexicon and trained models are all optional.
	var opts []engine.Option
	if *lexiconPath != "" {
		lex, err := engine.LoadLexicon(*lexiconPath)
		if err != nil {
			logger.Error("failed to load lexicon", "error", err, "path", *lexiconPath)
			os.Exit(1)
		}
		logger.Info("lexicon loaded", "path", *lexiconPath, "words", len(lex))
		opts = append(opts, engine.WithLexicon(lex))
	}

	var proficiencyHolder, complexityHolder *svm.Holder
	if *proficiencyModel != "" {
		proficiencyHolder = svm.NewHolder(*proficiencyModel)
		opts = append(opts, engine.WithProficiencyModel(proficiencyHolder))
	}
	if *complexityModel != "" {
		complexityHolder = svm.NewHolder(*complexityModel)
		opts = append(opts, engine.WithComplexityModel(complexityHolder))
	}

	scoringEngine := engine.New(cfg, opts...)

	// Initialize database
	db, err := database.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "database_path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	businessMetrics := metrics.NewDefault("lexigrade")

	// Optional collaborators
	var grammarChecker *checker.Client
	if *checkerURL != "" {
		grammarChecker = checker.New(*checkerURL)
		logger.Info("grammar checker configured", "url", *checkerURL)
	}

	var posTagger *tagger.Client
	if *taggerURL != "" {
		posTagger = tagger.New(*taggerURL)
		logger.Info("pos tagger configured", "url", *taggerURL)
	}

	var enhancer *ollama.Client
	if *useOllama {
		enhancer, err = ollama.New(*ollamaURL, *ollamaModel)
		if err != nil {
			logger.Warn("failed to initialize Ollama client, enhancement disabled",
				"error", err,
				"ollama_url", *ollamaURL,
				"ollama_model", *ollamaModel,
			)
			enhancer = nil
		} else {
			logger.Info("Ollama client initialized", "model", *ollamaModel, "url", *ollamaURL)
		}
	}

	// Async pipeline is only wired when Redis is configured. nil-typed
	// collaborators must stay nil interfaces in the worker and handler.
	var (
		queueClient *queue.Client
		worker      *queue.Worker
		enqueuer    api.Enqueuer
	)
	var workerChecker queue.GrammarChecker
	if grammarChecker != nil {
		workerChecker = grammarChecker
	}
	var workerTagger queue.Tagger
	if posTagger != nil {
		workerTagger = posTagger
	}
	var workerEnhancer queue.Enhancer
	if enhancer != nil {
		workerEnhancer = enhancer
	}

	if *redisAddr != "" {
		queueClient = queue.NewClient(queue.ClientConfig{RedisAddr: *redisAddr})
		defer queueClient.Close()

		worker = queue.NewWorker(
			queue.WorkerConfig{RedisAddr: *redisAddr, Concurrency: *concurrency},
			db,
			scoringEngine,
			workerChecker,
			workerTagger,
			workerEnhancer,
			queueClient,
			businessMetrics,
		)
		go func() {
			if err := worker.Start(); err != nil {
				logger.Error("worker failed", "error", err)
				os.Exit(1)
			}
		}()
		enqueuer = queueClient
	} else {
		logger.Info("Redis not configured, async analysis disabled")
	}

	// Initialize API handler
	apiHandler := api.NewHandler(api.Config{
		DB:          db,
		Engine:      scoringEngine,
		Checker:     workerChecker,
		Tagger:      workerTagger,
		QueueClient: enqueuer,
		Proficiency: proficiencyHolder,
		Complexity:  complexityHolder,
	})

	// Wrap handler with middleware chain: HTTP logging -> tracing -> handlers
	handler := logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("lexigrade service starting",
			"port", *port,
			"database", *dbPath,
			"redis", *redisAddr,
			"proficiency_model", *proficiencyModel,
			"complexity_model", *complexityModel,
			"ollama_enabled", enhancer != nil,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("error shutting down tracer", "error", err)
	}

	logger.Info("server stopped")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
