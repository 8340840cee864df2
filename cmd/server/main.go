package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/riftword/autocomplete/internal/analytics"
	"github.com/riftword/autocomplete/internal/api"
	"github.com/riftword/autocomplete/internal/cache"
	"github.com/riftword/autocomplete/internal/metrics"
	"github.com/riftword/autocomplete/internal/persistence"
	"github.com/riftword/autocomplete/internal/pipeline"
	"github.com/riftword/autocomplete/internal/service"
	"github.com/riftword/autocomplete/internal/spell"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if parsedLevel, err := logrus.ParseLevel(level); err == nil {
			logger.SetLevel(parsedLevel)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.Info("starting autocomplete service")

	config := loadConfig()

	sharedMetrics := metrics.NewMetrics()

	var cacheInstance cache.Adapter
	if config.CacheEnabled {
		if config.RedisEnabled {
			redisConfig := cache.Config{
				Host:         config.RedisHost,
				Port:         config.RedisPort,
				Password:     config.RedisPassword,
				DB:           config.RedisDB,
				TTL:          config.CacheTTL,
				HistoryBound: config.HistoryBound,
			}
			cacheInstance = cache.NewRedisCache(redisConfig, logger, sharedMetrics)
			logger.Info("using redis cache")
		} else {
			cacheInstance = cache.NewInMemoryCache(config.CacheTTL, config.HistoryBound, logger, sharedMetrics)
			logger.Info("using in-memory cache")
		}
	}

	var persistenceAdapter persistence.Adapter
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch config.PersistenceBackend {
	case "postgres":
		pgConfig := persistence.PostgresConfig{
			Host:         config.PostgresHost,
			Port:         config.PostgresPort,
			User:         config.PostgresUser,
			Password:     config.PostgresPassword,
			DatabaseName: config.PostgresDB,
			SSLMode:      config.PostgresSSLMode,
			MaxOpenConns: config.PostgresMaxOpenConns,
			MaxIdleConns: config.PostgresMaxIdleConns,
		}
		adapter, err := persistence.NewPostgresAdapter(ctx, pgConfig, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to open postgres persistence adapter")
		}
		persistenceAdapter = adapter
		logger.Info("using postgres persistence")
	case "leveldb":
		adapter, err := persistence.OpenLevelDBAdapter(config.LevelDBPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to open leveldb persistence adapter")
		}
		persistenceAdapter = adapter
		logger.Info("using leveldb persistence")
	case "":
		logger.Info("persistence disabled")
	default:
		logger.WithField("backend", config.PersistenceBackend).Fatal("unknown persistence backend")
	}

	spellModel := loadSpellModel(config.SpellCorpusPath, logger)
	expander := pipeline.NewSpellExpander(spellModel)

	serviceConfig := service.Config{
		MaxSuggestions:   config.MaxSuggestions,
		TopK:             config.TopK,
		RebuildThreshold: config.RebuildThreshold,
		FuzzyThreshold:   config.FuzzyThreshold,
		CacheEnabled:     config.CacheEnabled,
	}

	autocompleteService := service.NewAutocompleteService(serviceConfig, expander, cacheInstance, persistenceAdapter, logger, sharedMetrics)

	if persistenceAdapter != nil {
		if err := autocompleteService.SyncIncremental(ctx, nil); err != nil {
			logger.WithError(err).Warn("failed to restore index from persisted snapshot")
		}
	}

	analyticsConfig := analytics.Config{
		BatchSize:     config.PipelineBatchSize,
		FlushInterval: config.PipelineFlushInterval,
		QueueSize:     config.PipelineQueueSize,
	}
	processor := analytics.NewProcessor(autocompleteService, analyticsConfig, logger, sharedMetrics)
	processor.Start(ctx)
	defer processor.Stop()

	apiHandler := api.NewHandler(autocompleteService, processor, logger, sharedMetrics)
	router := api.SetupRouter(apiHandler, config.APIKey, config.EnableCORS)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	go func() {
		logger.WithField("port", config.Port).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	printStartupInfo(config, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	if persistenceAdapter != nil {
		if err := autocompleteService.SyncFull(context.Background()); err != nil {
			logger.WithError(err).Error("failed to persist index snapshot on shutdown")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server shutdown complete")
}

// loadSpellModel loads the spelling correction corpus from path, or
// falls back to an empty model (candidates then always degrade to the
// input token itself) if path is unset or unreadable.
func loadSpellModel(path string, logger *logrus.Logger) *spell.Model {
	if path == "" {
		logger.Warn("SPELL_CORPUS_PATH not set, spelling correction disabled")
		return spell.New()
	}
	f, err := os.Open(path)
	if err != nil {
		logger.WithError(err).Warn("failed to open spell corpus, spelling correction disabled")
		return spell.New()
	}
	defer f.Close()

	model, err := spell.Load(f)
	if err != nil {
		logger.WithError(err).Warn("failed to parse spell corpus, spelling correction disabled")
		return spell.New()
	}
	return model
}

// Config holds application configuration
type Config struct {
	Port                  int
	APIKey                string
	EnableCORS            bool
	LogLevel              string
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxSuggestions        int
	TopK                  int
	RebuildThreshold      int
	FuzzyThreshold        int
	SpellCorpusPath       string
	CacheEnabled          bool
	CacheTTL              time.Duration
	HistoryBound          int
	RedisEnabled          bool
	RedisHost             string
	RedisPort             int
	RedisPassword         string
	RedisDB               int
	PersistenceBackend    string
	PostgresHost          string
	PostgresPort          int
	PostgresUser          string
	PostgresPassword      string
	PostgresDB            string
	PostgresSSLMode       string
	PostgresMaxOpenConns  int
	PostgresMaxIdleConns  int
	LevelDBPath           string
	PipelineBatchSize     int
	PipelineFlushInterval time.Duration
	PipelineQueueSize     int
}

// fileOverlay mirrors the subset of Config a TOML file may override.
// Fields are pointers so an absent key in the file leaves the
// environment-derived default untouched.
type fileOverlay struct {
	Port               *int    `toml:"port"`
	TopK               *int    `toml:"top_k"`
	RebuildThreshold   *int    `toml:"rebuild_threshold"`
	SpellCorpusPath    *string `toml:"spell_corpus_path"`
	PersistenceBackend *string `toml:"persistence_backend"`
	LevelDBPath        *string `toml:"leveldb_path"`
}

// loadConfig loads configuration from environment variables with
// defaults, then applies an optional TOML overlay named by -config.
func loadConfig() Config {
	config := Config{
		Port:                  8080,
		APIKey:                os.Getenv("API_KEY"),
		EnableCORS:            getEnvBool("ENABLE_CORS", true),
		LogLevel:              getEnvString("LOG_LEVEL", "info"),
		ReadTimeout:           getEnvDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:          getEnvDuration("WRITE_TIMEOUT", 10*time.Second),
		IdleTimeout:           getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		MaxSuggestions:        getEnvInt("MAX_SUGGESTIONS", 10),
		TopK:                  getEnvInt("TOP_K", 10),
		RebuildThreshold:      getEnvInt("REBUILD_THRESHOLD", 5),
		FuzzyThreshold:        getEnvInt("FUZZY_THRESHOLD", 2),
		SpellCorpusPath:       getEnvString("SPELL_CORPUS_PATH", ""),
		CacheEnabled:          getEnvBool("CACHE_ENABLED", true),
		CacheTTL:              getEnvDuration("CACHE_TTL", 5*time.Minute),
		HistoryBound:          getEnvInt("HISTORY_BOUND", cache.DefaultHistoryBound),
		RedisEnabled:          getEnvBool("REDIS_ENABLED", false),
		RedisHost:             getEnvString("REDIS_HOST", "localhost"),
		RedisPort:             getEnvInt("REDIS_PORT", 6379),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		PersistenceBackend:    getEnvString("PERSISTENCE_BACKEND", ""),
		PostgresHost:          getEnvString("POSTGRES_HOST", "localhost"),
		PostgresPort:          getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:          getEnvString("POSTGRES_USER", "postgres"),
		PostgresPassword:      os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:            getEnvString("POSTGRES_DB", "autocomplete"),
		PostgresSSLMode:       getEnvString("POSTGRES_SSLMODE", "disable"),
		PostgresMaxOpenConns:  getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
		PostgresMaxIdleConns:  getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
		LevelDBPath:           getEnvString("LEVELDB_PATH", "./data/leveldb"),
		PipelineBatchSize:     getEnvInt("PIPELINE_BATCH_SIZE", 100),
		PipelineFlushInterval: getEnvDuration("PIPELINE_FLUSH_INTERVAL", 30*time.Second),
		PipelineQueueSize:     getEnvInt("PIPELINE_QUEUE_SIZE", 10000),
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}

	applyTOMLOverlay(&config)

	return config
}

// applyTOMLOverlay loads a -config flag's TOML file, if given, and
// overrides the matching Config fields. Env vars remain the primary
// configuration source; the overlay exists for deployments that prefer
// a checked-in file over a pile of environment variables.
func applyTOMLOverlay(config *Config) {
	configPath := flag.String("config", "", "path to an optional TOML config overlay")
	flag.Parse()
	if *configPath == "" {
		return
	}

	var overlay fileOverlay
	if _, err := toml.DecodeFile(*configPath, &overlay); err != nil {
		logrus.WithError(err).WithField("path", *configPath).Warn("failed to load TOML config overlay, ignoring")
		return
	}

	if overlay.Port != nil {
		config.Port = *overlay.Port
	}
	if overlay.TopK != nil {
		config.TopK = *overlay.TopK
	}
	if overlay.RebuildThreshold != nil {
		config.RebuildThreshold = *overlay.RebuildThreshold
	}
	if overlay.SpellCorpusPath != nil {
		config.SpellCorpusPath = *overlay.SpellCorpusPath
	}
	if overlay.PersistenceBackend != nil {
		config.PersistenceBackend = *overlay.PersistenceBackend
	}
	if overlay.LevelDBPath != nil {
		config.LevelDBPath = *overlay.LevelDBPath
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// printStartupInfo prints useful startup information
func printStartupInfo(config Config, logger *logrus.Logger) {
	logger.Info("autocomplete service started")
	logger.WithFields(logrus.Fields{
		"port":                config.Port,
		"cache_enabled":       config.CacheEnabled,
		"redis_enabled":       config.RedisEnabled,
		"persistence_backend": config.PersistenceBackend,
		"cors_enabled":        config.EnableCORS,
		"api_key_set":         config.APIKey != "",
		"top_k":               config.TopK,
		"rebuild_threshold":   config.RebuildThreshold,
	}).Info("configuration loaded")

	logger.Info("available endpoints:")
	logger.Info(fmt.Sprintf("  GET  http://localhost:%d/api/v1/health", config.Port))
	logger.Info(fmt.Sprintf("  GET  http://localhost:%d/api/v1/autocomplete?q=<query>", config.Port))
	logger.Info(fmt.Sprintf("  POST http://localhost:%d/api/v1/autocomplete", config.Port))
	logger.Info(fmt.Sprintf("  GET  http://localhost:%d/api/v1/stats", config.Port))
	logger.Info(fmt.Sprintf("  GET  http://localhost:%d/api/v1/recent", config.Port))

	if config.APIKey != "" {
		logger.Info("admin endpoints (API key required):")
		logger.Info(fmt.Sprintf("  POST   http://localhost:%d/api/v1/admin/terms", config.Port))
		logger.Info(fmt.Sprintf("  POST   http://localhost:%d/api/v1/admin/terms/batch", config.Port))
		logger.Info(fmt.Sprintf("  DELETE http://localhost:%d/api/v1/admin/terms/<term>", config.Port))
		logger.Info(fmt.Sprintf("  POST   http://localhost:%d/api/v1/admin/sync/full", config.Port))
	}
}
