package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/ontology-api/internal/clustering"
	"github.com/jonathan/ontology-api/internal/config"
	"github.com/jonathan/ontology-api/internal/db"
	"github.com/jonathan/ontology-api/internal/extraction"
	"github.com/jonathan/ontology-api/internal/inference"
	"github.com/jonathan/ontology-api/internal/introspect"
	"github.com/jonathan/ontology-api/internal/jobs"
	"github.com/jonathan/ontology-api/internal/metrics"
	"github.com/jonathan/ontology-api/internal/modelslot"
	"github.com/jonathan/ontology-api/internal/server"
)

var (
	serveConfigPath string
	servePort       int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for schema introspection, clustering and concept generation.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a JSON config file")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func loadServeConfig() (config.Config, error) {
	cfg := config.Config{}
	if serveConfigPath != "" {
		loaded, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newFactory picks the model runner from the configuration.
func newFactory(cfg config.Config) (inference.Factory, error) {
	switch cfg.Runner {
	case config.RunnerOllama:
		return inference.NewOllamaFactory(inference.DefaultKeepAlive)
	case config.RunnerGemini:
		return inference.NewGeminiFactory(cfg.GeminiAPIKey)
	default:
		return nil, fmt.Errorf("unknown runner %q", cfg.Runner)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to metadata database: %w", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure metadata schema: %w", err)
	}

	factory, err := newFactory(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()

	slots := modelslot.NewManager(m)
	if err := slots.Configure(modelslot.Config{
		BaseModel: cfg.BaseModel,
		Overlays:  cfg.Overlays(),
		Factory:   factory,
		KeepAlive: !cfg.DisableKeepAlive,
		Params:    cfg.ModelParams,
	}); err != nil {
		return fmt.Errorf("failed to configure model slots: %w", err)
	}

	extractor := extraction.NewExtractor(slots)
	algorithm := clustering.NewFKGraph(clustering.Options{MergeSingletons: cfg.MergeSingletons})
	registry := jobs.NewRegistry(m)

	var jwtService *server.JWTService
	if jwtCfg, err := config.NewJWTConfig(); err == nil {
		jwtService = server.NewJWTService(jwtCfg)
	} else {
		log.Printf("[serve] JWT auth disabled: %v", err)
	}
	adminKeys := config.NewAdminKeyConfig()

	srv := server.New(server.Config{
		Port:          cfg.Port,
		SweepInterval: time.Duration(cfg.SweepIntervalMinutes) * time.Minute,
		JobMaxAge:     time.Duration(cfg.JobMaxAgeHours) * time.Hour,
	}, server.Deps{
		Store:     store,
		Provision: introspect.New(cfg.AdminURL()),
		Slots:     slots,
		Jobs:      registry,
		Pipeline: server.Pipeline{
			Cluster:               algorithm.Cluster,
			ExtractConcepts:       extractor.ExtractConcepts,
			GenerateAttributes:    extractor.GenerateAttributes,
			GenerateRelationships: extractor.GenerateRelationships,
			SuggestNames:          extractor.SuggestNames,
		},
		Metrics:    m,
		AdminKeys:  adminKeys,
		JWTService: jwtService,
	})

	return srv.Start()
}
