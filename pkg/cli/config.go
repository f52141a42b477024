package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/adapter"
	"github.com/m-mizutani/magpie/pkg/model"
	"github.com/m-mizutani/magpie/pkg/policy"
	"github.com/m-mizutani/magpie/pkg/repository"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/m-mizutani/magpie/pkg/utils/logging"
	"github.com/m-mizutani/magpie/pkg/vectorindex"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	insightsKey = "insights.json"
	vectorsKey  = "vectors.gob"

	defaultDimensions = 768
)

// config holds configuration values
type config struct {
	configPath string
	logLevel   string

	// Stores
	dataDir   string
	bucket    string
	project   string
	database  string
	policyDir string

	// LLM
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string
	dimensions      int64
}

// fileConfig is the optional YAML config file shape. Flag and environment
// values take precedence over file values.
type fileConfig struct {
	LogLevel  string `yaml:"log_level"`
	DataDir   string `yaml:"data_dir"`
	Bucket    string `yaml:"bucket"`
	Project   string `yaml:"project"`
	Database  string `yaml:"database"`
	PolicyDir string `yaml:"policy_dir"`

	Gemini struct {
		Project         string `yaml:"project"`
		Location        string `yaml:"location"`
		GenerativeModel string `yaml:"generative_model"`
		EmbeddingModel  string `yaml:"embedding_model"`
		Dimensions      int64  `yaml:"dimensions"`
	} `yaml:"gemini"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("MAGPIE_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MAGPIE_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Aliases:     []string{"d"},
			Usage:       "Local directory for stores and archived documents",
			Sources:     cli.EnvVars("MAGPIE_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for stores (instead of data-dir)",
			Sources:     cli.EnvVars("MAGPIE_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID (enables Firestore record store)",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Directory of Rego ingest policies",
			Sources:     cli.EnvVars("MAGPIE_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.IntFlag{
			Name:        "dimensions",
			Usage:       "Embedding vector dimension (fixed for the index lifetime)",
			Sources:     cli.EnvVars("MAGPIE_DIMENSIONS"),
			Destination: &cfg.dimensions,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for extraction and report rendering",
			Sources:     cli.EnvVars("MAGPIE_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model for embeddings",
			Sources:     cli.EnvVars("MAGPIE_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// resolve merges the optional config file into unset fields and sets up the
// default logger.
func (cfg *config) resolve() error {
	if cfg.configPath != "" {
		data, err := os.ReadFile(cfg.configPath)
		if err != nil {
			return goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configPath))
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configPath))
		}

		fill(&cfg.logLevel, file.LogLevel)
		fill(&cfg.dataDir, file.DataDir)
		fill(&cfg.bucket, file.Bucket)
		fill(&cfg.project, file.Project)
		fill(&cfg.policyDir, file.PolicyDir)
		fill(&cfg.geminiProject, file.Gemini.Project)
		fill(&cfg.geminiLocation, file.Gemini.Location)
		fill(&cfg.generativeModel, file.Gemini.GenerativeModel)
		fill(&cfg.embeddingModel, file.Gemini.EmbeddingModel)
		if file.Database != "" {
			cfg.database = file.Database
		}
		if cfg.dimensions == 0 {
			cfg.dimensions = file.Gemini.Dimensions
		}
	}

	if cfg.dataDir == "" && cfg.bucket == "" {
		cfg.dataDir = ".magpie"
	}
	if cfg.dimensions == 0 {
		cfg.dimensions = defaultDimensions
	}

	logging.SetDefault(logging.New(cfg.logLevel, os.Stderr))
	return nil
}

func fill(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// newStorage creates the blob storage for store snapshots and archived text
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket != "" {
		return adapter.NewStorage(ctx, cfg.bucket)
	}
	return adapter.NewLocalStorage(cfg.dataDir)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	opts := []adapter.GeminiOption{
		adapter.WithEmbeddingDimensions(int(cfg.dimensions)),
	}
	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// newGate loads the Rego ingest gate when a policy directory is configured
func (cfg *config) newGate(ctx context.Context) (*policy.Gate, error) {
	return policy.New(ctx, cfg.policyDir)
}

// engine bundles the two stores plus the storage used for their
// persistence round trip.
type engine struct {
	repo    repository.Repository
	memory  *repository.Memory // nil when the record store is Firestore
	index   *vectorindex.Index
	storage adapter.Storage
}

// openEngine loads both stores at command start
func (cfg *config) openEngine(ctx context.Context) (*engine, error) {
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, err
	}

	e := &engine{storage: storage}

	if cfg.project != "" {
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, err
		}
		e.repo = repo
	} else {
		memory, err := loadMemory(ctx, storage)
		if err != nil {
			return nil, err
		}
		e.memory = memory
		e.repo = memory
	}

	index, err := loadIndex(ctx, storage, int(cfg.dimensions))
	if err != nil {
		return nil, err
	}
	e.index = index

	// Local snapshots are written as two separate blobs; catch a torn pair
	// before any command trusts them.
	if e.memory != nil {
		if err := insight.VerifyLockstep(ctx, e.repo, e.index); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func loadMemory(ctx context.Context, storage adapter.Storage) (*repository.Memory, error) {
	r, err := storage.Get(ctx, insightsKey)
	if err != nil {
		// No snapshot yet: start with an empty store
		logging.Default().Debug("no insight store snapshot, starting empty")
		return repository.NewMemory(), nil
	}
	defer r.Close()

	return repository.LoadMemory(r)
}

func loadIndex(ctx context.Context, storage adapter.Storage, dimensions int) (*vectorindex.Index, error) {
	r, err := storage.Get(ctx, vectorsKey)
	if err != nil {
		logging.Default().Debug("no vector index snapshot, starting empty")
		return vectorindex.New(dimensions)
	}
	defer r.Close()

	index, err := vectorindex.Load(r)
	if err != nil {
		return nil, err
	}
	if index.Dimension() != dimensions {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "saved index dimension differs from configuration",
			goerr.V("saved", index.Dimension()), goerr.V("configured", dimensions))
	}
	return index, nil
}

// save persists both stores. Called after mutating commands.
func (e *engine) save(ctx context.Context) error {
	if e.memory != nil {
		if err := saveBlob(ctx, e.storage, insightsKey, e.memory.Save); err != nil {
			return goerr.Wrap(err, "failed to save insight store")
		}
	}
	if err := saveBlob(ctx, e.storage, vectorsKey, e.index.Save); err != nil {
		return goerr.Wrap(err, "failed to save vector index")
	}
	return nil
}

func saveBlob(ctx context.Context, storage adapter.Storage, key string, write func(io.Writer) error) error {
	w, err := storage.Put(ctx, key)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
