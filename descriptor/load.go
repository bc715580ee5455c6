package descriptor

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/action"
	"github.com/moffa90/go-qdl/logging"
)

// Config holds the loader configuration.
type Config struct {
	// IncludeDir is searched first for program source files
	IncludeDir string

	// FinalizeProvisioning must match the commit flag of a UFS descriptor
	FinalizeProvisioning bool

	// Logger is used for logging operations (optional)
	Logger logrus.FieldLogger
}

// Option is a functional option for Load.
type Option func(*Config)

// WithIncludeDir sets the directory searched first for program sources.
func WithIncludeDir(dir string) Option {
	return func(c *Config) {
		c.IncludeDir = dir
	}
}

// WithFinalizeProvisioning allows UFS descriptors that commit their layout.
func WithFinalizeProvisioning(finalize bool) Option {
	return func(c *Config) {
		c.FinalizeProvisioning = finalize
	}
}

// WithLogger sets a logger for the loader.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Load parses the descriptor files concurrently and returns a frozen store
// holding their actions. Actions keep the order of paths, and within a file
// the order of entries. At most one UFS descriptor may be given.
func Load(paths []string, opts ...Option) (*action.Store, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	results := make([][]action.Action, len(paths))
	kinds := make([]Kind, len(paths))

	var group errgroup.Group
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			kind, acts, err := loadFile(path, cfg)
			if err != nil {
				return &qdl.ConfigError{File: path, Err: err}
			}
			kinds[i] = kind
			results[i] = acts
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	store := action.NewStore()
	ufsFile := ""
	for i, acts := range results {
		if kinds[i] == UFS {
			if ufsFile != "" {
				return nil, &qdl.ConfigError{
					File: paths[i],
					Err:  errors.Errorf("second ufs descriptor, %s already given", ufsFile),
				}
			}
			ufsFile = paths[i]
		}

		if cfg.Logger != nil {
			cfg.Logger.WithFields(logging.Fields("file", paths[i], "type", kinds[i].String(), "actions", len(acts))).
				Debug("descriptor loaded")
		}
		store.Add(acts...)
	}
	store.Freeze()
	return store, nil
}

func loadFile(path string, cfg Config) (Kind, []action.Action, error) {
	kind, err := Detect(path)
	if err != nil {
		return Unknown, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return kind, nil, errors.Wrap(err, "open descriptor")
	}
	defer func() { _ = f.Close() }()

	switch kind {
	case Patch:
		acts, err := LoadPatches(f)
		return kind, acts, err
	case Program:
		acts, err := LoadPrograms(f, cfg.IncludeDir)
		return kind, acts, err
	case UFS:
		u, err := LoadUFS(f, cfg.FinalizeProvisioning)
		if err != nil {
			return kind, nil, err
		}
		return kind, []action.Action{u}, nil
	case Contents:
		return kind, nil, errors.New("contents descriptors are not supported")
	default:
		return kind, nil, errors.New("unrecognized descriptor type")
	}
}
