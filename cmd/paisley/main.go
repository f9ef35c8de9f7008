package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	app "github.com/kode4food/paisley"
	"github.com/kode4food/paisley/internal/config"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/engine"
	"github.com/kode4food/paisley/pkg/graph"
	"github.com/kode4food/paisley/pkg/log"
	"github.com/kode4food/paisley/pkg/observer"
	"github.com/kode4food/paisley/pkg/registry"
)

type (
	paisley struct {
		cfg      *config.Config
		reg      *registry.Map
		wf       *api.Workflow
		workflow string
		input    string
		funcs    string
		meta     metadataFlag
		stats    bool
	}

	// metadataFlag collects repeated -metadata key=value pairs
	metadataFlag api.Metadata
)

var (
	ErrMetadataFormat = errors.New("metadata must be key=value")
	ErrWorkflowFlag   = errors.New("a -workflow file is required")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(2)
	}

	s := &paisley{
		cfg:  cfg,
		reg:  registry.NewMap(),
		meta: metadataFlag{},
	}
	s.parseFlags(os.Args[1:])
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Run failed", log.Error(err))
		if errors.Is(err, api.ErrConfiguration) ||
			errors.Is(err, api.ErrValidation) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func (s *paisley) parseFlags(args []string) {
	fs := flag.NewFlagSet(app.Name, flag.ExitOnError)
	fs.StringVar(&s.workflow, "workflow", "",
		"workflow definition file (.json, .yaml)")
	fs.StringVar(&s.input, "input", "",
		"run input file (JSON object)")
	fs.StringVar(&s.funcs, "funcs", "",
		"directory of Lua step functions (<name>.lua)")
	fs.Var(&s.meta, "metadata",
		"run metadata as key=value (repeatable)")
	fs.BoolVar(&s.stats, "stats", false,
		"print plan statistics instead of running")
	_ = fs.Parse(args)
}

func (s *paisley) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}
	logger := log.NewWithLevel(app.Name, app.Version, level)
	slog.SetDefault(logger)
}

func (s *paisley) run() error {
	if s.workflow == "" {
		return ErrWorkflowFlag
	}
	wf, err := loadWorkflow(s.workflow)
	if err != nil {
		return err
	}
	s.wf = wf

	if s.stats {
		return s.printStats()
	}

	input, err := loadInput(s.input)
	if err != nil {
		return err
	}
	if err := s.registerFuncs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	eng := engine.New(s.reg,
		engine.WithLogger(slog.Default()),
		engine.WithWorkers(s.cfg.MaxWorkers),
		engine.WithRetryDefaults(s.cfg.RetryDefaults()),
	)
	res, runErr := eng.Run(ctx, s.wf, input,
		engine.WithMetadata(api.Metadata(s.meta)),
		engine.WithObservers(observer.Slog(slog.Default())),
	)
	if res != nil {
		if err := printJSON(res); err != nil {
			return err
		}
	}
	return runErr
}

func (s *paisley) printStats() error {
	plan, err := graph.Build(s.wf)
	if err != nil {
		return err
	}
	return printJSON(plan.Stats())
}

// registerFuncs loads every <name>.lua file in the funcs directory and
// registers it as the step function <name>
func (s *paisley) registerFuncs() error {
	if s.funcs == "" {
		return nil
	}
	entries, err := os.ReadDir(s.funcs)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".lua" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(s.funcs, name))
		if err != nil {
			return err
		}
		fn, err := registry.LuaFunc(string(src))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		base := api.Name(strings.TrimSuffix(name, ".lua"))
		if err := s.reg.Register(base, fn); err != nil {
			return err
		}
	}
	return nil
}

func loadWorkflow(path string) (*api.Workflow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return api.DecodeWorkflow(path, f)
}

// loadInput reads the run input, an empty map when no file is given
func loadInput(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrValidation, err)
	}
	return input, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (m metadataFlag) String() string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ",")
}

func (m metadataFlag) Set(arg string) error {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return fmt.Errorf("%w: %q", ErrMetadataFormat, arg)
	}
	m[key] = value
	return nil
}
