package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wane/wane-sub001/internal/compiler"
	"github.com/wane/wane-sub001/internal/config"
	"github.com/wane/wane-sub001/internal/logging"
	"github.com/wane/wane-sub001/internal/model"
	"github.com/wane/wane-sub001/internal/registry"
	"github.com/wane/wane-sub001/internal/scanner"
	"github.com/wane/wane-sub001/internal/watcher"
)

// parseCacheSize bounds the templates kept between rebuilds.
const parseCacheSize = 512

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch [root]",
		Aliases: []string{"w"},
		Short:   "Recompile the root component on every change",
		Long: `Compile the root component, then watch the component paths and
recompile whenever a template, manifest, Go source or stylesheet changes.
Unchanged templates are not parsed again.

Examples:
  wane watch                      # Print each new model to stdout
  wane watch -o build/app.yaml    # Rewrite a file on every change`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("root", args[0]); err != nil {
					return err
				}
			}
			cfg, err := a.load(cmd, compileBindings)
			if err != nil {
				return err
			}
			return runWatch(cmd, cfg)
		},
	}

	AddStandardFlags(cmd, "compile")
	return cmd
}

func runWatch(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newWatchSession(ctx, cfg, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	session.rebuild(ctx)

	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.ComponentFilter)
	fileWatcher.AddFilter(watcher.NoTestFilter)
	fileWatcher.AddFilter(watcher.NoVendorFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(excludeFilter(cfg.Components.ExcludePatterns))
	fileWatcher.AddHandler(session.handle)

	for _, path := range cfg.Components.ScanPaths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			return fmt.Errorf("failed to watch path %s: %w", path, err)
		}
		logger.Info(ctx, "Watching", "path", path)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	<-ctx.Done()
	logger.Info(context.Background(), "Stopping file watcher")
	return nil
}

// excludeFilter rejects files whose base name matches a pattern.
func excludeFilter(patterns []string) watcher.FileFilter {
	return func(path string) bool {
		base := filepath.Base(path)
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, base); ok {
				return false
			}
		}
		return true
	}
}

// watchSession keeps the registry and parse cache alive between rebuilds.
type watchSession struct {
	cfg      *config.Config
	logger   logging.Logger
	out      io.Writer
	registry *registry.ComponentRegistry
	scanner  *scanner.ComponentScanner
	cache    *compiler.ParseCache
	compiler *compiler.Compiler
}

func newWatchSession(ctx context.Context, cfg *config.Config, logger logging.Logger, out io.Writer) (*watchSession, error) {
	reg, s, err := scan(ctx, cfg)
	if err != nil {
		// A broken component must not stop the watch.
		logger.Warn(ctx, err, "Initial scan incomplete")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	cache := compiler.NewParseCache(parseCacheSize)
	return &watchSession{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		registry: reg,
		scanner:  s,
		cache:    cache,
		compiler: compiler.New(compiler.Options{Workers: cfg.Compile.Workers, Logger: logger, Cache: cache}),
	}, nil
}

// handle applies a batch of file changes to the registry and rebuilds.
func (w *watchSession) handle(ctx context.Context, events []watcher.ChangeEvent) error {
	changed := w.apply(ctx, events)
	if changed == 0 {
		return nil
	}
	w.logger.Info(ctx, "Components changed", "count", changed)
	w.rebuild(ctx)
	return nil
}

// apply rescans the component of every event and returns how many
// components were touched.
func (w *watchSession) apply(ctx context.Context, events []watcher.ChangeEvent) int {
	seen := make(map[string]bool)
	for _, event := range events {
		tpl, ok := scanner.TemplateFor(event.Path)
		if !ok || seen[tpl] {
			continue
		}
		seen[tpl] = true

		// The declared name may change, so the old registration goes first.
		for _, name := range w.registry.RemoveByPath(tpl) {
			w.cache.Remove(name)
		}
		if _, err := os.Stat(tpl); err != nil {
			w.logger.Debug(ctx, "Component removed", "path", tpl)
			continue
		}
		if err := w.scanner.ScanFile(tpl); err != nil {
			w.logger.Error(ctx, err, "Failed to scan component", "path", tpl)
		}
	}
	return len(seen)
}

// rebuild compiles the root and writes the model. Failures are logged; the
// previous output is left in place.
func (w *watchSession) rebuild(ctx context.Context) bool {
	result, err := w.compiler.Compile(ctx, w.registry, w.cfg.Compile.Root)
	if err != nil {
		w.logger.Error(ctx, err, "Compile failed", "root", w.cfg.Compile.Root)
		return false
	}
	if err := writeProgram(ctx, w.out, w.cfg, model.Project(result), w.logger); err != nil {
		w.logger.Error(ctx, err, "Failed to write model")
		return false
	}
	w.logger.Info(ctx, "Compiled", "root", result.Root, "duration", result.Duration)
	return true
}
