// Package compiler runs the compilation pipeline over the components of a
// registry: templates are parsed concurrently, usage cycles are rejected,
// the factory tree of the root component is built, diff maps are computed
// and the styles of every used component are encapsulated.
package compiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wane/wane-sub001/internal/diff"
	"github.com/wane/wane-sub001/internal/errors"
	"github.com/wane/wane-sub001/internal/factory"
	"github.com/wane/wane-sub001/internal/logging"
	"github.com/wane/wane-sub001/internal/registry"
	"github.com/wane/wane-sub001/internal/style"
	"github.com/wane/wane-sub001/internal/template"
)

// Options configures a Compiler.
type Options struct {
	// Workers bounds concurrent template parsing. Zero uses GOMAXPROCS.
	Workers int
	Logger  logging.Logger
	// Cache, when set, reuses templates whose source hash is unchanged.
	Cache *ParseCache
}

// Compiler compiles the components of a registry.
type Compiler struct {
	workers int
	logger  logging.Logger
	cache   *ParseCache
	metrics Metrics
}

// Result is the output of one compilation.
type Result struct {
	Root     string
	Tree     *factory.Tree
	Diffs    *diff.Result
	Styles   []Style
	Duration time.Duration
}

// Style is the encapsulated stylesheet of one used component.
type Style struct {
	Component string
	Tag       string
	ID        int
	Attribute string
	CSS       string
}

// New creates a compiler.
func New(opts Options) *Compiler {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Compiler{
		workers: workers,
		logger:  logger.WithComponent("compiler"),
		cache:   opts.Cache,
	}
}

// Metrics returns a snapshot of the runs so far.
func (c *Compiler) Metrics() Metrics {
	return c.metrics.GetSnapshot()
}

// Compile compiles the component named root, by declared name or tag.
func (c *Compiler) Compile(ctx context.Context, reg *registry.ComponentRegistry, root string) (*Result, error) {
	start := time.Now()
	op := logging.StartOperation(c.logger, "compile")

	result, parsed, cached, err := c.compile(ctx, reg, root)
	c.metrics.record(time.Since(start), parsed, cached, err)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}
	result.Duration = time.Since(start)
	op.End(ctx, "root", result.Root, "factories", len(result.Tree.Factories()), "styles", len(result.Styles))
	return result, nil
}

func (c *Compiler) compile(ctx context.Context, reg *registry.ComponentRegistry, root string) (*Result, int, int, error) {
	rootInfo, ok := reg.Lookup(root)
	if !ok {
		return nil, 0, 0, errors.ErrUnknownComponent(root)
	}

	components := reg.GetAll()
	parsed, stats, err := c.parseAll(ctx, components, true)
	if err != nil {
		return nil, stats.parsed, stats.cached, err
	}
	c.logger.Debug(ctx, "Parsed templates", "parsed", stats.parsed, "cached", stats.cached)

	analyzer := reg.GetDependencyAnalyzer()
	for _, ci := range components {
		analyzer.SetDependencies(ci.Name, analyzer.AnalyzeNodes(parsed[ci.Name]))
	}
	if cycle := analyzer.CycleFrom(rootInfo.Name); cycle != nil {
		return nil, stats.parsed, stats.cached, errors.ErrRecursiveComponent(cycle).WithLocation(rootInfo.FilePath, 0, 0)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats.parsed, stats.cached, err
	}

	counter := &factory.Counter{}
	tree, err := factory.Build(definition(rootInfo, parsed), lookup(reg, parsed), factory.WithCounter(counter))
	if err != nil {
		return nil, stats.parsed, stats.cached, fmt.Errorf("building %s: %w", rootInfo.Name, err)
	}

	diffs, err := diff.Compute(tree)
	if err != nil {
		return nil, stats.parsed, stats.cached, fmt.Errorf("computing diff of %s: %w", rootInfo.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats.parsed, stats.cached, err
	}

	styles, err := encapsulateUsed(reg, tree, counter)
	if err != nil {
		return nil, stats.parsed, stats.cached, err
	}

	return &Result{Root: rootInfo.Name, Tree: tree, Diffs: diffs, Styles: styles}, stats.parsed, stats.cached, nil
}

type parseStats struct {
	parsed int
	cached int
}

// parseAll parses every component template. With failFast the first error
// cancels the remaining work and is returned; otherwise every failure is
// returned in the error map keyed by component name.
func (c *Compiler) parseAll(ctx context.Context, components []*registry.ComponentInfo, failFast bool) (map[string][]*template.Node, parseStats, error) {
	var (
		mu     sync.Mutex
		nodes  = make(map[string][]*template.Node, len(components))
		stats  parseStats
		failed = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, ci := range components {
		ci := ci
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed, hit, err := c.parse(ci)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if failFast {
					return err
				}
				failed[ci.Name] = err
				return nil
			}
			nodes[ci.Name] = parsed
			if hit {
				stats.cached++
			} else {
				stats.parsed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if len(failed) > 0 {
		return nodes, stats, &parseFailures{errs: failed}
	}
	return nodes, stats, nil
}

func (c *Compiler) parse(ci *registry.ComponentInfo) ([]*template.Node, bool, error) {
	if c.cache != nil {
		if nodes, ok := c.cache.Get(ci.Name, ci.Hash); ok {
			return nodes, true, nil
		}
	}
	nodes, err := template.Parse(ci.Name, ci.Template)
	if err != nil {
		var pe *errors.ParseError
		if stderrors.As(err, &pe) && pe.File == "" {
			pe.File = ci.FilePath
		}
		return nil, false, err
	}
	if c.cache != nil {
		c.cache.Set(ci.Name, ci.Hash, nodes)
	}
	return nodes, false, nil
}

// parseFailures carries every parse error of a collecting run.
type parseFailures struct {
	errs map[string]error
}

func (p *parseFailures) Error() string {
	return fmt.Sprintf("%d templates failed to parse", len(p.errs))
}

func definition(ci *registry.ComponentInfo, parsed map[string][]*template.Node) *factory.Definition {
	return &factory.Definition{Name: ci.Name, Template: parsed[ci.Name], Metadata: ci.Metadata}
}

// lookup resolves component tags through the registry, by declared name or
// compiled tag, to successfully parsed definitions.
func lookup(reg *registry.ComponentRegistry, parsed map[string][]*template.Node) factory.Lookup {
	return factory.LookupFunc(func(tag string) (*factory.Definition, bool) {
		ci, ok := reg.Lookup(tag)
		if !ok {
			return nil, false
		}
		if _, ok := parsed[ci.Name]; !ok {
			return nil, false
		}
		return definition(ci, parsed), true
	})
}

// encapsulateUsed scopes the stylesheet of every component instantiated in
// tree. Ids are drawn from counter in component name order.
func encapsulateUsed(reg *registry.ComponentRegistry, tree *factory.Tree, counter *factory.Counter) ([]Style, error) {
	used := make(map[string]bool)
	for _, f := range tree.Factories() {
		if f.Kind() == factory.KindComponent {
			used[f.Name()] = true
		}
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	var styles []Style
	for _, name := range names {
		ci, ok := reg.Get(name)
		if !ok || ci.Style == "" {
			continue
		}
		id := counter.Next()
		css, err := style.Encapsulate(ci.Style, ci.Tag, id, reg)
		if err != nil {
			return nil, fmt.Errorf("encapsulating style of %s: %w", name, withFile(err, ci.StylePath))
		}
		styles = append(styles, Style{
			Component: name,
			Tag:       ci.Tag,
			ID:        id,
			Attribute: style.Attribute(id),
			CSS:       css,
		})
	}
	return styles, nil
}

func withFile(err error, path string) error {
	var we *errors.WaneError
	if path != "" && stderrors.As(err, &we) && we.FilePath == "" {
		we.FilePath = path
	}
	return err
}

// Check parses and builds every registered component as its own root and
// collects every problem found. A component whose dependencies fail to
// parse is not built; the dependency's parse error is reported instead.
// The returned error is only set when ctx is done.
func (c *Compiler) Check(ctx context.Context, reg *registry.ComponentRegistry) (*errors.ErrorCollector, error) {
	op := logging.StartOperation(c.logger, "check")
	collector := errors.NewErrorCollector()
	components := reg.GetAll()

	parsed, _, err := c.parseAll(ctx, components, false)
	var failures *parseFailures
	switch {
	case stderrors.As(err, &failures):
		for _, ci := range components {
			if perr, ok := failures.errs[ci.Name]; ok {
				collector.AddError(ci.Name, ci.FilePath, perr)
			}
		}
	case err != nil:
		op.EndWithError(ctx, err)
		return collector, err
	}

	analyzer := reg.GetDependencyAnalyzer()
	for _, ci := range components {
		if nodes, ok := parsed[ci.Name]; ok {
			analyzer.SetDependencies(ci.Name, analyzer.AnalyzeNodes(nodes))
		} else {
			analyzer.SetDependencies(ci.Name, nil)
		}
	}

	for _, ci := range components {
		if err := ctx.Err(); err != nil {
			op.EndWithError(ctx, err)
			return collector, err
		}
		if ci.Style != "" {
			if _, err := style.Encapsulate(ci.Style, ci.Tag, 0, reg); err != nil {
				collector.AddError(ci.Name, ci.StylePath, withFile(err, ci.StylePath))
			}
		}
		if _, ok := parsed[ci.Name]; !ok || brokenDependency(analyzer.Transitive(ci.Name), parsed) {
			continue
		}

		tree, err := factory.Build(definition(ci, parsed), lookup(reg, parsed))
		if err == nil {
			_, err = diff.Compute(tree)
		}
		if err != nil {
			collector.AddError(ci.Name, ci.FilePath, err)
		}
	}

	op.End(ctx, "components", len(components), "diagnostics", len(collector.GetDiagnostics()))
	return collector, nil
}

func brokenDependency(deps []string, parsed map[string][]*template.Node) bool {
	for _, dep := range deps {
		if _, ok := parsed[dep]; !ok {
			return true
		}
	}
	return false
}
