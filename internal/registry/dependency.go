package registry

import (
	"fmt"
	"sort"

	"github.com/wane/wane-sub001/internal/template"
)

// DependencyAnalyzer analyzes which components a component's template
// instantiates.
type DependencyAnalyzer struct {
	registry *ComponentRegistry
}

// NewDependencyAnalyzer creates a new dependency analyzer
func NewDependencyAnalyzer(registry *ComponentRegistry) *DependencyAnalyzer {
	return &DependencyAnalyzer{
		registry: registry,
	}
}

// AnalyzeComponent parses a component's template and returns the names of
// the registered components it references, sorted.
func (da *DependencyAnalyzer) AnalyzeComponent(component *ComponentInfo) ([]string, error) {
	nodes, err := template.Parse(component.Name, component.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template of %s: %w", component.Name, err)
	}
	return da.AnalyzeNodes(nodes), nil
}

// AnalyzeNodes returns the registered components referenced by an already
// parsed template, sorted. Unknown tags are left to the tree builder to
// report. A self reference is kept so that cycle detection sees it.
func (da *DependencyAnalyzer) AnalyzeNodes(nodes []*template.Node) []string {
	dependencies := make(map[string]bool)
	template.Walk(nodes, func(n *template.Node) bool {
		if n.Kind() != template.NodeComponent {
			return true
		}
		if dep, ok := da.registry.Lookup(n.Name()); ok {
			dependencies[dep.Name] = true
		}
		return true
	})

	result := make([]string, 0, len(dependencies))
	for dep := range dependencies {
		result = append(result, dep)
	}
	sort.Strings(result)
	return result
}

// UpdateAllDependencies updates dependencies for all components. Components
// whose template does not parse keep no dependencies; the first parse error
// is returned after every component was visited.
func (da *DependencyAnalyzer) UpdateAllDependencies() error {
	var firstErr error
	for _, component := range da.registry.GetAll() {
		deps, err := da.AnalyzeComponent(component)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		da.SetDependencies(component.Name, deps)
	}
	return firstErr
}

// SetDependencies records the dependencies of a registered component.
func (da *DependencyAnalyzer) SetDependencies(name string, deps []string) {
	da.registry.mutex.Lock()
	defer da.registry.mutex.Unlock()
	if existing := da.registry.components[name]; existing != nil {
		existing.Dependencies = append([]string(nil), deps...)
	}
}

// GetDependents returns components that depend on the given component
func (da *DependencyAnalyzer) GetDependents(componentName string) []*ComponentInfo {
	var dependents []*ComponentInfo

	da.registry.mutex.RLock()
	defer da.registry.mutex.RUnlock()

	for _, component := range da.registry.components {
		for _, dep := range component.Dependencies {
			if dep == componentName {
				dependents = append(dependents, component)
				break
			}
		}
	}

	sort.Slice(dependents, func(i, j int) bool { return dependents[i].Name < dependents[j].Name })
	return dependents
}

// GetDependencyGraph returns the full dependency graph
func (da *DependencyAnalyzer) GetDependencyGraph() map[string][]string {
	graph := make(map[string][]string)

	da.registry.mutex.RLock()
	defer da.registry.mutex.RUnlock()

	for name, component := range da.registry.components {
		graph[name] = make([]string, len(component.Dependencies))
		copy(graph[name], component.Dependencies)
	}

	return graph
}

// Transitive returns every component reachable from name, excluding name
// itself unless it is part of a cycle, sorted.
func (da *DependencyAnalyzer) Transitive(name string) []string {
	graph := da.GetDependencyGraph()
	seen := make(map[string]bool)
	stack := append([]string(nil), graph[name]...)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[top] {
			continue
		}
		seen[top] = true
		stack = append(stack, graph[top]...)
	}

	result := make([]string, 0, len(seen))
	for dep := range seen {
		result = append(result, dep)
	}
	sort.Strings(result)
	return result
}

// DetectCircularDependencies detects circular dependencies in the graph.
// Each cycle is reported once, closed by repeating its first member.
func (da *DependencyAnalyzer) DetectCircularDependencies() [][]string {
	graph := da.GetDependencyGraph()
	var cycles [][]string
	visited := make(map[string]bool)
	for _, component := range sortedNodes(graph) {
		if !visited[component] {
			cycles = append(cycles, detectCycles(component, graph, visited)...)
		}
	}
	return cycles
}

// CycleFrom returns the first cycle reachable from root, or nil.
func (da *DependencyAnalyzer) CycleFrom(root string) []string {
	cycles := detectCycles(root, da.GetDependencyGraph(), make(map[string]bool))
	if len(cycles) == 0 {
		return nil
	}
	return cycles[0]
}

type frame struct {
	node string
	next int
}

// detectCycles runs an explicit-stack DFS from start. visited is shared
// across calls so that every node is expanded once.
func detectCycles(start string, graph map[string][]string, visited map[string]bool) [][]string {
	var cycles [][]string
	onStack := make(map[string]int)
	stack := []frame{{node: start}}
	visited[start] = true
	onStack[start] = 0

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := graph[top.node]
		if top.next == len(deps) {
			delete(onStack, top.node)
			stack = stack[:len(stack)-1]
			continue
		}
		dep := deps[top.next]
		top.next++

		if at, ok := onStack[dep]; ok {
			cycle := make([]string, 0, len(stack)-at+1)
			for _, f := range stack[at:] {
				cycle = append(cycle, f.node)
			}
			cycles = append(cycles, append(cycle, dep))
			continue
		}
		if visited[dep] {
			continue
		}
		visited[dep] = true
		onStack[dep] = len(stack)
		stack = append(stack, frame{node: dep})
	}
	return cycles
}

// TopologicalOrder returns every component after the components it depends
// on, ties broken by name. It fails when the graph has a cycle.
func (da *DependencyAnalyzer) TopologicalOrder() ([]string, error) {
	graph := da.GetDependencyGraph()
	if cycles := da.DetectCircularDependencies(); len(cycles) > 0 {
		return nil, fmt.Errorf("circular dependency: %v", cycles[0])
	}

	var order []string
	done := make(map[string]bool)
	for _, root := range sortedNodes(graph) {
		if done[root] {
			continue
		}
		stack := []frame{{node: root}}
		done[root] = true
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := graph[top.node]
			if top.next == len(deps) {
				order = append(order, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			dep := deps[top.next]
			top.next++
			if !done[dep] {
				done[dep] = true
				stack = append(stack, frame{node: dep})
			}
		}
	}
	return order, nil
}

func sortedNodes(graph map[string][]string) []string {
	nodes := make([]string, 0, len(graph))
	for name := range graph {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}
