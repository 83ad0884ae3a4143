package registry

// The shortcuts below read the Dependencies recorded on each component.
// UpdateAllDependencies, or a compiler run, refreshes them from the parsed
// templates.

// GetDependencyAnalyzer returns the analyzer over r.
func (r *ComponentRegistry) GetDependencyAnalyzer() *DependencyAnalyzer {
	return r.dependencyAnalyzer
}

// UpdateAllDependencies reparses every template and records its usages.
func (r *ComponentRegistry) UpdateAllDependencies() error {
	return r.dependencyAnalyzer.UpdateAllDependencies()
}

// GetDependents returns the components using componentName directly.
func (r *ComponentRegistry) GetDependents(componentName string) []*ComponentInfo {
	return r.dependencyAnalyzer.GetDependents(componentName)
}

// GetDependencyGraph maps each component name to the components it uses.
func (r *ComponentRegistry) GetDependencyGraph() map[string][]string {
	return r.dependencyAnalyzer.GetDependencyGraph()
}

// BuildOrder lists every component after the components it uses. A usage
// cycle is an error.
func (r *ComponentRegistry) BuildOrder() ([]string, error) {
	return r.dependencyAnalyzer.TopologicalOrder()
}
