// Package internal contains the implementation packages of the wane
// compiler.
//
// # Package Organization
//
// The internal packages are organized by pipeline stage:
//
//   - template: Template parsing into view nodes and bindings
//   - metadata: Declared members and the mutation graph of a component
//   - factory: Factory tree construction and reference resolution
//   - diff: Update maps of every factory
//   - reconcile: Keyed list reconciliation plans
//   - style: Stylesheet encapsulation
//   - registry: Component registry, tags and the usage graph
//   - scanner: Component discovery on disk
//   - compiler: The pipeline over a registry, with parse cache and metrics
//   - model: Emitter-facing projection of a compilation
//   - config, logging, errors, watcher, version: Ambient support
//
// # Inter-Package Communication
//
// The scanner populates the registry. The compiler reads the registry,
// parses every template, builds the factory tree of the root and computes
// its diff maps. The model package flattens the result for encoding. The
// watcher feeds file changes back into the scanner.
package internal
