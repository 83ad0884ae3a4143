package registry

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wane/wane-sub001/internal/metadata"
)

// ComponentRegistry manages all discovered components
type ComponentRegistry struct {
	components map[string]*ComponentInfo
	tags       map[string]string
	mutex      sync.RWMutex
	watchers   []chan ComponentEvent

	dependencyAnalyzer *DependencyAnalyzer
}

// ComponentInfo holds everything the compiler needs about one component
type ComponentInfo struct {
	Name         string
	Tag          string
	Template     string
	Style        string
	Metadata     metadata.Component
	FilePath     string
	SourcePath   string
	StylePath    string
	LastMod      time.Time
	Hash         string
	Dependencies []string
}

// ComponentEvent represents a change in the component registry
type ComponentEvent struct {
	Type      EventType
	Component *ComponentInfo
	Timestamp time.Time
}

// EventType represents the type of component event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// NewComponentRegistry creates a new component registry
func NewComponentRegistry() *ComponentRegistry {
	r := &ComponentRegistry{
		components: make(map[string]*ComponentInfo),
		tags:       make(map[string]string),
		watchers:   make([]chan ComponentEvent, 0),
	}
	r.dependencyAnalyzer = NewDependencyAnalyzer(r)
	return r
}

// Register adds or updates a component in the registry. An empty Tag is
// derived from the name.
func (r *ComponentRegistry) Register(component *ComponentInfo) {
	if component.Tag == "" {
		component.Tag = TagFor(component.Name)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := EventTypeAdded
	if old, exists := r.components[component.Name]; exists {
		eventType = EventTypeUpdated
		delete(r.tags, old.Tag)
	}

	r.components[component.Name] = component
	r.tags[component.Tag] = component.Name
	r.notify(eventType, component)
}

// notify must be called with the write lock held.
func (r *ComponentRegistry) notify(eventType EventType, component *ComponentInfo) {
	event := ComponentEvent{
		Type:      eventType,
		Component: component,
		Timestamp: time.Now(),
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Get retrieves a component by name
func (r *ComponentRegistry) Get(name string) (*ComponentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	component, exists := r.components[name]
	return component, exists
}

// Lookup retrieves a component by declared name or compiled tag, the two
// ways a template can reference it.
func (r *ComponentRegistry) Lookup(nameOrTag string) (*ComponentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if component, ok := r.components[nameOrTag]; ok {
		return component, true
	}
	if name, ok := r.tags[nameOrTag]; ok {
		return r.components[name], true
	}
	return nil, false
}

// ChildTag returns the compiled tag of a registered component.
func (r *ComponentRegistry) ChildTag(name string) (string, bool) {
	component, ok := r.Get(name)
	if !ok {
		return "", false
	}
	return component.Tag, true
}

// GetAll returns all registered components sorted by name
func (r *ComponentRegistry) GetAll() []*ComponentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]*ComponentInfo, 0, len(r.components))
	for _, component := range r.components {
		result = append(result, component)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Names returns the registered component names, sorted.
func (r *ComponentRegistry) Names() []string {
	all := r.GetAll()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name
	}
	return names
}

// Remove removes a component from the registry
func (r *ComponentRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	component, exists := r.components[name]
	if !exists {
		return
	}

	delete(r.components, name)
	delete(r.tags, component.Tag)
	r.notify(EventTypeRemoved, component)
}

// RemoveByPath removes every component whose template, source or style
// lives at path and returns their names.
func (r *ComponentRegistry) RemoveByPath(path string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var removed []string
	for name, component := range r.components {
		if component.FilePath == path || component.SourcePath == path || component.StylePath == path {
			delete(r.components, name)
			delete(r.tags, component.Tag)
			r.notify(EventTypeRemoved, component)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// Watch returns a channel that receives component events
func (r *ComponentRegistry) Watch() <-chan ComponentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan ComponentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *ComponentRegistry) UnWatch(ch <-chan ComponentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered components
func (r *ComponentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.components)
}

// TagFor returns the compiled tag of a declared component name: the
// kebab-case form, prefixed with "w-" when it would have no hyphen.
func TagFor(name string) string {
	lower := cases.Lower(language.Und)
	var words []string
	start := 0
	runes := []rune(name)
	for i := 1; i <= len(runes); i++ {
		boundary := i == len(runes) || runes[i] == '-' || runes[i] == '_'
		if !boundary && unicode.IsUpper(runes[i]) {
			// Split before an upper-case rune that starts a new word:
			// "TodoItem" -> todo, item; "HTMLView" -> html, view.
			prevUpper := unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			boundary = !prevUpper || nextLower
			if boundary && start < i {
				words = append(words, lower.String(string(runes[start:i])))
				start = i
			}
			continue
		}
		if boundary {
			if start < i {
				words = append(words, lower.String(string(runes[start:i])))
			}
			start = i + 1
		}
	}

	tag := strings.Join(words, "-")
	if !strings.Contains(tag, "-") {
		tag = "w-" + tag
	}
	return tag
}

// NameForTag is the inverse of TagFor for names written in PascalCase.
func NameForTag(tag string) string {
	title := cases.Title(language.Und)
	tag = strings.TrimPrefix(tag, "w-")
	var b strings.Builder
	for _, word := range strings.Split(tag, "-") {
		b.WriteString(title.String(word))
	}
	return b.String()
}
