package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Params are the named construction parameters of a processor.
type Params map[string]any

// String returns the string parameter key, or def when it is not set.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Wrapf(ErrInvalidParam, "%s: expected a string, got %T", key, v)
	}

	return s, nil
}

// Int returns the integer parameter key, or def when it is not set.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, errors.Wrapf(ErrInvalidParam, "%s: %v is not an integer", key, n)
		}

		return int(n), nil
	default:
		return 0, errors.Wrapf(ErrInvalidParam, "%s: expected an integer, got %T", key, v)
	}
}

// Duration returns the duration parameter key, given as a time.Duration or a string such as "1.5s".
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidParam, "%s: %v", key, err)
		}

		return parsed, nil
	default:
		return 0, errors.Wrapf(ErrInvalidParam, "%s: expected a duration, got %T", key, v)
	}
}

// Constructor builds a processor from its parameters.
type Constructor func(params Params) (Processor, error)

// StageConfig describes a stage before the pipeline is built: the constructor of its processor and the parameters
// given to it. Processor is informative and names the constructor, for instance the name it is registered under.
type StageConfig struct {
	Constructor Constructor
	Params      Params
	Name        string
	Processor   string
}

// Registry maps processor names to constructors. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under name, replacing any previous one.
func (r *Registry) Register(name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = constructor
}

// Get returns the constructor registered under name.
func (r *Registry) Get(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[name]

	return c, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for n := range r.constructors {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// Stage returns the configuration of a stage named name running the processor registered as processor.
func (r *Registry) Stage(name, processor string, params Params) (StageConfig, error) {
	c, ok := r.Get(processor)
	if !ok {
		return StageConfig{}, errors.Wrapf(ErrUnknownProcessor, "%q", processor)
	}

	return StageConfig{
		Name:        name,
		Processor:   processor,
		Constructor: c,
		Params:      params,
	}, nil
}
