package steps

import "fmt"

// Step names, in pipeline execution order.
const (
	OSPackages     = "os-packages"
	SourceBuild    = "source-build"
	Tools          = "tools"
	Signatures     = "signatures"
	DevelopInstall = "develop-install"
)

// DefaultOrder is the fixed total order the pipeline executes steps in.
var DefaultOrder = []string{OSPackages, SourceBuild, Tools, Signatures, DevelopInstall}

// Constructor builds a step from the shared environment.
type Constructor func(env Env) Step

var registry = make(map[string]Constructor)

// Register adds a step constructor under name.
func Register(name string, constructor Constructor) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("step %s is already registered", name))
	}
	registry[name] = constructor
}

// New builds the named step.
func New(name string, env Env) (Step, error) {
	constructor, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("step %s not found", name)
	}
	return constructor(env), nil
}

// BuildAll constructs every step of DefaultOrder.
func BuildAll(env Env) ([]Step, error) {
	out := make([]Step, 0, len(DefaultOrder))
	for _, name := range DefaultOrder {
		s, err := New(name, env)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
