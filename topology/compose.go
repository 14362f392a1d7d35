package topology

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Image names the orchestrator pulls for each service kind.
var serviceImages = map[string]string{
	ServiceWeb:    "multiscanner/web",
	ServiceAPI:    "multiscanner/rest",
	ServiceWorker: "multiscanner/worker",
}

type composeService struct {
	Image       string            `yaml:"image"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Secrets     []string          `yaml:"secrets,omitempty"`
}

type composeSecret struct {
	File string `yaml:"file"`
}

type composeFile struct {
	Version  string                    `yaml:"version"`
	Services map[string]composeService `yaml:"services"`
	Secrets  map[string]composeSecret  `yaml:"secrets,omitempty"`
}

// WriteCompose renders a validated topology as a docker-compose style
// document. Only validated topologies reach this point, so every secret
// referenced here is known to exist on disk.
func WriteCompose(w io.Writer, t *Topology) error {
	out := composeFile{
		Version:  "3.7",
		Services: make(map[string]composeService, len(t.Services)),
		Secrets:  make(map[string]composeSecret),
	}

	for _, unit := range t.Services {
		svc := composeService{
			Image:       serviceImages[unit.Name],
			Environment: unit.Environment,
		}
		slots := make([]string, 0, len(unit.Secrets))
		for slot := range unit.Secrets {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			svc.Secrets = append(svc.Secrets, slot)
			out.Secrets[slot] = composeSecret{File: unit.Secrets[slot]}
		}
		out.Services[unit.Name] = svc
	}
	if len(out.Secrets) == 0 {
		out.Secrets = nil
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to render compose file: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write compose file: %w", err)
	}
	return nil
}
