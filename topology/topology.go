// Package topology validates the declarative deployment descriptor for the
// distributed deployment (web UI, REST API, worker pool) before it is
// handed to a container orchestrator.
package topology

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/multiscanner/msbootstrap/secrets"
	"github.com/multiscanner/msbootstrap/utils"
)

// The three deployable service kinds.
const (
	ServiceWeb    = "web"
	ServiceAPI    = "api"
	ServiceWorker = "worker"
)

// ServiceNames is the fixed deployment order of the service kinds.
var ServiceNames = []string{ServiceWeb, ServiceAPI, ServiceWorker}

// tlsEnvVar toggles TLS for a service. Only the exact lowercase literal
// "true" enables it; "True", "1" and everything else mean disabled. The
// case-sensitive match is a deliberate, documented contract.
const tlsEnvVar = "MS_USE_SSL"

// ServiceSpec is one service's entry in the descriptor file.
type ServiceSpec struct {
	Environment      map[string]string `yaml:"environment,omitempty"`
	Secrets          map[string]string `yaml:"secrets,omitempty"` // slot name -> file path
	ProxyPassthrough bool              `yaml:"proxy_passthrough,omitempty"`
}

// ProviderSpec selects the secrets provider used to materialize missing
// secret files before validation.
type ProviderSpec struct {
	Type   string            `yaml:"type"`
	Config map[string]string `yaml:"config,omitempty"`
}

// Descriptor is the on-disk deployment descriptor.
type Descriptor struct {
	Services        map[string]ServiceSpec `yaml:"services"`
	SecretsProvider *ProviderSpec          `yaml:"secrets_provider,omitempty"`
}

// ServiceUnit is one resolved, validated deployable service. Units are
// read-only once constructed; the orchestrator consumes them as-is.
type ServiceUnit struct {
	Name        string
	TLS         bool
	CertPath    string
	KeyPath     string
	Environment map[string]string
	Secrets     map[string]string
}

// Topology is the validated set of service units, in deployment order.
type Topology struct {
	Services []ServiceUnit
}

// Service returns the unit with the given name.
func (t *Topology) Service(name string) (ServiceUnit, bool) {
	for _, s := range t.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceUnit{}, false
}

// ValidationError collects every problem found in a descriptor, so the
// operator sees all of them at once instead of fixing one per run.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid deployment topology: %s", strings.Join(e.Problems, "; "))
}

// Load reads and parses a descriptor file.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor %s: %w", path, err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	for name := range d.Services {
		if !isKnownService(name) {
			return nil, fmt.Errorf("descriptor %s names unknown service %q", path, name)
		}
	}
	return &d, nil
}

func isKnownService(name string) bool {
	for _, s := range ServiceNames {
		if s == name {
			return true
		}
	}
	return false
}

// Materialize fetches secret slots whose files do not exist yet from the
// descriptor's secrets provider and writes them (0600) to their declared
// paths. Descriptors without a provider are left untouched.
func Materialize(ctx context.Context, d *Descriptor) error {
	if d.SecretsProvider == nil {
		return nil
	}
	provider, err := secrets.GetProvider(d.SecretsProvider.Type, d.SecretsProvider.Config)
	if err != nil {
		return err
	}
	for _, name := range ServiceNames {
		spec, ok := d.Services[name]
		if !ok {
			continue
		}
		for slot, path := range spec.Secrets {
			if utils.IsReadableFile(path) {
				continue
			}
			payload, err := provider.Fetch(ctx, slot)
			if err != nil {
				return fmt.Errorf("failed to materialize secret %s for service %s: %w", slot, name, err)
			}
			if err := utils.WriteFileAtomic(path, payload, 0600); err != nil {
				return fmt.Errorf("failed to write secret %s for service %s: %w", slot, name, err)
			}
		}
	}
	return nil
}

// Resolve turns a descriptor into a validated topology. Only services the
// descriptor declares are resolved. TLS is resolved per service,
// independently: the service's own environment map wins, then the process
// environment via lookupEnv. A service requesting TLS without both a
// readable certificate and key is a validation failure, reported before
// any service starts.
func Resolve(d *Descriptor, lookupEnv func(string) (string, bool)) (*Topology, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	var problems []string
	topo := &Topology{}
	for _, name := range ServiceNames {
		spec, ok := d.Services[name]
		if !ok {
			continue
		}
		unit := ServiceUnit{
			Name:        name,
			Environment: make(map[string]string, len(spec.Environment)+2),
			Secrets:     spec.Secrets,
		}
		for k, v := range spec.Environment {
			unit.Environment[k] = v
		}

		unit.TLS = tlsRequested(spec, lookupEnv)
		if unit.TLS {
			unit.CertPath = slotPath(spec.Secrets, ".crt")
			unit.KeyPath = slotPath(spec.Secrets, ".key")
			if unit.CertPath == "" || unit.KeyPath == "" {
				problems = append(problems, fmt.Sprintf("service %s requests TLS but declares no certificate/key secrets", name))
			} else {
				if !utils.IsReadableFile(unit.CertPath) {
					problems = append(problems, fmt.Sprintf("service %s certificate %s is not a readable file", name, unit.CertPath))
				}
				if !utils.IsReadableFile(unit.KeyPath) {
					problems = append(problems, fmt.Sprintf("service %s key %s is not a readable file", name, unit.KeyPath))
				}
			}
		}

		if spec.ProxyPassthrough {
			for _, proxyVar := range []string{"http_proxy", "https_proxy"} {
				if v, ok := lookupEnv(proxyVar); ok && v != "" {
					unit.Environment[proxyVar] = v
				}
			}
		}

		topo.Services = append(topo.Services, unit)
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ValidationError{Problems: problems}
	}
	return topo, nil
}

func tlsRequested(spec ServiceSpec, lookupEnv func(string) (string, bool)) bool {
	if v, ok := spec.Environment[tlsEnvVar]; ok {
		return v == "true"
	}
	if v, ok := lookupEnv(tlsEnvVar); ok {
		return v == "true"
	}
	return false
}

func slotPath(slots map[string]string, suffix string) string {
	// Deterministic pick when a descriptor (incorrectly) declares several.
	names := make([]string, 0, len(slots))
	for slot := range slots {
		if strings.HasSuffix(slot, suffix) {
			names = append(names, slot)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return slots[names[0]]
}
