// Package secrets resolves named secret slots (TLS certificates and keys)
// to their payloads so the deployment topology can materialize them as
// files before validation.
package secrets

import (
	"context"
	"fmt"
	"os"
)

// Provider fetches secret payloads by slot name (e.g. "msweb.crt").
type Provider interface {
	Init(config map[string]string) error
	Fetch(ctx context.Context, slot string) ([]byte, error)
}

// GetProvider returns the provider implementation for providerType.
func GetProvider(providerType string, config map[string]string) (Provider, error) {
	switch providerType {
	case "vault":
		p := &VaultProvider{}
		if err := p.Init(config); err != nil {
			return nil, err
		}
		return p, nil
	case "file", "":
		p := &FileProvider{}
		if err := p.Init(config); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported secrets provider %s", providerType)
	}
}

// FileProvider serves slots from local files named in its config, for
// deployments that manage certificates out of band.
type FileProvider struct {
	paths map[string]string
}

func (f *FileProvider) Init(config map[string]string) error {
	f.paths = config
	return nil
}

func (f *FileProvider) Fetch(ctx context.Context, slot string) ([]byte, error) {
	path, ok := f.paths[slot]
	if !ok {
		return nil, fmt.Errorf("no file configured for secret slot %s", slot)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret slot %s: %w", slot, err)
	}
	return data, nil
}
