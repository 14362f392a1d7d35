package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/hashicorp/vault-client-go/schema"
)

// VaultProvider reads secret slots from a KV v2 engine, authenticating with
// an AppRole.
type VaultProvider struct {
	client      *vault.Client
	mountPath   string
	secretsPath string
}

func (v *VaultProvider) Init(config map[string]string) error {
	ctx := context.Background()

	tls := vault.TLSConfiguration{}
	if cert := config["server_cert"]; cert != "" {
		tls.ServerCertificate.FromFile = cert
	}

	client, err := vault.New(
		vault.WithAddress(config["address"]),
		vault.WithRequestTimeout(30*time.Second),
		vault.WithTLS(tls),
	)
	if err != nil {
		return fmt.Errorf("failed to build vault client: %w", err)
	}

	resp, err := client.Auth.AppRoleLogin(
		ctx,
		schema.AppRoleLoginRequest{
			RoleId:   config["role_id"],
			SecretId: config["secret_id"],
		},
		vault.WithMountPath("approle"),
	)
	if err != nil {
		return fmt.Errorf("vault login failed: %w", err)
	}
	if err := client.SetToken(resp.Auth.ClientToken); err != nil {
		return fmt.Errorf("failed to set vault token: %w", err)
	}

	v.client = client
	v.mountPath = config["mount_path"]
	if v.mountPath == "" {
		v.mountPath = "secret"
	}
	v.secretsPath = config["secrets_path"]
	if v.secretsPath == "" {
		v.secretsPath = "multiscanner/tls"
	}
	return nil
}

func (v *VaultProvider) Fetch(ctx context.Context, slot string) ([]byte, error) {
	secret, err := v.client.Secrets.KvV2Read(
		ctx,
		v.secretsPath,
		vault.WithMountPath(v.mountPath),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from vault: %w", v.secretsPath, err)
	}
	raw, ok := secret.Data.Data[slot]
	if !ok {
		return nil, fmt.Errorf("secret slot %s not present at %s", slot, v.secretsPath)
	}
	payload, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("secret slot %s at %s is not a string", slot, v.secretsPath)
	}
	return []byte(payload), nil
}
