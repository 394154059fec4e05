// Package secrets reads API keys and passwords from the OS keychain when
// they are not set in the config or environment.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service groups jobdigest's entries in the OS keychain.
const Service = "jobdigest"

// Resolve returns value when set, otherwise the keychain entry for account.
// A missing entry yields "" and no error; the caller decides whether the
// secret is required.
func Resolve(value, account string) (string, error) {
	if v := strings.TrimSpace(value); v != "" {
		return v, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", nil
	}
	pw, err := keyring.Get(Service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read keychain entry %q: %w", account, err)
	}
	return strings.TrimSpace(pw), nil
}

// Set stores a secret under account.
func Set(account, secret string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keychain account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(Service, account, secret)
}

// Delete removes the secret stored under account.
func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keychain account name is empty")
	}
	return keyring.Delete(Service, account)
}

// LLMAccount is the keychain account holding a provider's API key.
func LLMAccount(provider string) string { return "llm:" + provider }

// SMTPAccount is the keychain account holding an SMTP password.
func SMTPAccount(username, host string) string {
	return fmt.Sprintf("smtp:%s@%s", username, host)
}

// Fixed keychain accounts.
const (
	JSearchAccount = "rapidapi:jsearch"
	SlackAccount   = "slack:webhook"
	S3Account      = "s3:secret_access_key"
)
