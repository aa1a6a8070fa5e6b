package aiprovider

import (
	"fmt"
	"os"
	"strings"
)

// CredentialEnvVar returns the environment variable that holds a
// provider's API key. Keys are never stored in the database; one variable
// per provider slug, uppercased with dashes folded to underscores.
func CredentialEnvVar(providerName string) string {
	slug := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(providerName), "-", "_"))
	return fmt.Sprintf("MINDGROVE_AI_KEY_%s", slug)
}

// APIKeyFor reads a provider's API key from the environment. Empty means
// not configured.
func APIKeyFor(providerName string) string {
	return strings.TrimSpace(os.Getenv(CredentialEnvVar(providerName)))
}
