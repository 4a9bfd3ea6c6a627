package config

import (
	"fmt"
	"os"
	"strings"
)

// Secret represents configuration value that can be loaded from
// environment variable or file.
//
// Examples:
//
//	"qwerty123"         - plain value;
//	"env:DB_PASSWORD"   - value of environment variable DB_PASSWORD;
//	"file:password.txt" - content of file password.txt.
type Secret string

const (
	envSecretPrefix  = "env:"
	fileSecretPrefix = "file:"
)

// Secret returns resolved secret value.
func (s Secret) Secret() (string, error) {
	value := string(s)
	switch {
	case strings.HasPrefix(value, envSecretPrefix):
		name := strings.TrimPrefix(value, envSecretPrefix)
		env, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %q does not exist", name)
		}
		return env, nil
	case strings.HasPrefix(value, fileSecretPrefix):
		name := strings.TrimPrefix(value, fileSecretPrefix)
		bytes, err := os.ReadFile(name)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(bytes), "\r\n"), nil
	default:
		return value, nil
	}
}
