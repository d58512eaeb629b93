package helpers

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
)

// WriteConfigYAML writes an acheron configuration pointing at the fixture
// database and a Charon instance, and returns its path
func WriteConfigYAML(dir, connStr, charonURL, token string, workers int) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return "", fmt.Errorf("failed to parse database port: %w", err)
	}

	password, _ := u.User.Password()
	passwordFile := filepath.Join(dir, "db-password")
	if err := os.WriteFile(passwordFile, []byte(password), 0o600); err != nil {
		return "", err
	}

	cfg := config.Config{
		Charon: &config.CharonConfig{BaseURL: charonURL, Token: token, Timeout: "5s"},
		Database: &config.DatabaseConfig{
			Host:           u.Hostname(),
			Port:           port,
			User:           u.User.Username(),
			PasswordFile:   passwordFile,
			Database:       u.Path[1:],
			SSLMode:        "disable",
			ConnectTimeout: "30s",
		},
		Workers: &config.WorkersConfig{Count: workers, QueueTimeout: "200ms"},
		Project: &config.ProjectConfig{SequencingFacility: "NGI-U"},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
