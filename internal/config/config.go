// Package config содержит логику чтения конфигурации сервиса выставления счетов.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress  = "localhost:8080"
	defaultArchivePath = "billdesk.db"
)

// Config содержит параметры конфигурации сервиса выставления счетов.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	// ArchivePath задаёт файл BoltDB и используется только при пустом DatabaseURI.
	ArchivePath   string `env:"ARCHIVE_PATH"`
	SessionSecret string `env:"SESSION_SECRET"`
	// SnapshotBeforeArchive включает проверку размера снимка до записи счёта в архив.
	SnapshotBeforeArchive bool `env:"SNAPSHOT_BEFORE_ARCHIVE"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envArchivePath := cfg.ArchivePath
	envSessionSecret := cfg.SessionSecret
	envSnapshotFirst := cfg.SnapshotBeforeArchive
	_, snapshotFirstFromEnv := os.LookupEnv("SNAPSHOT_BEFORE_ARCHIVE")

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty selects the embedded archive file)")
	flag.StringVar(&cfg.ArchivePath, "f", defaultArchivePath, "embedded archive file path")
	flag.StringVar(&cfg.SessionSecret, "s", "", "operator session signing secret")
	flag.BoolVar(&cfg.SnapshotBeforeArchive, "snapshot-first", false, "encode QR snapshot before archiving the bill")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envArchivePath != "" {
		cfg.ArchivePath = envArchivePath
	}
	if envSessionSecret != "" {
		cfg.SessionSecret = envSessionSecret
	}
	if snapshotFirstFromEnv {
		cfg.SnapshotBeforeArchive = envSnapshotFirst
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = defaultArchivePath
	}

	return cfg, nil
}
