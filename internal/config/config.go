package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	DropDir   string
	OutputDir string
	RulesPath string

	SimilarityThreshold float64
	PartnerShare        float64
	BaseCompletionRate  float64
	RevenueMode         string

	SFTPHost      string
	SFTPPort      int
	SFTPUser      string
	SFTPPassword  string
	SFTPRemoteDir string

	WatcherDebounceMs int
	WatcherAutoExport bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "kdt.db")),
		DropDir:   getEnv("DATASET_DROP_DIR", filepath.Join(cwd, "data", "drop")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		RulesPath: getEnv("RULES_PATH", ""),

		SimilarityThreshold: getEnvFloat("GROUP_SIMILARITY_THRESHOLD", 0.65),
		PartnerShare:        getEnvFloat("PARTNER_REVENUE_SHARE", 0.9),
		BaseCompletionRate:  getEnvFloat("BASE_COMPLETION_RATE", 0.8),
		RevenueMode:         getEnv("REVENUE_MODE", "completion"),

		SFTPHost:      getEnv("SFTP_HOST", ""),
		SFTPPort:      getEnvInt("SFTP_PORT", 22),
		SFTPUser:      getEnv("SFTP_USER", ""),
		SFTPPassword:  getEnv("SFTP_PASSWORD", ""),
		SFTPRemoteDir: getEnv("SFTP_REMOTE_DIR", "/kdt/datasets"),

		WatcherDebounceMs: getEnvInt("WATCHER_DEBOUNCE_MS", 2000),
		WatcherAutoExport: getEnvBool("WATCHER_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
