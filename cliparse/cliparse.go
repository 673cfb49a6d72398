// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/pick-a-box/models"
)

type Config struct {
	Port      int
	StoreType string
	StoreURL  string
	NATSURL   string

	BoardKey    string
	BoardSize   int
	SeedFile    string
	SeedSecrets []int

	AdminPassword string

	WriteMode                string
	ClaimOncePerDevice       bool
	ClaimOncePerIdentity     bool
	PreserveSecretsOnShuffle bool

	AllowedOrigins []string
}

// SeedConfig is the YAML seed file layout:
//
//	size: 8
//	secrets: [10, 20, 30, 40]
type SeedConfig struct {
	Size    int   `yaml:"size"`
	Secrets []int `yaml:"secrets"`
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("pick-a-box", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.StoreType, "t", "", "Store type (memory, sqlite, postgres or redis)")
	fs.StringVar(&cfg.StoreURL, "d", "", "Store URL")
	fs.StringVar(&cfg.NATSURL, "nats", "", "NATS URL for cross-process notifications")

	// Board
	fs.StringVar(&cfg.BoardKey, "key", "", "Document key of the board")
	fs.IntVar(&cfg.BoardSize, "size", 0, "Number of boxes on a new board")
	fs.StringVar(&cfg.SeedFile, "seed", "", "YAML seed file")
	fs.StringVar(&cfg.WriteMode, "write-mode", "", "check-and-set or overwrite")
	deviceRule := fs.Bool("claim-once-per-device", true, "One claim per device per round")
	identityRule := fs.Bool("claim-once-per-identity", false, "One box per identity")
	preserve := fs.Bool("preserve-secrets", false, "Shuffle the existing secrets instead of 1..N")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminPassword, "admin-password", "", "Admin password (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.StoreType == "" {
		cfg.StoreType = os.Getenv("STORE_TYPE")
		if cfg.StoreType == "" {
			cfg.StoreType = models.StoreMemory
		}
	}
	switch cfg.StoreType {
	case models.StoreMemory, models.StoreSQLite, models.StorePostgres, models.StoreRedis:
	default:
		return Config{}, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}

	if cfg.StoreURL == "" {
		cfg.StoreURL = os.Getenv("STORE_URL")
	}
	if cfg.StoreURL == "" && cfg.StoreType != models.StoreMemory {
		return Config{}, fmt.Errorf("store URL required for %s (use -d or STORE_URL env)", cfg.StoreType)
	}

	if cfg.NATSURL == "" {
		cfg.NATSURL = os.Getenv("NATS_URL")
	}

	if cfg.BoardKey == "" {
		cfg.BoardKey = os.Getenv("BOARD_KEY")
		if cfg.BoardKey == "" {
			cfg.BoardKey = models.DefaultBoardKey
		}
	}

	if cfg.BoardSize == 0 {
		if sizeStr := os.Getenv("BOARD_SIZE"); sizeStr != "" {
			size, err := strconv.Atoi(sizeStr)
			if err != nil {
				return Config{}, errors.New("invalid BOARD_SIZE env variable")
			}
			cfg.BoardSize = size
		}
	}

	if cfg.SeedFile == "" {
		cfg.SeedFile = os.Getenv("SEED_FILE")
	}
	if cfg.SeedFile != "" {
		seed, err := LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return Config{}, err
		}
		if cfg.BoardSize == 0 {
			cfg.BoardSize = seed.Size
		}
		cfg.SeedSecrets = seed.Secrets
	}

	if cfg.BoardSize == 0 {
		cfg.BoardSize = models.DefaultBoardSize
	}
	if cfg.BoardSize < 0 {
		return Config{}, errors.New("board size must not be negative")
	}

	if cfg.WriteMode == "" {
		cfg.WriteMode = os.Getenv("WRITE_MODE")
		if cfg.WriteMode == "" {
			cfg.WriteMode = models.WriteModeCheckAndSet
		}
	}
	if cfg.WriteMode != models.WriteModeCheckAndSet && cfg.WriteMode != models.WriteModeOverwrite {
		return Config{}, fmt.Errorf("unknown write mode %q", cfg.WriteMode)
	}

	var err error
	if cfg.ClaimOncePerDevice, err = boolSetting(set, "claim-once-per-device", *deviceRule, "CLAIM_ONCE_PER_DEVICE"); err != nil {
		return Config{}, err
	}
	if cfg.ClaimOncePerIdentity, err = boolSetting(set, "claim-once-per-identity", *identityRule, "CLAIM_ONCE_PER_IDENTITY"); err != nil {
		return Config{}, err
	}
	if cfg.PreserveSecretsOnShuffle, err = boolSetting(set, "preserve-secrets", *preserve, "PRESERVE_SECRETS_ON_SHUFFLE"); err != nil {
		return Config{}, err
	}

	cfg.AllowedOrigins = []string{"*"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}

	// Secrets - MUST be provided
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	}
	if cfg.AdminPassword == "" {
		return Config{}, errors.New("ADMIN_PASSWORD required")
	}

	return cfg, nil
}

// boolSetting prefers an explicit flag, then the env variable, then the flag default
func boolSetting(set map[string]bool, name string, flagValue bool, env string) (bool, error) {
	if set[name] {
		return flagValue, nil
	}
	raw := os.Getenv(env)
	if raw == "" {
		return flagValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s env variable", env)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadSeedFile reads the initial board layout from YAML
func LoadSeedFile(path string) (SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedConfig{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedConfig
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedConfig{}, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if seed.Size < 0 {
		return SeedConfig{}, errors.New("seed file: size must not be negative")
	}
	for _, v := range seed.Secrets {
		if v <= 0 {
			return SeedConfig{}, fmt.Errorf("seed file: secret %d must be positive", v)
		}
	}
	return seed, nil
}
