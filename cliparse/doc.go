// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

main loads a .env file with godotenv before calling ParseFlags, so values
from the file behave exactly like real environment variables.

# CLI Flags and Environment Variables

	flag                      env                          default
	-p                        PORT                         3318
	-t                        STORE_TYPE                   memory
	-d                        STORE_URL                    (required unless memory)
	-nats                     NATS_URL
	-key                      BOARD_KEY                    app/state
	-size                     BOARD_SIZE                   6
	-seed                     SEED_FILE
	-write-mode               WRITE_MODE                   check-and-set
	-claim-once-per-device    CLAIM_ONCE_PER_DEVICE        true
	-claim-once-per-identity  CLAIM_ONCE_PER_IDENTITY      false
	-preserve-secrets         PRESERVE_SECRETS_ON_SHUFFLE  false
	-admin-password           ADMIN_PASSWORD               (required)
	                          CORS_ORIGINS                 *

CLI flags take precedence over environment variables. STORE_TYPE is one of
memory, sqlite, postgres or redis; STORE_URL is a file path or DSN for
sqlite, a postgres:// URL for postgres and a redis:// URL for redis.
CORS_ORIGINS is a comma-separated list.

# Seed File

SEED_FILE points at a YAML file describing a new board:

	size: 8
	secrets: [10, 20, 30, 40]

When secrets are listed they are dealt out instead of 1..N and size is
ignored. An explicit -size or BOARD_SIZE wins over the file's size. The seed
only applies when the store has no board yet.

# Validation

ParseFlags returns an error if:

  - ADMIN_PASSWORD is missing
  - STORE_URL is missing for a non-memory store
  - STORE_TYPE or WRITE_MODE is unknown
  - a number or boolean does not parse
  - the seed file cannot be read or holds a non-positive secret
*/
package cliparse
