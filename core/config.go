/* config.go
 * Contains environment-backed configuration for the settlement core.
 * Values load from the process environment, with a local .env file
 * picked up when present.
 */

package core

import (
	"fmt"
	"os"
	"time"

	"settlement-core/core/bracket"
	"settlement-core/core/vrf"

	"github.com/joho/godotenv"
)

// Config carries everything needed to wire a settlement core
type Config struct {
	// DatabaseName is the mongo database holding audit chains and
	// tournaments
	DatabaseName string
	// MongoURI is the mongo connection string
	MongoURI string
	// SigningSecret keys the HMAC signatures on audit entries and must
	// stay stable for the life of the chains
	SigningSecret string
	// Resolver tunes randomness resolution timing
	Resolver vrf.Config
	// Bracket tunes settlement payouts and caps
	Bracket bracket.Config
	// Retention maps audit categories to their retention windows;
	// categories without an entry are kept forever
	Retention map[string]time.Duration
}

// LoadConfig reads configuration from the environment. A .env file in
// the working directory is loaded first when one exists.
// Postconditions: Returns a config with the signing secret and mongo
// URI populated, or an error naming the missing variable
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseName:  os.Getenv("SETTLEMENT_DB_NAME"),
		MongoURI:      os.Getenv("MONGO_URI"),
		SigningSecret: os.Getenv("SETTLEMENT_SIGNING_SECRET"),
	}
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = "settlement"
	}
	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is not set")
	}
	if cfg.SigningSecret == "" {
		return Config{}, fmt.Errorf("SETTLEMENT_SIGNING_SECRET is not set")
	}

	durations := map[string]*time.Duration{
		"VRF_MIN_RESOLUTION_DELAY": &cfg.Resolver.MinResolutionDelay,
		"VRF_MAX_RESOLUTION_DELAY": &cfg.Resolver.MaxResolutionDelay,
		"VRF_POLL_INTERVAL":        &cfg.Resolver.PollInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
	}
	return cfg, nil
}
