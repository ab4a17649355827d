package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

// ConfigSnapshot pins the effective configuration of a run. Secrets are
// only kept as a hash.
type ConfigSnapshot struct {
	Environment string            `json:"environment"`
	Version     string            `json:"version"`
	ConfigHash  string            `json:"config_hash"`
	SecretsHash string            `json:"secrets_hash"`
	Timestamp   int64             `json:"timestamp"`
	Values      map[string]string `json:"values"`
}

// Snapshot hashes the non-secret values and the secrets separately
func (c *Config) Snapshot(version string) *ConfigSnapshot {
	values := map[string]string{
		"log_level":        c.LogLevel,
		"strategies_file":  c.StrategiesFile,
		"starting_capital": strconv.FormatFloat(c.Engine.StartingCapital, 'f', -1, 64),
		"window_size":      strconv.Itoa(c.Engine.WindowSize),
		"workers":          strconv.Itoa(c.Engine.MaxWorkers),
		"ledger_driver":    c.Ledger.Driver,
		"feed":             c.Feed.Kind,
		"symbols":          strings.Join(c.Feed.Symbols, ","),
		"poll_interval":    c.Feed.PollInterval.String(),
		"market":           c.Feed.Market,
		"broker_url":       c.Broker.BaseURL,
	}
	secrets := map[string]string{
		"alpaca_api_key":     c.Broker.APIKey,
		"alpaca_secret_key":  c.Broker.SecretKey,
		"twelvedata_api_key": c.Feed.TwelveData,
		"clickhouse_dsn":     c.ClickHouse.DSN,
	}
	configBytes, _ := json.Marshal(values)
	secretsBytes, _ := json.Marshal(secrets)

	return &ConfigSnapshot{
		Environment: c.Environment,
		Version:     version,
		ConfigHash:  fmt.Sprintf("%x", sha256.Sum256(configBytes)),
		SecretsHash: fmt.Sprintf("%x", sha256.Sum256(secretsBytes)),
		Timestamp:   time.Now().UnixMilli(),
		Values:      values,
	}
}

// RunManifest ties a backtest result to its inputs
type RunManifest struct {
	RunID          string          `json:"run_id"`
	Strategy       string          `json:"strategy"`
	ConfigSnapshot *ConfigSnapshot `json:"config_snapshot"`
	DataChecksum   string          `json:"data_checksum"`
	StrategyHash   string          `json:"strategy_hash"`
	CreatedAt      int64           `json:"created_at"`
}

func NewRunManifest(snap *ConfigSnapshot, r engine.RunResult) RunManifest {
	return RunManifest{
		RunID:          r.RunID,
		Strategy:       r.Name,
		ConfigSnapshot: snap,
		DataChecksum:   r.DataChecksum,
		StrategyHash:   r.RulesFingerprint,
		CreatedAt:      time.Now().UnixMilli(),
	}
}

// SimConfig maps the engine settings onto a simulator configuration
func (c *Config) SimConfig() engine.SimConfig {
	sc := engine.DefaultSimConfig()
	sc.StartingCapital = c.Engine.StartingCapital
	sc.WindowSize = c.Engine.WindowSize
	sc.Workers = c.Engine.MaxWorkers
	return sc
}
