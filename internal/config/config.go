// Package config loads and validates the cluster configuration for repstore.
// Configuration is fixed at initialization and never reloaded at runtime.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults for any field left unset.
const (
	DefaultReplicationFactor  = 4
	DefaultFailureProbability = 0.15
	DefaultTickInterval       = 5 * time.Second
	DefaultListenAddr         = ":8080"
)

// NodeSpec describes one storage node at cluster initialization.
// Nodes cannot be added or removed after startup.
type NodeSpec struct {
	ID         string  `yaml:"id"`
	CapacityMB float64 `yaml:"capacityMB"`
}

// Config is the full cluster configuration.
//
// Seed controls the random source used for health transitions; a zero seed
// means the cluster seeds itself from the wall clock at startup. Tests set a
// nonzero seed for reproducible failure injection.
type Config struct {
	Listen             string        `yaml:"listen"`
	Nodes              []NodeSpec    `yaml:"nodes"`
	ReplicationFactor  int           `yaml:"replicationFactor"`
	FailureProbability float64       `yaml:"failureProbability"`
	TickInterval       time.Duration `yaml:"tickInterval"`
	Seed               int64         `yaml:"seed"`
}

// Validation errors returned by Validate.
var (
	ErrNodesMissing              = errors.New("no nodes defined in config")
	ErrNodeIDEmpty               = errors.New("node id cannot be empty")
	ErrDuplicateNodeID           = errors.New("duplicate node id in config - each node must have a unique id")
	ErrCapacityNotPositive       = errors.New("node capacityMB must be positive")
	ErrReplicationFactorTooSmall = errors.New("replicationFactor must be at least 1")
	ErrFailureProbabilityInvalid = errors.New("failureProbability must be in [0, 1]")
	ErrTickIntervalNotPositive   = errors.New("tickInterval must be positive")
)

// Default returns a runnable configuration with a six-node cluster.
// Used by cmd/repstored when no config file is given.
func Default() Config {
	cfg := Config{
		Nodes: []NodeSpec{
			{ID: "node-1", CapacityMB: 10000},
			{ID: "node-2", CapacityMB: 15000},
			{ID: "node-3", CapacityMB: 20000},
			{ID: "node-4", CapacityMB: 12000},
			{ID: "node-5", CapacityMB: 18000},
			{ID: "node-6", CapacityMB: 25000},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads a YAML configuration file, applies defaults, and validates it.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyDefaults fills in zero-valued fields with the package defaults.
// The node list is never defaulted here; an empty list is a validation error.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListenAddr
	}
	if c.ReplicationFactor == 0 {
		c.ReplicationFactor = DefaultReplicationFactor
	}
	if c.FailureProbability == 0 {
		c.FailureProbability = DefaultFailureProbability
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
}

// Validate checks the configuration for internal consistency.
// Call after ApplyDefaults; zero values for defaulted fields are rejected.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return ErrNodesMissing
	}

	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.ID == "" {
			return ErrNodeIDEmpty
		}
		if seen[n.ID] {
			return errors.Wrap(ErrDuplicateNodeID, n.ID)
		}
		seen[n.ID] = true
		if n.CapacityMB <= 0 {
			return errors.Wrap(ErrCapacityNotPositive, n.ID)
		}
	}

	if c.ReplicationFactor < 1 {
		return ErrReplicationFactorTooSmall
	}
	if c.FailureProbability < 0 || c.FailureProbability > 1 {
		return ErrFailureProbabilityInvalid
	}
	if c.TickInterval <= 0 {
		return ErrTickIntervalNotPositive
	}
	return nil
}
