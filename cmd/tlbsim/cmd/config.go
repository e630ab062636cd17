package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/tlbsim/mem/vm/tlb"
	"gopkg.in/yaml.v3"
)

// SimConfig describes a simulation run.
type SimConfig struct {
	NumCores    int        `yaml:"num_cores"`
	NumRequests int        `yaml:"num_requests"`
	NumPages    uint64     `yaml:"num_pages"`
	MaxInflight int        `yaml:"max_inflight"`
	WalkLatency uint64     `yaml:"walk_latency"`
	MaxCycles   uint64     `yaml:"max_cycles"`
	Seed        int64      `yaml:"seed"`
	L1          tlb.Config `yaml:"l1"`
	L2          tlb.Config `yaml:"l2"`
}

// DefaultSimConfig returns the configuration used when nothing is set.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		NumCores:    4,
		NumRequests: 10000,
		NumPages:    256,
		MaxInflight: 16,
		WalkLatency: 100,
		MaxCycles:   100000000,
		Seed:        1,
		L1:          tlb.DefaultL1Config(),
		L2:          tlb.DefaultL2Config(),
	}
}

// Validate reports the first field that is out of range.
func (c SimConfig) Validate() error {
	if c.NumCores <= 0 {
		return fmt.Errorf("number of cores must be positive, got %d", c.NumCores)
	}

	if c.NumRequests < 0 {
		return fmt.Errorf("number of requests must not be negative, got %d",
			c.NumRequests)
	}

	if c.NumPages == 0 {
		return fmt.Errorf("number of pages must be positive")
	}

	if c.MaxInflight <= 0 {
		return fmt.Errorf("max in-flight requests must be positive, got %d",
			c.MaxInflight)
	}

	if c.MaxCycles == 0 {
		return fmt.Errorf("max cycles must be positive")
	}

	if err := c.L1.Validate(); err != nil {
		return fmt.Errorf("invalid L1 TLB config: %w", err)
	}

	if err := c.L2.Validate(); err != nil {
		return fmt.Errorf("invalid L2 TLB config: %w", err)
	}

	if c.L1.PageSize != c.L2.PageSize {
		return fmt.Errorf("L1 page size %d differs from L2 page size %d",
			c.L1.PageSize, c.L2.PageSize)
	}

	return nil
}

// Environment variables that override the defaults. They can also be set in a
// .env file in the working directory.
const (
	envL1Config    = "TLBSIM_L1_CONFIG"
	envL2Config    = "TLBSIM_L2_CONFIG"
	envNumCores    = "TLBSIM_NUM_CORES"
	envNumRequests = "TLBSIM_NUM_REQUESTS"
)

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

func applyEnv(c *SimConfig) error {
	if s, ok := os.LookupEnv(envL1Config); ok {
		cfg, err := tlb.ParseConfigString(s)
		if err != nil {
			return fmt.Errorf("%s: %w", envL1Config, err)
		}

		c.L1 = cfg
	}

	if s, ok := os.LookupEnv(envL2Config); ok {
		cfg, err := tlb.ParseConfigString(s)
		if err != nil {
			return fmt.Errorf("%s: %w", envL2Config, err)
		}

		c.L2 = cfg
	}

	if s, ok := os.LookupEnv(envNumCores); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", envNumCores, err)
		}

		c.NumCores = n
	}

	if s, ok := os.LookupEnv(envNumRequests); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", envNumRequests, err)
		}

		c.NumRequests = n
	}

	return nil
}

func applyYAMLFile(c *SimConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	err = yaml.Unmarshal(data, c)
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return nil
}

// configSources lists where a configuration is read from. Later sources
// override earlier ones.
type configSources struct {
	dotEnvPath string
	configFile string
	l1String   string
	l2String   string
	numCores   int
	numReqs    int
}

func loadSimConfig(src configSources) (SimConfig, error) {
	c := DefaultSimConfig()

	if err := loadDotEnv(src.dotEnvPath); err != nil {
		return c, err
	}

	if err := applyEnv(&c); err != nil {
		return c, err
	}

	if src.configFile != "" {
		if err := applyYAMLFile(&c, src.configFile); err != nil {
			return c, err
		}
	}

	if src.l1String != "" {
		cfg, err := tlb.ParseConfigString(src.l1String)
		if err != nil {
			return c, fmt.Errorf("--l1: %w", err)
		}

		c.L1 = cfg
	}

	if src.l2String != "" {
		cfg, err := tlb.ParseConfigString(src.l2String)
		if err != nil {
			return c, fmt.Errorf("--l2: %w", err)
		}

		c.L2 = cfg
	}

	if src.numCores > 0 {
		c.NumCores = src.numCores
	}

	if src.numReqs > 0 {
		c.NumRequests = src.numReqs
	}

	return c, c.Validate()
}
