package tlb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/tlbsim/mem/vm"
	"github.com/sarchlab/tlbsim/mem/vm/tlb/internal/tagging"
)

// Policy selects which valid entry a set evicts on a miss.
type Policy int

// A list of all replacement policies.
const (
	LRU Policy = iota
	FIFO
)

// ParsePolicy converts a policy token into a Policy. Both the one-letter form
// (L, F) and the full name (LRU, FIFO) are accepted.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LRU":
		return LRU, nil
	case "F", "FIFO":
		return FIFO, nil
	default:
		return 0, fmt.Errorf("unknown replacement policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case FIFO:
		return "FIFO"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// MarshalText encodes the policy as its name.
func (p Policy) MarshalText() ([]byte, error) {
	if p != LRU && p != FIFO {
		return nil, fmt.Errorf("unknown replacement policy %d", int(p))
	}

	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy token.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

func (p Policy) victimFinder() tagging.VictimFinder {
	if p == FIFO {
		return tagging.NewFIFOVictimFinder()
	}

	return tagging.NewLRUVictimFinder()
}

// Config holds the tunables of one TLB level.
type Config struct {
	PageSize      uint64 `yaml:"page_size"`
	NumSets       int    `yaml:"num_sets"`
	NumWays       int    `yaml:"num_ways"`
	Latency       uint64 `yaml:"latency"`
	Policy        Policy `yaml:"policy"`
	MSHRLines     int    `yaml:"mshr_lines"`
	MSHRTargets   int    `yaml:"mshr_targets"`
	MissQueueSize int    `yaml:"miss_queue_size"`
	PortCount     int    `yaml:"port_count"`
}

// DefaultL1Config returns the configuration of a small per-core TLB.
func DefaultL1Config() Config {
	return Config{
		PageSize:      4096,
		NumSets:       8,
		NumWays:       4,
		Latency:       1,
		Policy:        LRU,
		MSHRLines:     8,
		MSHRTargets:   4,
		MissQueueSize: 8,
		PortCount:     2,
	}
}

// DefaultL2Config returns the configuration of a shared TLB.
func DefaultL2Config() Config {
	return Config{
		PageSize:      4096,
		NumSets:       64,
		NumWays:       8,
		Latency:       10,
		Policy:        LRU,
		MSHRLines:     32,
		MSHRTargets:   8,
		MissQueueSize: 16,
		PortCount:     4,
	}
}

// Validate reports the first tunable that is out of range.
func (c Config) Validate() error {
	if c.PageSize < 2 {
		return fmt.Errorf("page size must be at least 2, got %d", c.PageSize)
	}

	if _, err := vm.NewPageAddressDecoder(c.PageSize, uint64(max(c.NumSets, 1))); err != nil {
		return err
	}

	positives := []struct {
		name  string
		value int
	}{
		{"number of sets", c.NumSets},
		{"number of ways", c.NumWays},
		{"number of mshr lines", c.MSHRLines},
		{"number of mshr targets", c.MSHRTargets},
		{"miss queue size", c.MissQueueSize},
		{"port count", c.PortCount},
	}

	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	if c.Latency == 0 {
		return fmt.Errorf("latency must be positive")
	}

	if c.Policy != LRU && c.Policy != FIFO {
		return fmt.Errorf("unknown replacement policy %d", int(c.Policy))
	}

	return nil
}

const numConfigFields = 9

// ParseConfigString parses the colon separated form
// pageSize:sets:ways:latency:policy:mshrLines:mshrTargets:missQueue:ports,
// for example 4096:8:4:1:L:8:4:8:2.
func ParseConfigString(s string) (Config, error) {
	fields := strings.Split(strings.TrimSpace(s), ":")
	if len(fields) != numConfigFields {
		return Config{}, fmt.Errorf(
			"tlb configuration parsing error (%s): expecting %d fields, got %d",
			s, numConfigFields, len(fields))
	}

	var c Config

	numbers := make([]uint64, 0, numConfigFields-1)

	for i, f := range fields {
		if i == 4 {
			policy, err := ParsePolicy(f)
			if err != nil {
				return Config{}, fmt.Errorf(
					"tlb configuration parsing error (%s): %w", s, err)
			}

			c.Policy = policy

			continue
		}

		n, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf(
				"tlb configuration parsing error (%s): field %d: %w", s, i, err)
		}

		numbers = append(numbers, n)
	}

	c.PageSize = numbers[0]
	c.NumSets = int(numbers[1])
	c.NumWays = int(numbers[2])
	c.Latency = numbers[3]
	c.MSHRLines = int(numbers[4])
	c.MSHRTargets = int(numbers[5])
	c.MissQueueSize = int(numbers[6])
	c.PortCount = int(numbers[7])

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf(
			"tlb configuration parsing error (%s): %w", s, err)
	}

	return c, nil
}

// String formats the config in the colon separated form.
func (c Config) String() string {
	return fmt.Sprintf("%d:%d:%d:%d:%s:%d:%d:%d:%d",
		c.PageSize, c.NumSets, c.NumWays, c.Latency, c.Policy.String()[:1],
		c.MSHRLines, c.MSHRTargets, c.MissQueueSize, c.PortCount)
}
