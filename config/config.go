// Package config loads the cache and machine parameters of a simulation from
// JSON files and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/sarchlab/dirsim/coherence"
	"github.com/sarchlab/dirsim/controller"
)

// The values of the informational keys that the simulator supports.
const (
	ProtocolMSI           = "MSI"
	InterconnectDirectory = "Directory"
)

// The environment variables that override the configuration.
const (
	EnvNumSets       = "DIRSIM_NUM_SETS"
	EnvAssociativity = "DIRSIM_ASSOCIATIVITY"
	EnvLineSize      = "DIRSIM_LINE_SIZE"
	EnvNumProcessors = "DIRSIM_PROCESSORS"
	EnvDetector      = "DIRSIM_DETECTOR"
)

// Config describes the simulated machine.
type Config struct {
	NumSets       uint64 `json:"Number of sets"`
	Associativity int    `json:"Associativity"`
	LineSize      uint64 `json:"Line size"`
	NumProcessors uint32 `json:"Total processors"`
	Detector      bool   `json:"Detector"`

	Protocol      string `json:"Cache coherence protocol,omitempty"`
	Interconnect  string `json:"Interconnection,omitempty"`
	WriteStrategy string `json:"Write strategy,omitempty"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		NumSets:       64,
		Associativity: 4,
		LineSize:      64,
		NumProcessors: 4,
		Protocol:      ProtocolMSI,
		Interconnect:  InterconnectDirectory,
	}
}

// Load reads a JSON configuration file. Missing keys keep their default
// values.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}

	return c, nil
}

// LoadDotEnv loads environment variables from the given files, or from .env
// if no file is given. Missing files are ignored. Variables that are already
// set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		err := godotenv.Load(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

// ApplyEnv returns a copy of the configuration with the DIRSIM_* environment
// variables applied.
func (c Config) ApplyEnv() (Config, error) {
	var err error

	if c.NumSets, err = envUint(EnvNumSets, c.NumSets, 64); err != nil {
		return c, err
	}

	if c.LineSize, err = envUint(EnvLineSize, c.LineSize, 64); err != nil {
		return c, err
	}

	assoc, err := envInt(EnvAssociativity, int64(c.Associativity), strconv.IntSize)
	if err != nil {
		return c, err
	}
	c.Associativity = int(assoc)

	np, err := envUint(EnvNumProcessors, uint64(c.NumProcessors), 32)
	if err != nil {
		return c, err
	}
	c.NumProcessors = uint32(np)

	if v, ok := os.LookupEnv(EnvDetector); ok {
		c.Detector, err = strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvDetector, err)
		}
	}

	return c, nil
}

// envUint parses the variable name as an unsigned integer that must fit in
// bitSize bits. Values out of range are errors, never truncated.
func envUint(name string, fallback uint64, bitSize int) (uint64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}

	n, err := strconv.ParseUint(strings.TrimSpace(v), 0, bitSize)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", name, err)
	}

	return n, nil
}

func envInt(name string, fallback int64, bitSize int) (int64, error) {
	v, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}

	n, err := strconv.ParseInt(strings.TrimSpace(v), 0, bitSize)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", name, err)
	}

	return n, nil
}

// Validate checks that the configuration describes a machine that can be
// simulated.
func (c Config) Validate() error {
	if err := controller.MustBePowerOfTwo("number of sets", c.NumSets); err != nil {
		return err
	}

	if err := controller.MustBePowerOfTwo("line size", c.LineSize); err != nil {
		return err
	}

	err := controller.MustBePowerOfTwo(
		"number of processors", uint64(c.NumProcessors))
	if err != nil {
		return err
	}

	if c.NumProcessors > coherence.MaxProcessors {
		return fmt.Errorf("number of processors %d exceeds %d",
			c.NumProcessors, coherence.MaxProcessors)
	}

	if c.Associativity <= 0 {
		return fmt.Errorf("associativity %d must be positive", c.Associativity)
	}

	if c.Protocol != "" && c.Protocol != ProtocolMSI {
		return fmt.Errorf("coherence protocol %q is not supported", c.Protocol)
	}

	if c.Interconnect != "" && c.Interconnect != InterconnectDirectory {
		return fmt.Errorf("interconnection %q is not supported", c.Interconnect)
	}

	return nil
}

// Builder returns a controller builder set up with the configuration.
func (c Config) Builder() controller.Builder {
	return controller.MakeBuilder().
		WithNumProcessors(c.NumProcessors).
		WithNumSets(c.NumSets).
		WithLineSize(c.LineSize).
		WithAssociativity(c.Associativity).
		WithDetector(c.Detector)
}

// String prints the configuration in a human readable form.
func (c Config) String() string {
	b := new(strings.Builder)

	writeStrategy := c.WriteStrategy
	if writeStrategy == "" {
		writeStrategy = "NONE"
	}

	fmt.Fprintf(b, "L1:\n")
	fmt.Fprintf(b, "      number of set: %d\n", c.NumSets)
	fmt.Fprintf(b, "      associativity: %d\n", c.Associativity)
	fmt.Fprintf(b, "          line size: %d\n", c.LineSize)
	fmt.Fprintf(b, "     write_strategy: %s\n", writeStrategy)
	fmt.Fprintf(b, "          coherence: %s\n", ProtocolMSI)
	fmt.Fprintf(b, "       interconnect: %s\n", InterconnectDirectory)
	fmt.Fprintf(b, "\n    Processors:          %d\n", c.NumProcessors)
	fmt.Fprintf(b, "    Detector:            %t\n", c.Detector)

	return b.String()
}
