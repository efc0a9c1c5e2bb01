package pedpeel

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type Config struct {
	PedPath    string  `toml:"ped_path"`
	GenoPath   string  `toml:"geno_path"`
	FreqPath   string  `toml:"freq_path"`
	MapPath    string  `toml:"map_path"`
	OutPrefix  string  `toml:"out_prefix"`
	Linkage    string  `toml:"linkage"`
	Strict     bool    `toml:"strict"`
	SIMode     bool    `toml:"si_mode"`
	SampleFreq bool    `toml:"sample_freq"`
	SafeParse  bool    `toml:"safe_parse"`
	Seed       int     `toml:"seed"`
	Iterations int     `toml:"iterations"`
	Replicates int     `toml:"replicates"`
	NAlleles   int     `toml:"n_alleles"`
	Missing    float64 `toml:"missing"`
	LogLevel   string  `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		OutPrefix:  "pedpeel_out",
		Linkage:    "autosomal",
		Iterations: 1,
		Replicates: 1,
		NAlleles:   2,
		LogLevel:   "info",
	}
}

// LoadConfig reads a TOML file over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	e := c.Load(path)
	return c, e
}

// Load overwrites the fields present in a TOML file.
func (c *Config) Load(path string) error {
	if _, e := toml.DecodeFile(path, c); e != nil {
		return fmt.Errorf("LoadConfig: %v; %w", path, e)
	}
	return nil
}
