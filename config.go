package transducer

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the parameters of one alignment search.
// It is passed to NewSearcher explicitly; there is no process-wide state.
type Config struct {
	// BlockSize is the number of input frames per block. The input length
	// must be a multiple of it.
	BlockSize int `json:"block_size" yaml:"block_size"`

	// MaxWidth is the maximum number of target symbols a block may emit,
	// not counting the end-of-block symbol.
	MaxWidth int `json:"max_width" yaml:"max_width"`

	// MinWidth is the minimum number of target symbols a block must emit.
	MinWidth int `json:"min_width" yaml:"min_width"`

	// VocabSize is the expected width of every output distribution.
	// Zero disables the check.
	VocabSize int `json:"vocab_size" yaml:"vocab_size"`

	// Workers bounds the number of concurrent oracle calls within a block.
	// Values below 2 score candidates sequentially.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns blocks of 3 frames emitting at most 2 symbols each
// over a vocabulary of 4.
func DefaultConfig() Config {
	return Config{
		BlockSize: 3,
		MaxWidth:  2,
		VocabSize: 4,
		Workers:   1,
	}
}

// Validate reports configuration values no search could run with.
func (c Config) Validate() error {
	if c.BlockSize <= 0 {
		return errors.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.MaxWidth <= 0 {
		return errors.Errorf("max_width must be positive, got %d", c.MaxWidth)
	}
	if c.MinWidth < 0 || c.MinWidth > c.MaxWidth {
		return errors.Errorf("min_width must be within [0, max_width=%d], got %d", c.MaxWidth, c.MinWidth)
	}
	if c.VocabSize < 0 {
		return errors.Errorf("vocab_size must not be negative, got %d", c.VocabSize)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.WithMessagef(err, "config %q", path)
	}
	return cfg, nil
}
