// Package seqtask generates synthetic sequences to align: noisy input frames
// cut into blocks, and a target sequence short enough for the blocks to emit.
package seqtask

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Config describes the generated examples.
type Config struct {
	Blocks    int `json:"blocks" yaml:"blocks"`
	BlockSize int `json:"block_size" yaml:"block_size"`
	InputSize int `json:"input_size" yaml:"input_size"`
	MaxWidth  int `json:"max_width" yaml:"max_width"`

	// Symbols are the symbols targets are drawn from.
	Symbols []int `json:"symbols" yaml:"symbols"`
}

func DefaultConfig() Config {
	return Config{
		Blocks:    4,
		BlockSize: 3,
		InputSize: 1,
		MaxWidth:  2,
		Symbols:   []int{0, 1},
	}
}

func (c Config) Validate() error {
	if c.Blocks <= 0 || c.BlockSize <= 0 || c.InputSize <= 0 || c.MaxWidth <= 0 {
		return errors.Errorf("blocks, block_size, input_size and max_width must be positive: %+v", c)
	}
	if len(c.Symbols) == 0 {
		return errors.New("no target symbols")
	}
	return nil
}

// Example is one sequence pair to align.
type Example struct {
	Inputs  [][]float64
	Targets []int

	// Widths is the number of targets every block was generated with.
	Widths []int
}

// GenExample draws the number of targets every block emits, the targets
// themselves, and input frames that carry a noisy trace of the targets of
// their block.
func GenExample(rng *rand.Rand, cfg Config) Example {
	ex := Example{
		Inputs: make([][]float64, cfg.Blocks*cfg.BlockSize),
		Widths: make([]int, cfg.Blocks),
	}
	for b := range ex.Widths {
		w := rng.Intn(cfg.MaxWidth + 1)
		ex.Widths[b] = w
		block := make([]int, w)
		for i := range block {
			block[i] = cfg.Symbols[rng.Intn(len(cfg.Symbols))]
		}
		ex.Targets = append(ex.Targets, block...)

		for t := 0; t < cfg.BlockSize; t++ {
			frame := make([]float64, cfg.InputSize)
			for j := range frame {
				frame[j] = 0.1 * rng.NormFloat64()
			}
			if t < w {
				frame[block[t]%cfg.InputSize] += 1 + float64(block[t])
			}
			ex.Inputs[b*cfg.BlockSize+t] = frame
		}
	}
	return ex
}

// Boundaries returns the block boundaries the example was generated with.
func (ex Example) Boundaries() []int {
	b := make([]int, len(ex.Widths))
	x := 0
	for i, w := range ex.Widths {
		x += w
		b[i] = x
	}
	return b
}
