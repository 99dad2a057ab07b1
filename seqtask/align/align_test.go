package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumin/transducer/model"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunAlign(t *testing.T) {
	config := writeFile(t, "align.yaml", `
search:
  block_size: 3
  max_width: 2
  workers: 2
task:
  blocks: 4
  symbols: [0, 1]
`)
	reg := prometheus.NewRegistry()
	opts := options{config: config, examples: 5, seed: 3}
	rep, err := runAlign(context.Background(), opts, reg, io.Discard)
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 0, rep.Failed)
	require.Len(t, rep.Examples, 5)
	for _, ex := range rep.Examples {
		assert.Len(t, ex.Markers, 3)
		assert.Len(t, ex.BlockLengths, 4)
		assert.Len(t, ex.Marked, len(ex.Targets)+4)
		assert.LessOrEqual(t, ex.LogProb, 0.0)
	}
	assert.Greater(t, rep.Stats.OracleCalls, 0)
	expected := `
# HELP transducer_alignment_searches_total Alignment searches by outcome.
# TYPE transducer_alignment_searches_total counter
transducer_alignment_searches_total{outcome="ok"} 5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "transducer_alignment_searches_total"))

	// The same seed aligns the same examples.
	again, err := runAlign(context.Background(), opts, prometheus.NewRegistry(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, rep.Examples, again.Examples)
	assert.NotEqual(t, rep.RunID, again.RunID)

	out := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReport(out, rep))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, rep.Examples, decoded.Examples)
}

func TestRunAlignWeights(t *testing.T) {
	m, err := model.New(model.DefaultConfig())
	require.NoError(t, err)
	m.RandomWeights(rand.New(rand.NewSource(9)))
	var buf bytes.Buffer
	require.NoError(t, m.SaveWeights(&buf))
	weights := writeFile(t, "weights.json", buf.String())

	rep, err := runAlign(context.Background(), options{weights: weights, examples: 2, seed: 1}, nil, io.Discard)
	require.NoError(t, err)
	assert.Len(t, rep.Examples, 2)

	_, err = runAlign(context.Background(), options{weights: writeFile(t, "bad.json", "[1]"), examples: 1}, nil, io.Discard)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	cfg := defaultFileConfig()
	require.NoError(t, cfg.resolve())
	assert.Equal(t, cfg.Model.VocabSize, cfg.Search.VocabSize)
	assert.Equal(t, cfg.Search.BlockSize, cfg.Task.BlockSize)

	cfg = defaultFileConfig()
	cfg.Task.Symbols = []int{cfg.Model.EndSymbol}
	assert.Error(t, cfg.resolve())

	cfg = defaultFileConfig()
	cfg.Task.Symbols = []int{cfg.Model.VocabSize}
	assert.Error(t, cfg.resolve())

	_, err := loadFileConfig(writeFile(t, "bad.yaml", "search: ["))
	assert.Error(t, err)
}
