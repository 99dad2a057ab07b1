package main

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/fumin/transducer"
	"github.com/fumin/transducer/model"
	"github.com/fumin/transducer/seqtask"
)

// fileConfig is the YAML file read by the command.
type fileConfig struct {
	Search transducer.Config `yaml:"search"`
	Model  model.Config      `yaml:"model"`
	Task   seqtask.Config    `yaml:"task"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Search: transducer.DefaultConfig(),
		Model:  model.DefaultConfig(),
		Task:   seqtask.DefaultConfig(),
	}
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// resolve makes the three sections agree with each other. The task is
// generated for the blocks the searcher cuts, and the model decides the
// vocabulary.
func (c *fileConfig) resolve() error {
	c.Task.BlockSize = c.Search.BlockSize
	c.Task.MaxWidth = c.Search.MaxWidth
	c.Task.InputSize = c.Model.InputSize
	c.Search.VocabSize = c.Model.VocabSize

	if err := c.Search.Validate(); err != nil {
		return errors.WithMessage(err, "search")
	}
	if err := c.Model.Validate(); err != nil {
		return errors.WithMessage(err, "model")
	}
	if err := c.Task.Validate(); err != nil {
		return errors.WithMessage(err, "task")
	}
	for _, s := range c.Task.Symbols {
		if s < 0 || s >= c.Model.VocabSize {
			return errors.Errorf("task symbol %d outside the model vocabulary of %d", s, c.Model.VocabSize)
		}
		if s == c.Model.GoSymbol || s == c.Model.EndSymbol {
			return errors.Errorf("task symbol %d is reserved by the model", s)
		}
	}
	return nil
}

type options struct {
	config   string
	weights  string
	out      string
	examples int
	seed     int64
	workers  int
}

type exampleReport struct {
	Targets      []int   `json:"targets"`
	Generated    []int   `json:"generated_boundaries"`
	Markers      []int   `json:"markers"`
	BlockLengths []int   `json:"block_lengths"`
	Marked       []int   `json:"marked_targets"`
	LogProb      float64 `json:"log_prob"`
	Error        string  `json:"error,omitempty"`
}

type report struct {
	RunID    string           `json:"run_id"`
	Seed     int64            `json:"seed"`
	Config   fileConfig       `json:"config"`
	Examples []exampleReport  `json:"examples"`
	Stats    transducer.Stats `json:"stats"`
	Failed   int              `json:"failed"`
	Elapsed  time.Duration    `json:"elapsed"`
}

func buildModel(cfg model.Config, weights string, rng *rand.Rand) (*model.Transducer, error) {
	m, err := model.New(cfg)
	if err != nil {
		return nil, err
	}
	if weights == "" {
		m.RandomWeights(rng)
		return m, nil
	}
	f, err := os.Open(weights)
	if err != nil {
		return nil, errors.Wrapf(err, "opening weights %s", weights)
	}
	defer f.Close()
	if err := m.LoadWeights(f); err != nil {
		return nil, errors.WithMessagef(err, "loading weights %s", weights)
	}
	return m, nil
}

// runAlign generates the examples, aligns each of them and returns the report.
// Progress is drawn on progress; a failed example is recorded and skipped.
func runAlign(ctx context.Context, opts options, reg prometheus.Registerer, progress io.Writer) (*report, error) {
	cfg, err := loadFileConfig(opts.config)
	if err != nil {
		return nil, err
	}
	if opts.workers > 0 {
		cfg.Search.Workers = opts.workers
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.seed))
	m, err := buildModel(cfg.Model, opts.weights, rng)
	if err != nil {
		return nil, err
	}
	metrics, err := transducer.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	searcher, err := transducer.NewSearcher(cfg.Search, m, transducer.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	rep := &report{RunID: uuid.NewString(), Seed: opts.seed, Config: cfg}
	klog.V(1).Infof("run %s: %d examples, %d weights", rep.RunID, opts.examples, len(m.Weights()))
	bar := progressbar.NewOptions(opts.examples,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("aligning"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("examples"),
	)
	start := time.Now()
	for i := 0; i < opts.examples; i++ {
		ex := seqtask.GenExample(rng, cfg.Task)
		er := exampleReport{Targets: ex.Targets, Generated: ex.Boundaries()}
		res, err := searcher.Align(ctx, ex.Inputs, ex.Targets)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			klog.Warningf("example %d: %v", i, err)
			er.Error = err.Error()
			rep.Failed++
		} else {
			er.Markers = res.Markers
			er.BlockLengths = transducer.BlockLengths(res.Boundaries)
			er.Marked = transducer.InsertMarkers(ex.Targets, res.Boundaries, cfg.Model.EndSymbol)
			er.LogProb = res.LogProb
			rep.Stats.OracleCalls += res.Stats.OracleCalls
			rep.Stats.Candidates += res.Stats.Candidates
			rep.Stats.Pruned += res.Stats.Pruned
			klog.V(1).Infof("example %d: markers %v, log prob %.4f", i, res.Markers, res.LogProb)
		}
		rep.Examples = append(rep.Examples, er)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	rep.Elapsed = time.Since(start)
	return rep, nil
}

func writeReport(path string, rep *report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "writing report %s", path)
	}
	return nil
}
