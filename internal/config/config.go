// Package config loads salesml settings from YAML.
//
// Every field has a default, so a missing file is not an error. Durations
// are written as Go duration strings such as "180s".
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mirzakinn/sales-prediction/automl"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
	"github.com/mirzakinn/sales-prediction/pkg/log"
)

// DefaultFiles are searched, in order, when Load is given no path.
var DefaultFiles = []string{"salesml.yaml", "salesml.yml", ".salesml.yaml"}

// Config is the full salesml configuration.
type Config struct {
	Search  Search  `yaml:"search"`
	Logging Logging `yaml:"logging"`
	Data    Data    `yaml:"data"`
	History History `yaml:"history"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// Search mirrors automl.Config.
type Search struct {
	Thresholds struct {
		LargeRows   int `yaml:"large_rows"`
		LargeCols   int `yaml:"large_cols"`
		HugeRows    int `yaml:"huge_rows"`
		HugeCols    int `yaml:"huge_cols"`
		MassiveRows int `yaml:"massive_rows"`
	} `yaml:"thresholds"`
	Policies           Policies `yaml:"policies"`
	Algorithms         []string `yaml:"algorithms"`
	SampleCap          int      `yaml:"sample_cap"`
	TestSampleFraction float64  `yaml:"test_sample_fraction"`
	TestSampleMax      int      `yaml:"test_sample_max"`
	Seed               uint64   `yaml:"seed"`
	EarlyRejectR2      float64  `yaml:"early_reject_r2"`
	EarlyStopR2        float64  `yaml:"early_stop_r2"`
	EarlyRuleMinTrials int      `yaml:"early_rule_min_trials"`
	MaxWorkers         int      `yaml:"max_workers"`
}

// Policy is the YAML form of automl.TierPolicy.
type Policy struct {
	Grid    string        `yaml:"grid"`
	CVFolds int           `yaml:"cv_folds"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxAlgorithmsTried caps attempts of any outcome: failed, timed-out
	// and rejected attempts use up the budget like retained ones.
	MaxAlgorithmsTried int  `yaml:"max_algorithms_tried"`
	RefitOnFull        bool `yaml:"refit_on_full"`
}

// Policies maps tier names to their policy.
type Policies map[string]Policy

// UnmarshalYAML overlays each entry onto the tier's current policy, so
// fields an entry leaves out keep their defaults.
func (ps *Policies) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.NewValidationError("search.policies", "must be a mapping of tier to policy", node.Value)
	}
	if *ps == nil {
		*ps = make(Policies)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := strings.ToLower(node.Content[i].Value)
		p := (*ps)[name]
		if err := node.Content[i+1].Decode(&p); err != nil {
			return errors.Wrapf(err, "search.policies.%s", name)
		}
		(*ps)[name] = p
	}
	return nil
}

// Logging selects the log level and output format.
type Logging struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Missing-value policies.
const (
	MissingDrop = "drop"
	MissingFail = "fail"
)

// Scalers.
const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
	ScalerNone     = "none"
)

// Data controls how a CSV file becomes train and test matrices.
type Data struct {
	TestSize float64 `yaml:"test_size"`
	Seed     uint64  `yaml:"seed"`
	Scaler   string  `yaml:"scaler"`
	Missing  string  `yaml:"missing"`
}

// History points at the run ledger. An empty path disables it.
type History struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	sc := automl.DefaultConfig()
	cfg := &Config{
		Logging: Logging{Level: "info"},
		Data: Data{
			TestSize: 0.2,
			Seed:     42,
			Scaler:   ScalerStandard,
			Missing:  MissingDrop,
		},
		History: History{Path: "salesml.db"},
	}
	s := &cfg.Search
	s.Thresholds.LargeRows = sc.Thresholds.LargeRows
	s.Thresholds.LargeCols = sc.Thresholds.LargeCols
	s.Thresholds.HugeRows = sc.Thresholds.HugeRows
	s.Thresholds.HugeCols = sc.Thresholds.HugeCols
	s.Thresholds.MassiveRows = sc.Thresholds.MassiveRows
	s.Policies = make(map[string]Policy, len(sc.Policies))
	for tier, p := range sc.Policies {
		s.Policies[tier.String()] = Policy{
			Grid:               string(p.Grid),
			CVFolds:            p.CVFolds,
			Timeout:            p.Timeout,
			MaxAlgorithmsTried: p.MaxAlgorithmsTried,
			RefitOnFull:        p.RefitOnFull,
		}
	}
	for _, alg := range sc.Order {
		s.Algorithms = append(s.Algorithms, string(alg))
	}
	s.SampleCap = sc.SampleCap
	s.TestSampleFraction = sc.TestSampleFraction
	s.TestSampleMax = sc.TestSampleMax
	s.Seed = sc.Seed
	s.EarlyRejectR2 = sc.EarlyRejectR2
	s.EarlyStopR2 = sc.EarlyStopR2
	s.EarlyRuleMinTrials = sc.EarlyRuleMinTrials
	return cfg
}

// Load reads path over the defaults. With an empty path the DefaultFiles
// are tried in order and the defaults are returned when none exists.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		data = b
	} else {
		for _, name := range DefaultFiles {
			b, err := os.ReadFile(name)
			if err == nil {
				data, path = b, name
				break
			}
		}
		if data == nil {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks the data and logging sections and that the search
// section maps onto a valid automl.Config.
func (c *Config) Validate() error {
	if c.Data.TestSize <= 0 || c.Data.TestSize >= 1 {
		return errors.NewValidationError("data.test_size", "must be in (0, 1)", c.Data.TestSize)
	}
	switch c.Data.Scaler {
	case ScalerStandard, ScalerMinMax, ScalerNone:
	default:
		return errors.NewValidationError("data.scaler", "must be standard, minmax or none", c.Data.Scaler)
	}
	switch c.Data.Missing {
	case MissingDrop, MissingFail:
	default:
		return errors.NewValidationError("data.missing", "must be drop or fail", c.Data.Missing)
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	sc, err := c.SearchConfig()
	if err != nil {
		return err
	}
	return sc.Validate()
}

// SearchConfig converts the search section. Tiers missing from the YAML
// keep their default policy.
func (c *Config) SearchConfig() (automl.Config, error) {
	sc := automl.DefaultConfig()
	s := c.Search
	sc.Thresholds = automl.Thresholds{
		LargeRows:   s.Thresholds.LargeRows,
		LargeCols:   s.Thresholds.LargeCols,
		HugeRows:    s.Thresholds.HugeRows,
		HugeCols:    s.Thresholds.HugeCols,
		MassiveRows: s.Thresholds.MassiveRows,
	}
	for name, p := range s.Policies {
		tier, err := automl.ParseSizeTier(strings.ToLower(name))
		if err != nil {
			return automl.Config{}, err
		}
		sc.Policies[tier] = automl.TierPolicy{
			Grid:               automl.GridTier(p.Grid),
			CVFolds:            p.CVFolds,
			Timeout:            p.Timeout,
			MaxAlgorithmsTried: p.MaxAlgorithmsTried,
			RefitOnFull:        p.RefitOnFull,
		}
	}
	if len(s.Algorithms) > 0 {
		sc.Order = sc.Order[:0]
		for _, name := range s.Algorithms {
			sc.Order = append(sc.Order, automl.Algorithm(strings.ToLower(name)))
		}
	}
	sc.SampleCap = s.SampleCap
	sc.TestSampleFraction = s.TestSampleFraction
	sc.TestSampleMax = s.TestSampleMax
	sc.Seed = s.Seed
	sc.EarlyRejectR2 = s.EarlyRejectR2
	sc.EarlyStopR2 = s.EarlyStopR2
	sc.EarlyRuleMinTrials = s.EarlyRuleMinTrials
	sc.MaxWorkers = s.MaxWorkers
	return sc, nil
}
