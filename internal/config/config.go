package config

import (
	"fmt"
	"io/ioutil"

	"github.com/drakos74/free-bayes/internal/math/bayes"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration of the bayes binaries.
type Config struct {
	Model   Model   `yaml:"model" json:"model"`
	Server  Server  `yaml:"server" json:"server"`
	Storage Storage `yaml:"storage" json:"storage"`
	Log     Log     `yaml:"log" json:"log"`
	Demo    Demo    `yaml:"demo" json:"demo"`
}

// Model defines the prior and the noise of a bayesian linear model.
type Model struct {
	Name       string      `yaml:"name" json:"name"`
	Basis      string      `yaml:"basis" json:"basis"`
	Degree     int         `yaml:"degree" json:"degree"`
	Mean       []float64   `yaml:"mean" json:"mean"`
	Covariance [][]float64 `yaml:"covariance" json:"covariance"`
	Beta       float64     `yaml:"beta" json:"beta"`
	// Stdevs is the width of the prediction limits used for scoring.
	Stdevs float64 `yaml:"stdevs" json:"stdevs"`
}

type Server struct {
	Port  int  `yaml:"port" json:"port"`
	Debug bool `yaml:"debug" json:"debug"`
}

type Storage struct {
	Dir   string `yaml:"dir" json:"dir"`
	Table string `yaml:"table" json:"table"`
	// Void disables persistence.
	Void bool `yaml:"void" json:"void"`
	// Memory keeps the models in memory only.
	Memory bool `yaml:"memory" json:"memory"`
}

type Log struct {
	Level string `yaml:"level" json:"level"`
}

// Demo drives the synthetic data demonstration.
type Demo struct {
	Weights []float64 `yaml:"weights" json:"weights"`
	Sigma   float64   `yaml:"sigma" json:"sigma"`
	Seed    uint64    `yaml:"seed" json:"seed"`
	Batches []int     `yaml:"batches" json:"batches"`
	From    float64   `yaml:"from" json:"from"`
	To      float64   `yaml:"to" json:"to"`
	Grid    int       `yaml:"grid" json:"grid"`
	Samples int       `yaml:"samples" json:"samples"`
}

// Default returns the reference configuration,
// a linear model with prior N([0 0], 2I) and noise precision 25.
func Default() Config {
	return Config{
		Model: Model{
			Name:       "default",
			Basis:      bayes.LinearBasis,
			Mean:       []float64{0, 0},
			Covariance: [][]float64{{2, 0}, {0, 2}},
			Beta:       25,
			Stdevs:     2,
		},
		Server: Server{
			Port: 6090,
		},
		Storage: Storage{
			Dir:   "file-storage",
			Table: "bayes",
		},
		Log: Log{
			Level: zerolog.InfoLevel.String(),
		},
		Demo: Demo{
			Weights: []float64{-0.3, 0.5},
			Sigma:   0.2,
			Seed:    42,
			Batches: []int{1, 2, 20},
			From:    -1,
			To:      1,
			Grid:    9,
			Samples: 6,
		},
	}
}

// Load reads the yaml file at the given path on top of the default configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config '%s': %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the configuration can be used to build a model.
func (c Config) Validate() error {
	if _, err := c.Model.New(); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level '%s': %w", c.Log.Level, err)
	}
	if c.Demo.Sigma < 0 {
		return fmt.Errorf("negative demo noise %v", c.Demo.Sigma)
	}
	for _, b := range c.Demo.Batches {
		if b < 0 {
			return fmt.Errorf("negative demo batch size %d", b)
		}
	}
	return nil
}

// covariance returns the prior covariance as a matrix.
func (m Model) covariance() (mat.Matrix, error) {
	n := len(m.Covariance)
	if n == 0 {
		return nil, fmt.Errorf("empty covariance: %w", bayes.ShapeMismatchErr)
	}
	cov := mat.NewDense(n, n, nil)
	for i, row := range m.Covariance {
		if len(row) != n {
			return nil, fmt.Errorf("covariance row %d has length %d for %d rows: %w", i, len(row), n, bayes.ShapeMismatchErr)
		}
		cov.SetRow(i, row)
	}
	return cov, nil
}

// New builds a model from the configured prior.
func (m Model) New() (*bayes.Model, error) {
	basis, err := bayes.BasisFor(m.Basis, m.Degree)
	if err != nil {
		return nil, err
	}
	cov, err := m.covariance()
	if err != nil {
		return nil, err
	}
	return bayes.NewWithBasis(basis, m.Mean, cov, m.Beta)
}
