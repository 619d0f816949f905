package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/drakos74/free-bayes/internal/config"
	coinmath "github.com/drakos74/free-bayes/internal/math"
	"github.com/drakos74/free-bayes/internal/math/bayes"
	"github.com/drakos74/free-bayes/internal/storage/file/json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Step is the state of the demonstration after one batch.
type Step struct {
	X       []float64   `json:"x"`
	T       []float64   `json:"t"`
	Score   bayes.Score `json:"score"`
	Mean    []float64   `json:"mean"`
	Cov     [][]float64 `json:"covariance"`
	Samples [][]float64 `json:"samples"`
}

// Result holds everything a plotting tool needs to draw the demonstration.
type Result struct {
	Weights []float64 `json:"weights"`
	Steps   []Step    `json:"steps"`
	Grid    []float64 `json:"grid"`
	Mean    []float64 `json:"mean"`
	Lower   []float64 `json:"lower"`
	Upper   []float64 `json:"upper"`
	Truth   []float64 `json:"truth"`
}

func demo(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "fit synthetic data from a known line batch by batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			result, err := runDemo(cfg)
			if err != nil {
				return err
			}
			render(cmd.OutOrStdout(), cfg, result)
			if out != "" {
				dir, file := filepath.Split(out)
				if dir == "" {
					dir = "."
				}
				if err := json.Save(dir, file, result); err != nil {
					return fmt.Errorf("could not save demo result: %w", err)
				}
				log.Info().Str("file", out).Msg("saved demo result")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "json file (without extension) for the demo result")
	return cmd
}

func runDemo(cfg config.Config) (Result, error) {
	model, err := cfg.Model.New()
	if err != nil {
		return Result{}, err
	}
	if len(cfg.Demo.Weights) != model.Dim() {
		return Result{}, fmt.Errorf("demo has %d weights for a model with %d: %w", len(cfg.Demo.Weights), model.Dim(), bayes.ShapeMismatchErr)
	}

	src := rand.NewSource(cfg.Demo.Seed)
	uniform := distuv.Uniform{
		Min: cfg.Demo.From,
		Max: cfg.Demo.To,
		Src: src,
	}

	result := Result{
		Weights: cfg.Demo.Weights,
		Steps:   make([]Step, 0, len(cfg.Demo.Batches)),
	}
	for _, n := range cfg.Demo.Batches {
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = uniform.Rand()
		}
		ts := coinmath.Line(cfg.Demo.Weights, xs, cfg.Demo.Sigma, src)

		score, err := model.Score(xs, ts, cfg.Model.Stdevs)
		if err != nil {
			return result, err
		}
		if err := model.Update(xs, ts); err != nil {
			return result, fmt.Errorf("could not update after %d observations: %w", model.Observations(), err)
		}
		samples, err := model.SampleWeights(cfg.Demo.Samples, src)
		if err != nil {
			return result, err
		}
		result.Steps = append(result.Steps, Step{
			X:       xs,
			T:       ts,
			Score:   score,
			Mean:    coinmath.Vector(model.Mean()),
			Cov:     coinmath.Rows(model.Covariance()),
			Samples: samples,
		})
		log.Debug().
			Int("batch", n).
			Int("observations", model.Observations()).
			Float64("coverage", score.Coverage).
			Msg("absorbed batch")
	}

	grid := []float64{cfg.Demo.From}
	if cfg.Demo.Grid > 1 {
		grid = coinmath.Series(cfg.Demo.From, (cfg.Demo.To-cfg.Demo.From)/float64(cfg.Demo.Grid-1), cfg.Demo.Grid)
	}
	result.Grid = grid
	result.Mean = model.PredictiveMean(grid)
	result.Lower = model.PredictionLimit(grid, -cfg.Model.Stdevs)
	result.Upper = model.PredictionLimit(grid, cfg.Model.Stdevs)
	result.Truth = make([]float64, len(grid))
	for i, x := range grid {
		result.Truth[i] = coinmath.Polynomial(cfg.Demo.Weights, x)
	}
	return result, nil
}

func render(w io.Writer, cfg config.Config, result Result) {
	posterior := table.NewWriter()
	posterior.SetOutputMirror(w)
	posterior.SetTitle("posterior")
	posterior.AppendHeader(table.Row{"observations", "mean", "covariance", "mse", "coverage"})
	var n int
	for _, step := range result.Steps {
		n += len(step.X)
		posterior.AppendRow(table.Row{
			n,
			coinmath.Formats(step.Mean),
			fmt.Sprintf("%v", step.Cov),
			coinmath.Format(step.Score.MSE),
			coinmath.Format(step.Score.Coverage),
		})
	}
	posterior.Render()

	limits := table.NewWriter()
	limits.SetOutputMirror(w)
	limits.SetTitle(fmt.Sprintf("prediction limits at %s stdevs", coinmath.Format(cfg.Model.Stdevs)))
	limits.AppendHeader(table.Row{"x", "lower", "mean", "upper", "truth"})
	for i, x := range result.Grid {
		limits.AppendRow(table.Row{
			coinmath.Format(x),
			coinmath.Format(result.Lower[i]),
			coinmath.Format(result.Mean[i]),
			coinmath.Format(result.Upper[i]),
			coinmath.Format(result.Truth[i]),
		})
	}
	limits.Render()
}
