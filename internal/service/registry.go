package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/drakos74/free-bayes/internal/buffer"
	"github.com/drakos74/free-bayes/internal/config"
	coinmath "github.com/drakos74/free-bayes/internal/math"
	"github.com/drakos74/free-bayes/internal/math/bayes"
	"github.com/drakos74/free-bayes/internal/metrics"
	"github.com/drakos74/free-bayes/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const (
	label = "model"

	mse      = "mse"
	z        = "z"
	coverage = "coverage"
)

var UnknownModelErr = errors.New("unknown model")

// entry is a model together with its scoring state.
// Updates take the write lock, everything else shares the read lock.
type entry struct {
	mutex     *sync.RWMutex
	id        string
	name      string
	created   time.Time
	stdevs    float64
	model     *bayes.Model
	batches   *buffer.StatsCollector
	residuals *buffer.Stats
}

func newEntry(id, name string, created time.Time, stdevs float64, model *bayes.Model) *entry {
	return &entry{
		mutex:     new(sync.RWMutex),
		id:        id,
		name:      name,
		created:   created,
		stdevs:    stdevs,
		model:     model,
		batches:   buffer.NewStatsCollector(mse, z, coverage),
		residuals: buffer.NewStats(),
	}
}

func (e *entry) info() Info {
	return Info{
		ID:           e.id,
		Name:         e.name,
		Basis:        e.model.Basis().Name(),
		Created:      e.created,
		Observations: e.model.Observations(),
	}
}

func (e *entry) posterior() Posterior {
	return Posterior{
		Info:       e.info(),
		Beta:       e.model.Beta(),
		Mean:       coinmath.Vector(e.model.Mean()),
		Covariance: coinmath.Rows(e.model.Covariance()),
	}
}

func (e *entry) record() record {
	return record{
		ID:       e.id,
		Name:     e.name,
		Stdevs:   e.stdevs,
		Created:  e.created,
		Snapshot: e.model.Snapshot(),
	}
}

// Registry holds the models served by the process.
type Registry struct {
	mutex   *sync.RWMutex
	models  map[string]*entry
	store   storage.Persistence
	metrics *metrics.Metrics
}

// NewRegistry creates a registry persisting models to the given store.
func NewRegistry(store storage.Persistence, m *metrics.Metrics) *Registry {
	if store == nil {
		store = storage.NewVoidStorage()
	}
	if m == nil {
		m = metrics.Observer
	}
	return &Registry{
		mutex:   new(sync.RWMutex),
		models:  make(map[string]*entry),
		store:   store,
		metrics: m,
	}
}

func (r *Registry) get(id string) (*entry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	e, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("'%s': %w", id, UnknownModelErr)
	}
	return e, nil
}

// Create registers a new model with the given prior.
func (r *Registry) Create(cfg config.Model) (Info, error) {
	model, err := cfg.New()
	if err != nil {
		return Info{}, fmt.Errorf("could not create model: %w", err)
	}
	stdevs := math.Abs(cfg.Stdevs)
	if stdevs == 0 {
		stdevs = config.Default().Model.Stdevs
	}
	e := newEntry(uuid.New().String(), cfg.Name, time.Now(), stdevs, model)
	if err := r.store.Store(storage.Key{ID: e.id, Label: label}, e.record()); err != nil {
		return Info{}, fmt.Errorf("could not store model: %w", err)
	}

	r.mutex.Lock()
	r.models[e.id] = e
	r.mutex.Unlock()

	log.Info().
		Str("id", e.id).
		Str("name", e.name).
		Str("basis", model.Basis().Name()).
		Float64("beta", model.Beta()).
		Msg("created model")
	return e.info(), nil
}

// List returns all models ordered by creation time.
func (r *Registry) List() []Info {
	r.mutex.RLock()
	entries := make([]*entry, 0, len(r.models))
	for _, e := range r.models {
		entries = append(entries, e)
	}
	r.mutex.RUnlock()

	infos := make([]Info, len(entries))
	for i, e := range entries {
		e.mutex.RLock()
		infos[i] = e.info()
		e.mutex.RUnlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// Delete removes the model from the registry and from the storage, if the storage supports it.
func (r *Registry) Delete(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.models[id]; !ok {
		return fmt.Errorf("'%s': %w", id, UnknownModelErr)
	}
	if remover, ok := r.store.(storage.Remover); ok {
		if err := remover.Remove(storage.Key{ID: id, Label: label}); err != nil {
			return fmt.Errorf("could not remove model '%s': %w", id, err)
		}
	}
	delete(r.models, id)
	r.metrics.Remove(id)
	log.Info().Str("id", id).Msg("deleted model")
	return nil
}

// Observe scores the observations against the current posterior and then absorbs them.
func (r *Registry) Observe(id string, xs, ts []float64) (Observation, error) {
	e, err := r.get(id)
	if err != nil {
		return Observation{}, err
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	score, err := e.model.Score(xs, ts, e.stdevs)
	if err != nil {
		r.metrics.Update(id, len(xs), err)
		return Observation{}, err
	}
	if err := e.model.Update(xs, ts); err != nil {
		r.metrics.Update(id, len(xs), err)
		log.Error().Err(err).Str("id", id).Int("batch", len(xs)).Msg("could not update posterior")
		return Observation{}, err
	}
	r.metrics.Update(id, len(xs), nil)

	if score.Count > 0 {
		if err := e.batches.Push(score.MSE, score.Z, score.Coverage); err != nil {
			log.Error().Err(err).Str("id", id).Msg("could not track batch score")
		}
		e.residuals.Push(score.Residuals...)
		r.metrics.Posterior(id, mat.Trace(e.model.Covariance()), score.Coverage)

		if err := r.store.Store(storage.Key{ID: id, Label: label}, e.record()); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("could not store posterior")
		}
	}

	return Observation{
		Score:     score,
		Posterior: e.posterior(),
	}, nil
}

// Posterior returns the current posterior of the model.
func (r *Registry) Posterior(id string) (Posterior, error) {
	e, err := r.get(id)
	if err != nil {
		return Posterior{}, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.posterior(), nil
}

// Limits computes the predictive mean, variance and the prediction limits at the given inputs.
// A zero stdevs falls back to the width the model was created with.
func (r *Registry) Limits(id string, xs []float64, stdevs float64) (Limits, error) {
	e, err := r.get(id)
	if err != nil {
		return Limits{}, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	if stdevs == 0 {
		stdevs = e.stdevs
	}
	stdevs = math.Abs(stdevs)
	if math.IsNaN(stdevs) || math.IsInf(stdevs, 0) {
		return Limits{}, fmt.Errorf("invalid number of standard deviations %v: %w", stdevs, bayes.InvalidParameterErr)
	}
	return Limits{
		X:        xs,
		Stdevs:   stdevs,
		Mean:     e.model.PredictiveMean(xs),
		Variance: e.model.PredictiveVariance(xs),
		Lower:    e.model.PredictionLimit(xs, -stdevs),
		Upper:    e.model.PredictionLimit(xs, stdevs),
	}, nil
}

// Generate simulates one observation per input from the predictive distribution.
func (r *Registry) Generate(id string, xs []float64, seed uint64) ([]float64, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.model.GenerateData(xs, rand.NewSource(seed))
}

// Samples draws weight vectors from the posterior.
func (r *Registry) Samples(id string, count int, seed uint64) ([][]float64, error) {
	e, err := r.get(id)
	if err != nil {
		return nil, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.model.SampleWeights(count, rand.NewSource(seed))
}

// Stats returns the accumulated predictive scores of the model.
func (r *Registry) Stats(id string) (Stats, error) {
	e, err := r.get(id)
	if err != nil {
		return Stats{}, err
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return Stats{
		Batches:   e.batches.Summary(),
		Residuals: e.residuals.Summary(),
	}, nil
}

// Restore loads all persisted models into the registry.
// It returns the number of models restored.
func (r *Registry) Restore() (int, error) {
	index, ok := r.store.(storage.Index)
	if !ok {
		return 0, nil
	}
	keys, err := index.Keys(label)
	if err != nil {
		return 0, fmt.Errorf("could not list models: %w", err)
	}
	var n int
	for _, k := range keys {
		var rec record
		if err := r.store.Load(k, &rec); err != nil {
			log.Warn().Err(err).Str("id", k.ID).Msg("could not load model")
			continue
		}
		model, err := bayes.FromSnapshot(rec.Snapshot)
		if err != nil {
			log.Warn().Err(err).Str("id", k.ID).Msg("could not restore model")
			continue
		}
		r.mutex.Lock()
		r.models[k.ID] = newEntry(k.ID, rec.Name, rec.Created, rec.Stdevs, model)
		r.mutex.Unlock()
		n++
	}
	log.Info().Int("models", n).Int("keys", len(keys)).Msg("restored models")
	return n, nil
}
