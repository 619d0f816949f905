package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/drakos74/free-bayes/internal/config"
	"github.com/drakos74/free-bayes/internal/math/bayes"
	"github.com/drakos74/free-bayes/internal/service"
)

// ObserveRequest carries a batch of observations for a model.
type ObserveRequest struct {
	ID string    `json:"id"`
	X  []float64 `json:"x"`
	T  []float64 `json:"t"`
}

// LimitsRequest asks for the prediction limits at the given inputs.
type LimitsRequest struct {
	ID     string    `json:"id"`
	X      []float64 `json:"x"`
	Stdevs float64   `json:"stdevs"`
}

// GenerateRequest asks for simulated observations at the given inputs.
type GenerateRequest struct {
	ID   string    `json:"id"`
	X    []float64 `json:"x"`
	Seed uint64    `json:"seed"`
}

// SamplesRequest asks for weight samples from the posterior.
type SamplesRequest struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
	Seed  uint64 `json:"seed"`
}

// GenerateResponse holds simulated observations.
type GenerateResponse struct {
	X []float64 `json:"x"`
	T []float64 `json:"t"`
}

// SamplesResponse holds weight samples.
type SamplesResponse struct {
	Weights [][]float64 `json:"weights"`
}

// API exposes a model registry over http.
type API struct {
	registry *service.Registry
	debug    bool
}

func NewAPI(registry *service.Registry, debug bool) *API {
	return &API{
		registry: registry,
		debug:    debug,
	}
}

// Routes returns the routes of the model api.
func (a *API) Routes() []Route {
	return []Route{
		Live(),
		NewRoute(GET, Api).WithPath("models").Handler(a.list).Create(),
		NewRoute(POST, Api).WithPath("models").Handler(a.create).Create(),
		NewRoute(DELETE, Api).WithPath("models").Handler(a.delete).Create(),
		NewRoute(GET, Api).WithPath("posterior").Handler(a.posterior).Create(),
		NewRoute(POST, Api).WithPath("observe").Handler(a.observe).Create(),
		NewRoute(POST, Api).WithPath("limits").Handler(a.limits).Create(),
		NewRoute(POST, Api).WithPath("generate").Handler(a.generate).Create(),
		NewRoute(POST, Api).WithPath("samples").Handler(a.samples).Create(),
		NewRoute(GET, Api).WithPath("stats").Handler(a.stats).Create(),
	}
}

// status maps domain errors to http status codes.
func status(err error) int {
	switch {
	case errors.Is(err, service.UnknownModelErr):
		return http.StatusNotFound
	case errors.Is(err, bayes.ShapeMismatchErr), errors.Is(err, bayes.InvalidParameterErr):
		return http.StatusBadRequest
	case errors.Is(err, bayes.SingularMatrixErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func reply(v interface{}, err error) ([]byte, int, error) {
	if err != nil {
		return nil, status(err), err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("could not encode response: %w", err)
	}
	return b, http.StatusOK, nil
}

func (a *API) read(r *http.Request, v interface{}) error {
	if err := ReadJson(r, a.debug, v); err != nil {
		return fmt.Errorf("could not decode request: %v: %w", err, bayes.InvalidParameterErr)
	}
	return nil
}

func (a *API) list(r *http.Request) ([]byte, int, error) {
	return reply(a.registry.List(), nil)
}

func (a *API) create(r *http.Request) ([]byte, int, error) {
	cfg := config.Default().Model
	if err := a.read(r, &cfg); err != nil {
		return reply(nil, err)
	}
	return reply(a.registry.Create(cfg))
}

func (a *API) delete(r *http.Request) ([]byte, int, error) {
	id := r.URL.Query().Get("id")
	return reply(map[string]string{"id": id}, a.registry.Delete(id))
}

func (a *API) posterior(r *http.Request) ([]byte, int, error) {
	return reply(a.registry.Posterior(r.URL.Query().Get("id")))
}

func (a *API) observe(r *http.Request) ([]byte, int, error) {
	var req ObserveRequest
	if err := a.read(r, &req); err != nil {
		return reply(nil, err)
	}
	return reply(a.registry.Observe(req.ID, req.X, req.T))
}

func (a *API) limits(r *http.Request) ([]byte, int, error) {
	var req LimitsRequest
	if err := a.read(r, &req); err != nil {
		return reply(nil, err)
	}
	return reply(a.registry.Limits(req.ID, req.X, req.Stdevs))
}

func (a *API) generate(r *http.Request) ([]byte, int, error) {
	var req GenerateRequest
	if err := a.read(r, &req); err != nil {
		return reply(nil, err)
	}
	tt, err := a.registry.Generate(req.ID, req.X, req.Seed)
	return reply(GenerateResponse{X: req.X, T: tt}, err)
}

func (a *API) samples(r *http.Request) ([]byte, int, error) {
	var req SamplesRequest
	if err := a.read(r, &req); err != nil {
		return reply(nil, err)
	}
	ww, err := a.registry.Samples(req.ID, req.Count, req.Seed)
	return reply(SamplesResponse{Weights: ww}, err)
}

func (a *API) stats(r *http.Request) ([]byte, int, error) {
	return reply(a.registry.Stats(r.URL.Query().Get("id")))
}
