package server

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Action string

type Method string

const (
	Data Action = "data"
	Api  Action = "api"

	GET    Method = "GET"
	POST   Method = "POST"
	DELETE Method = "DELETE"
)

// Handler processes a request and returns the response payload and status code.
// A zero code means http.StatusOK.
type Handler func(r *http.Request) ([]byte, int, error)

type Route struct {
	Action Action
	Path   string
	Method Method
	Exec   Handler
}

// NewRoute creates a new route for the given method and action.
func NewRoute(method Method, action Action) *Route {
	return &Route{
		Action: action,
		Method: method,
	}
}

// WithPath sets the path of the route under its action.
func (r *Route) WithPath(path string) *Route {
	r.Path = path
	return r
}

// Handler sets the handler of the route.
func (r *Route) Handler(exec Handler) *Route {
	r.Exec = exec
	return r
}

// Create returns the route.
func (r *Route) Create() Route {
	return *r
}

func (r Route) pattern() string {
	if r.Path != "" {
		return fmt.Sprintf("/%s/%s", r.Action, r.Path)
	}
	return fmt.Sprintf("/%s", r.Action)
}

type Server struct {
	name     string
	port     int
	debug    bool
	routes   []Route
	handlers map[string]http.Handler
}

func NewServer(name string, port int) *Server {
	return &Server{
		name:     name,
		port:     port,
		routes:   make([]Route, 0),
		handlers: make(map[string]http.Handler),
	}
}

// Debug sets the server to debug mode
func (s *Server) Debug() *Server {
	s.debug = true
	return s
}

// Add adds the given routes to the server
func (s *Server) Add(route ...Route) *Server {
	s.routes = append(s.routes, route...)
	return s
}

// Handle mounts a plain http handler at the given pattern.
func (s *Server) Handle(pattern string, handler http.Handler) *Server {
	s.handlers[pattern] = handler
	return s
}

func (s *Server) handle(routes map[Method]Handler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		handler, ok := routes[Method(r.Method)]
		if !ok {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		start := time.Now()
		b, code, err := handler(r)
		if s.debug {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("handler", name(handler)).
				Int("code", code).
				Float64("duration", time.Since(start).Seconds()).
				Msg("handled request")
		}
		if err != nil {
			s.error(w, code, err)
			return
		}
		if code == 0 {
			code = http.StatusOK
		}
		s.respond(w, b, code)
	}
}

func name(handler Handler) string {
	n := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
	return n[strings.LastIndex(n, "/")+1:]
}

// Mux builds the http handler for all routes.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	grouped := make(map[string]map[Method]Handler)
	for _, route := range s.routes {
		p := route.pattern()
		if _, ok := grouped[p]; !ok {
			grouped[p] = make(map[Method]Handler)
		}
		grouped[p][route.Method] = route.Exec
	}
	for p, routes := range grouped {
		mux.HandleFunc(p, s.handle(routes))
	}
	for p, h := range s.handlers {
		mux.Handle(p, h)
	}
	return mux
}

// Run starts the server
func (s *Server) Run() error {
	log.Warn().Str("server", s.name).Int("port", s.port).Msg("starting server")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.Mux()); err != nil {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, b []byte, code int) {
	if len(b) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(code)
	_, err := w.Write(b)
	if err != nil {
		log.Error().Err(err).Msg("could not write response")
	}
}

func (s *Server) error(w http.ResponseWriter, code int, err error) {
	if code == 0 || code == http.StatusOK {
		code = http.StatusInternalServerError
	}
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("code", code).Msg("error for http request")
	} else {
		log.Warn().Err(err).Int("code", code).Msg("bad http request")
	}
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	s.respond(w, b, code)
}

func Live() Route {
	return Route{
		Action: Data,
		Method: GET,
		Exec: func(r *http.Request) (payload []byte, code int, err error) {
			return []byte{}, http.StatusOK, nil
		},
	}
}

// ReadJson decodes the request body into v. An empty body leaves v untouched.
func ReadJson(r *http.Request, debug bool, v interface{}) error {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if debug {
		log.Info().
			Str("url", fmt.Sprintf("%+v", r.URL)).
			Str("request", r.RequestURI).
			Str("remote-address", r.RemoteAddr).
			Str("method", r.Method).
			Str("body", string(body)).
			Msg("received payload")
	}
	if len(body) > 0 {
		err = json.Unmarshal(body, v)
		if err != nil {
			return err
		}
	}
	return nil
}
