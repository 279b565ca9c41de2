package state

import (
	"sort"
	"sync"

	"github.com/aescanero/graph-builder/internal/application/plugins"
	metrics "github.com/aescanero/graph-builder/pkg/adapters/metrics/prometheus"
)

// Options configures a new State
type Options struct {
	// MandatoryParameters are the query parameters every graph request must carry
	MandatoryParameters []string
	Plugins             *plugins.Chain
	Registry            *metrics.Registry
}

// State is the shared graph state. It must be passed by pointer.
type State struct {
	graphMu sync.RWMutex
	graph   string

	metadataMu sync.RWMutex
	metadata   string

	liveMu sync.RWMutex
	live   bool

	readyMu sync.RWMutex
	ready   bool

	mandatory map[string]struct{}
	plugins   *plugins.Chain
	registry  *metrics.Registry
}

// New creates a state with empty documents and both flags cleared
func New(opts Options) *State {
	mandatory := make(map[string]struct{}, len(opts.MandatoryParameters))
	for _, p := range opts.MandatoryParameters {
		if p == "" {
			continue
		}
		mandatory[p] = struct{}{}
	}

	return &State{
		mandatory: mandatory,
		plugins:   opts.Plugins,
		registry:  opts.Registry,
	}
}

// Graph returns the current graph document
func (s *State) Graph() string {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return s.graph
}

// PublishGraph replaces the graph document
func (s *State) PublishGraph(doc string) {
	s.graphMu.Lock()
	s.graph = doc
	s.graphMu.Unlock()
}

// Metadata returns the current secondary metadata document
func (s *State) Metadata() string {
	s.metadataMu.RLock()
	defer s.metadataMu.RUnlock()
	return s.metadata
}

// PublishMetadata replaces the secondary metadata document
func (s *State) PublishMetadata(doc string) {
	s.metadataMu.Lock()
	s.metadata = doc
	s.metadataMu.Unlock()
}

// SetLive sets the liveness flag
func (s *State) SetLive(live bool) {
	s.liveMu.Lock()
	s.live = live
	s.liveMu.Unlock()
}

// IsLive reports whether the refresher loop is running
func (s *State) IsLive() bool {
	s.liveMu.RLock()
	defer s.liveMu.RUnlock()
	return s.live
}

// SetReady sets the readiness flag
func (s *State) SetReady(ready bool) {
	s.readyMu.Lock()
	s.ready = ready
	s.readyMu.Unlock()
}

// IsReady reports whether a graph has been published at least once
func (s *State) IsReady() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}

// MandatoryParameters returns a sorted copy of the mandatory client parameters
func (s *State) MandatoryParameters() []string {
	params := make([]string, 0, len(s.mandatory))
	for p := range s.mandatory {
		params = append(params, p)
	}
	sort.Strings(params)
	return params
}

// HasMandatoryParameter reports whether name is a mandatory client parameter
func (s *State) HasMandatoryParameter(name string) bool {
	_, ok := s.mandatory[name]
	return ok
}

// Plugins returns the plugin chain run by the refresher
func (s *State) Plugins() *plugins.Chain {
	return s.plugins
}

// Registry returns the process metrics registry
func (s *State) Registry() *metrics.Registry {
	return s.registry
}
