package chain

import (
	"errors"
	"math/rand"
	"sync/atomic"
)

// EndpointPicker selects one RPC endpoint out of a configured pool. Selection
// and retry policy are pluggable so engines never embed the strategy.
type EndpointPicker interface {
	// Pick returns one endpoint from the pool
	Pick(endpoints []string) (string, error)
}

// ErrNoEndpoints is returned when a chain has an empty node pool
var ErrNoEndpoints = errors.New("no endpoints configured")

type randomPicker struct{}

// NewRandomPicker returns a picker that selects uniformly at random.
// Crude load distribution without sticky state.
func NewRandomPicker() EndpointPicker {
	return &randomPicker{}
}

func (p *randomPicker) Pick(endpoints []string) (string, error) {
	if len(endpoints) == 0 {
		return "", ErrNoEndpoints
	}
	return endpoints[rand.Intn(len(endpoints))], nil
}

type roundRobinPicker struct {
	next atomic.Uint64
}

// NewRoundRobinPicker returns a picker that cycles through the pool
func NewRoundRobinPicker() EndpointPicker {
	return &roundRobinPicker{}
}

func (p *roundRobinPicker) Pick(endpoints []string) (string, error) {
	if len(endpoints) == 0 {
		return "", ErrNoEndpoints
	}
	n := p.next.Add(1) - 1
	return endpoints[n%uint64(len(endpoints))], nil
}
