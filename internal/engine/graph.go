package engine

import (
	"errors"
	"strconv"
	"strings"
)

var (
	errEmptyGraph = errors.New("filter graph has no chains")
	errEmptyChain = errors.New("filter chain has no filters")
)

// Option is a single filter option. An empty Key makes it positional.
type Option struct {
	Key   string
	Value string
}

// Opt returns a string option.
func Opt(key, value string) Option {
	return Option{Key: key, Value: value}
}

// Float returns a numeric option using the shortest exact decimal representation.
func Float(key string, value float64) Option {
	return Option{Key: key, Value: strconv.FormatFloat(value, 'f', -1, 64)}
}

// Int returns an integer option.
func Int(key string, value int64) Option {
	return Option{Key: key, Value: strconv.FormatInt(value, 10)}
}

// Bool returns a boolean option in the "true"/"false" spelling the engine expects.
func Bool(key string, value bool) Option {
	return Option{Key: key, Value: strconv.FormatBool(value)}
}

// Filter is one filter of a chain.
type Filter struct {
	Name    string
	Options []Option
}

// NewFilter builds a filter.
func NewFilter(name string, options ...Option) Filter {
	return Filter{Name: name, Options: options}
}

func (f Filter) String() string {
	if len(f.Options) == 0 {
		return f.Name
	}

	parts := make([]string, 0, len(f.Options))

	for _, opt := range f.Options {
		if opt.Key == "" {
			parts = append(parts, opt.Value)

			continue
		}

		parts = append(parts, opt.Key+"="+opt.Value)
	}

	return f.Name + "=" + strings.Join(parts, ":")
}

// Chain is a sequence of filters between labelled pads.
// Pad labels are stored without brackets ("0:a", "voice").
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

func (c Chain) String() string {
	var builder strings.Builder

	for _, in := range c.Inputs {
		builder.WriteString("[" + in + "]")
	}

	for idx, filter := range c.Filters {
		if idx > 0 {
			builder.WriteString(",")
		}

		builder.WriteString(filter.String())
	}

	for _, out := range c.Outputs {
		builder.WriteString("[" + out + "]")
	}

	return builder.String()
}

// Graph is a declarative filter graph, serialized to the engine argument format only when a render is issued.
type Graph struct {
	Chains []Chain
}

// Simple builds a graph made of a single unlabelled chain.
func Simple(filters ...Filter) Graph {
	return Graph{Chains: []Chain{{Filters: filters}}}
}

func (g Graph) String() string {
	chains := make([]string, 0, len(g.Chains))
	for _, chain := range g.Chains {
		chains = append(chains, chain.String())
	}

	return strings.Join(chains, ";")
}

// IsSimple reports whether the graph is a single chain without pad labels, applicable to a single input.
func (g Graph) IsSimple() bool {
	return len(g.Chains) == 1 && len(g.Chains[0].Inputs) == 0 && len(g.Chains[0].Outputs) == 0
}

// Output returns the label of the final output pad, or "" for simple graphs.
func (g Graph) Output() string {
	if len(g.Chains) == 0 {
		return ""
	}

	last := g.Chains[len(g.Chains)-1]
	if len(last.Outputs) == 0 {
		return ""
	}

	return last.Outputs[0]
}

// Validate checks the graph is structurally usable.
func (g Graph) Validate() error {
	if len(g.Chains) == 0 {
		return errEmptyGraph
	}

	for _, chain := range g.Chains {
		if len(chain.Filters) == 0 {
			return errEmptyChain
		}
	}

	return nil
}
