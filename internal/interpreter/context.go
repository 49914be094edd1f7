// File path: internal/interpreter/context.go
package interpreter

import "github.com/orderflow/workorder-engine/internal/model"

// VarContext is the per-run variable mapping: insertion order preserved for
// human-readable rendering, lookup by exact name, duplicate writes overwrite
// in place. It is owned by exactly one run and is never shared across
// goroutines.
type VarContext struct {
	order  []string
	values map[string]interface{}
}

// NewVarContext returns an empty context. Call Seed to populate it.
func NewVarContext() *VarContext {
	return &VarContext{values: make(map[string]interface{})}
}

// Seed initializes the context from upstream-supplied parameters followed by
// matcher-extracted parameters, with the matcher's values winning on
// collision.
func (c *VarContext) Seed(upstream, matcherParams map[string]interface{}) {
	for k, v := range upstream {
		c.Set(k, v)
	}
	for k, v := range matcherParams {
		c.Set(k, v)
	}
}

// Lookup implements eval.Context and render.Context.
func (c *VarContext) Lookup(name string) (interface{}, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Set writes name = value, overwriting any existing value in place and
// appending name to the insertion order the first time it is seen.
func (c *VarContext) Set(name string, value interface{}) {
	if _, exists := c.values[name]; !exists {
		c.order = append(c.order, name)
	}
	c.values[name] = value
}

// Snapshot returns an insertion-ordered copy of the context, suitable for
// the human-readable context_snapshot in RunOutcome.
func (c *VarContext) Snapshot() []model.KV {
	out := make([]model.KV, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, model.KV{Name: name, Value: c.values[name]})
	}
	return out
}
