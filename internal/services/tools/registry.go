// File: internal/services/tools/registry.go
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrToolNotFound = errors.New("tool not found")

// Invocation carries everything an executor may need besides its own
// input: the identity of the user the turn runs as and the chat it
// runs in.
type Invocation struct {
	UserID uint
	ChatID string
	Input  json.RawMessage
}

// Descriptor describes one tool offered to the generation engine.
// SideEffectFree tools are executed as soon as the engine proposes
// them; everything else waits for an explicit user approval.
type Descriptor struct {
	Name           string
	Description    string
	Parameters     json.RawMessage
	SideEffectFree bool
	Execute        func(ctx context.Context, inv Invocation) (json.RawMessage, error)
}

// Registry holds the tools available to a turn, in registration order.
type Registry struct {
	byName map[string]Descriptor
	order  []string
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{byName: make(map[string]Descriptor)}
	for _, d := range descriptors {
		r.Register(d)
	}
	return r
}

func (r *Registry) Register(d Descriptor) {
	if _, exists := r.byName[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.byName[d.Name] = d
}

func (r *Registry) Get(name string) (Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return d, nil
}

// Descriptors returns all registered tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
