package pipeline

import (
	"reflect"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Package is the unit of work flowing through a pipeline. It holds a stack of layers: the first one is the input,
// every stage appends its own result, and the last one is the output.
//
// A Package is not safe for concurrent use. The pipeline guarantees a single owner at any time.
type Package struct {
	id     string
	layers []any
}

// NewPackage creates a package identified by id with the given initial layers.
func NewPackage(id string, layers ...any) *Package {
	return &Package{
		id:     id,
		layers: append([]any{}, layers...),
	}
}

// NewID returns a random package identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the package identity.
func (p *Package) ID() string {
	return p.id
}

// AddLayer pushes a layer on top of the package.
func (p *Package) AddLayer(layer any) {
	p.layers = append(p.layers, layer)
}

// RemoveLayer removes the first layer deeply equal to layer. Indices of the layers above it shift down by one.
func (p *Package) RemoveLayer(layer any) error {
	for i, l := range p.layers {
		if reflect.DeepEqual(l, layer) {
			p.layers = append(p.layers[:i], p.layers[i+1:]...)

			return nil
		}
	}

	return errors.Wrapf(ErrLayerNotFound, "package %s", p.id)
}

// Layer returns the layer at index n.
func (p *Package) Layer(n int) (any, error) {
	if n < 0 || n >= len(p.layers) {
		return nil, errors.Wrapf(ErrLayerOutOfRange, "layer %d does not exist, package %s only has %d layers", n, p.id, len(p.layers))
	}

	return p.layers[n], nil
}

// LayerCount returns the number of layers.
func (p *Package) LayerCount() int {
	return len(p.layers)
}

// Layers returns a copy of every layer, input first.
func (p *Package) Layers() []any {
	res := make([]any, len(p.layers))
	copy(res, p.layers)

	return res
}

// Input returns the first layer.
func (p *Package) Input() (any, error) {
	if len(p.layers) == 0 {
		return nil, errors.Wrapf(ErrEmptyPackage, "package %s has no input layer", p.id)
	}

	return p.layers[0], nil
}

// Output returns the last layer.
func (p *Package) Output() (any, error) {
	if len(p.layers) == 0 {
		return nil, errors.Wrapf(ErrEmptyPackage, "package %s has no output layer", p.id)
	}

	return p.layers[len(p.layers)-1], nil
}
