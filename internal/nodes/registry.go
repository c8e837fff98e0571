package nodes

import (
	"fmt"

	"github.com/shaiso/binet/internal/node"
)

// Kind эталонных узлов.
const (
	KindIdentity    = "identity"
	KindPolynomial  = "polynomial"
	KindCenter      = "center"
	KindStandardize = "standardize"
	KindSelect      = "select"
	KindRouter      = "router"
)

// Register добавляет эталонные узлы в реестр.
func Register(r *node.Registry) {
	r.Register(KindIdentity, func(node.Params) (node.Node, error) {
		return NewIdentity(), nil
	})
	r.Register(KindPolynomial, func(p node.Params) (node.Node, error) {
		degree, err := p.Int("degree", 2)
		if err != nil {
			return nil, err
		}
		if degree < 1 {
			return nil, fmt.Errorf("%w: degree must be >= 1, got %d", node.ErrInvalidParam, degree)
		}
		return NewPolynomial(degree), nil
	})
	r.Register(KindCenter, func(node.Params) (node.Node, error) {
		return NewCentering(), nil
	})
	r.Register(KindStandardize, func(node.Params) (node.Node, error) {
		return NewStandardization(), nil
	})
	r.Register(KindSelect, func(p node.Params) (node.Node, error) {
		out, err := p.Int("output_dim", 1)
		if err != nil {
			return nil, err
		}
		if out < 1 {
			return nil, fmt.Errorf("%w: output_dim must be >= 1, got %d", node.ErrInvalidParam, out)
		}
		return NewVarianceSelection(out), nil
	})
	r.Register(KindRouter, func(p node.Params) (node.Node, error) {
		target, err := p.Int("target", 0)
		if err != nil {
			return nil, err
		}
		limit, err := p.Int("limit", 1)
		if err != nil {
			return nil, err
		}
		key, err := p.String("key", KindRouter)
		if err != nil {
			return nil, err
		}
		return NewRouter(target, limit, key), nil
	})
}

// DefaultRegistry создаёт реестр со всеми эталонными узлами.
func DefaultRegistry() *node.Registry {
	r := node.NewRegistry()
	Register(r)
	return r
}
