package node

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Params — параметры фабрики узла (из YAML или JSON).
type Params map[string]any

// Int возвращает целочисленный параметр или def, если он не задан.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParam, key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidParam, key, v)
	}
}

// String возвращает строковый параметр или def.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParam, key, v)
	}
	return s, nil
}

// Factory создаёт узел по параметрам. nil-параметры дают узел по умолчанию,
// в который затем декодируется состояние.
type Factory func(p Params) (Node, error)

// Registry — реестр фабрик узлов по kind.
//
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register регистрирует фабрику. Существующая фабрика того же kind перезаписывается.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// New создаёт узел данного kind.
func (r *Registry) New(kind string, p Params) (Node, error) {
	r.mu.RLock()
	f, exists := r.factories[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return f(p)
}

// Has проверяет, зарегистрирован ли kind.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[kind]
	return exists
}

// Kinds возвращает отсортированный список kind.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Envelope — сериализованный узел.
type Envelope struct {
	Kind  string          `json:"kind"`
	State json.RawMessage `json:"state"`
}

// Encode упаковывает узел в Envelope.
func (r *Registry) Encode(n Node) (Envelope, error) {
	if !r.Has(n.Kind()) {
		return Envelope{}, fmt.Errorf("%w: %s", ErrUnknownKind, n.Kind())
	}
	state, err := json.Marshal(n)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode node %s: %w", n.Kind(), err)
	}
	return Envelope{Kind: n.Kind(), State: state}, nil
}

// Decode восстанавливает узел из Envelope.
func (r *Registry) Decode(env Envelope) (Node, error) {
	n, err := r.New(env.Kind, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.State, n); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", env.Kind, err)
	}
	return n, nil
}

// EncodeAll упаковывает список узлов.
func (r *Registry) EncodeAll(nodes []Node) ([]Envelope, error) {
	out := make([]Envelope, 0, len(nodes))
	for _, n := range nodes {
		env, err := r.Encode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

// DecodeAll восстанавливает список узлов.
func (r *Registry) DecodeAll(envs []Envelope) ([]Node, error) {
	out := make([]Node, 0, len(envs))
	for _, env := range envs {
		n, err := r.Decode(env)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
