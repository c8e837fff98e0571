package engine

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Типы flow.
const (
	TypeFlow   = "flow"
	TypeBiFlow = "biflow"
)

// FlowSpec — описание flow.
type FlowSpec struct {
	Name    string     `yaml:"name,omitempty" json:"name,omitempty"`
	Type    string     `yaml:"type,omitempty" json:"type,omitempty"`
	MaxHops int        `yaml:"max_hops,omitempty" json:"max_hops,omitempty"`
	Stages  []StageDef `yaml:"stages" json:"stages"`
}

// StageDef — описание одной стадии.
type StageDef struct {
	// Kind — имя узла в реестре.
	Kind string `yaml:"kind" json:"kind"`

	// Params — параметры фабрики узла.
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	// Stages — вложенные стадии для flow, parallel-flow, biflow и parallel-biflow.
	Stages []StageDef `yaml:"stages,omitempty" json:"stages,omitempty"`
}

// FlowType возвращает тип с учётом значения по умолчанию.
func (s *FlowSpec) FlowType() string {
	if s.Type == "" {
		return TypeFlow
	}
	return s.Type
}

// ParseSpec разбирает YAML. Неизвестные поля — ошибка.
func ParseSpec(data []byte) (*FlowSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec FlowSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpecParse, err)
	}
	return &spec, nil
}

// LoadSpec читает и разбирает файл.
func LoadSpec(path string) (*FlowSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow spec: %w", err)
	}
	return ParseSpec(data)
}

// Marshal кодирует описание обратно в YAML.
func (s *FlowSpec) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
