package engine

import (
	"fmt"

	"github.com/shaiso/binet/internal/biflow"
	"github.com/shaiso/binet/internal/flow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/nodes"
	"github.com/shaiso/binet/internal/parallel"
)

// Registry создаёт реестр со всеми узлами, которые понимает движок:
// эталонные узлы и вложенные flow всех четырёх видов.
func Registry() *node.Registry {
	r := nodes.DefaultRegistry()
	flow.Register(r)
	parallel.Register(r)
	biflow.Register(r)
	return r
}

// Codec создаёт кодек задач для удалённого выполнения: train, execute и
// bi-execute поверх реестра reg.
func Codec(reg *node.Registry) *parallel.Codec {
	c := parallel.NewCodec(reg)
	biflow.RegisterCodec(c)
	return c
}

// isFlowKind проверяет, допускает ли kind вложенные стадии.
func isFlowKind(kind string) bool {
	switch kind {
	case flow.KindFlow, parallel.KindParallelFlow, biflow.KindBiFlow, biflow.KindParallelBiFlow:
		return true
	}
	return false
}

// isBiFlowKind — вложенный flow со своей маршрутизацией.
func isBiFlowKind(kind string) bool {
	return kind == biflow.KindBiFlow || kind == biflow.KindParallelBiFlow
}

// Validate проверяет структуру FlowSpec.
//
// Проверяет:
//   - type: flow или biflow
//   - max_hops неотрицателен и задан только для biflow
//   - стадии непусты, kind зарегистрирован
//   - вложенные stages только у flow, parallel-flow, biflow и
//     parallel-biflow, и не пустые
//   - из params вложенных flow допустим только max_hops у biflow
//
// Параметры узлов проверяются в Build фабриками реестра.
func Validate(spec *FlowSpec, reg *node.Registry) error {
	switch spec.FlowType() {
	case TypeFlow:
		if spec.MaxHops != 0 {
			return NewValidationError("", "max_hops", "max_hops is only allowed for biflow", ErrInvalidMaxHops)
		}
	case TypeBiFlow:
		if spec.MaxHops < 0 {
			return NewValidationError("", "max_hops",
				fmt.Sprintf("max_hops must be >= 0, got %d", spec.MaxHops), ErrInvalidMaxHops)
		}
	default:
		return NewValidationError("", "type",
			fmt.Sprintf("unknown flow type %q", spec.Type), ErrInvalidFlowType)
	}

	if len(spec.Stages) == 0 {
		return NewValidationError("", "stages", "flow must have at least one stage", ErrEmptyStages)
	}

	return validateStages("stages", spec.Stages, reg)
}

func validateStages(path string, stages []StageDef, reg *node.Registry) error {
	for i, st := range stages {
		if err := ValidateStage(fmt.Sprintf("%s[%d]", path, i), st, reg); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStage проверяет одну стадию и её вложенные стадии.
func ValidateStage(path string, st StageDef, reg *node.Registry) error {
	if st.Kind == "" {
		return NewValidationError(path, "kind", "kind is required", ErrEmptyKind)
	}

	if !reg.Has(st.Kind) {
		return NewValidationError(path, "kind",
			fmt.Sprintf("unknown kind %q", st.Kind), ErrUnknownKind)
	}

	if isFlowKind(st.Kind) {
		if len(st.Stages) == 0 {
			return NewValidationError(path, "stages",
				fmt.Sprintf("%s stage must have nested stages", st.Kind), ErrEmptyStages)
		}
		if err := validateFlowParams(path, st); err != nil {
			return err
		}
		return validateStages(path+".stages", st.Stages, reg)
	}

	if len(st.Stages) > 0 {
		return NewValidationError(path, "stages",
			fmt.Sprintf("kind %q does not accept nested stages", st.Kind), ErrUnexpectedStages)
	}

	return nil
}

func validateFlowParams(path string, st StageDef) error {
	for key := range st.Params {
		if key != "max_hops" || !isBiFlowKind(st.Kind) {
			return NewValidationError(path, "params",
				fmt.Sprintf("%s stage does not take param %q", st.Kind, key), ErrInvalidParams)
		}
	}
	hops, err := node.Params(st.Params).Int("max_hops", 0)
	if err != nil || hops < 0 {
		return NewValidationError(path, "params.max_hops",
			"max_hops must be a non-negative integer", ErrInvalidMaxHops)
	}
	return nil
}
