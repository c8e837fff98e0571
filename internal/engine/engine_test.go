package engine

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/shaiso/binet/internal/array"
	"github.com/shaiso/binet/internal/biflow"
	"github.com/shaiso/binet/internal/node"
	"github.com/shaiso/binet/internal/parallel"
	"github.com/shaiso/binet/internal/scheduler"
)

const nestedYAML = `
name: nested
stages:
  - kind: standardize
  - kind: parallel-flow
    stages:
      - kind: center
      - kind: select
        params: {output_dim: 6}
  - kind: polynomial
    params: {degree: 2}
  - kind: select
    params: {output_dim: 5}
`

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec([]byte(nestedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Name != "nested" {
		t.Errorf("expected name nested, got %q", spec.Name)
	}
	if spec.FlowType() != TypeFlow {
		t.Errorf("expected default type flow, got %q", spec.FlowType())
	}
	if len(spec.Stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(spec.Stages))
	}
	if len(spec.Stages[1].Stages) != 2 {
		t.Errorf("expected 2 nested stages, got %d", len(spec.Stages[1].Stages))
	}
	if got := spec.Stages[2].Params["degree"]; got != 2 {
		t.Errorf("expected degree 2, got %v", got)
	}
}

func TestParseSpec_UnknownField(t *testing.T) {
	_, err := ParseSpec([]byte("stages:\n  - kind: center\n    knd: typo\n"))
	if !errors.Is(err, ErrSpecParse) {
		t.Errorf("expected ErrSpecParse, got %v", err)
	}
}

func TestLoadSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	if err := os.WriteFile(path, []byte(nestedYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	spec, err := LoadSpec(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(spec.Stages) != 4 {
		t.Errorf("expected 4 stages, got %d", len(spec.Stages))
	}

	if _, err := LoadSpec(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	reg := Registry()

	tests := []struct {
		name    string
		spec    FlowSpec
		wantErr error
		stage   string
		field   string
	}{
		{
			name:    "empty stages",
			spec:    FlowSpec{},
			wantErr: ErrEmptyStages,
			field:   "stages",
		},
		{
			name:    "bad type",
			spec:    FlowSpec{Type: "graph", Stages: []StageDef{{Kind: "center"}}},
			wantErr: ErrInvalidFlowType,
			field:   "type",
		},
		{
			name:    "max_hops on flow",
			spec:    FlowSpec{MaxHops: 5, Stages: []StageDef{{Kind: "center"}}},
			wantErr: ErrInvalidMaxHops,
			field:   "max_hops",
		},
		{
			name:    "negative max_hops",
			spec:    FlowSpec{Type: TypeBiFlow, MaxHops: -1, Stages: []StageDef{{Kind: "center"}}},
			wantErr: ErrInvalidMaxHops,
			field:   "max_hops",
		},
		{
			name:    "empty kind",
			spec:    FlowSpec{Stages: []StageDef{{Kind: "center"}, {}}},
			wantErr: ErrEmptyKind,
			stage:   "stages[1]",
			field:   "kind",
		},
		{
			name:    "unknown kind",
			spec:    FlowSpec{Stages: []StageDef{{Kind: "pca"}}},
			wantErr: ErrUnknownKind,
			stage:   "stages[0]",
			field:   "kind",
		},
		{
			name: "nested stages on plain node",
			spec: FlowSpec{Stages: []StageDef{
				{Kind: "center", Stages: []StageDef{{Kind: "identity"}}},
			}},
			wantErr: ErrUnexpectedStages,
			stage:   "stages[0]",
			field:   "stages",
		},
		{
			name:    "empty nested flow",
			spec:    FlowSpec{Stages: []StageDef{{Kind: "flow"}}},
			wantErr: ErrEmptyStages,
			stage:   "stages[0]",
			field:   "stages",
		},
		{
			name: "unknown kind inside nested flow",
			spec: FlowSpec{Stages: []StageDef{
				{Kind: "parallel-flow", Stages: []StageDef{{Kind: "center"}, {Kind: "ica"}}},
			}},
			wantErr: ErrUnknownKind,
			stage:   "stages[0].stages[1]",
			field:   "kind",
		},
		{
			name: "params on plain nested flow",
			spec: FlowSpec{Stages: []StageDef{
				{Kind: "flow", Params: map[string]any{"max_hops": 3}, Stages: []StageDef{{Kind: "identity"}}},
			}},
			wantErr: ErrInvalidParams,
			stage:   "stages[0]",
			field:   "params",
		},
		{
			name: "negative max_hops on nested biflow",
			spec: FlowSpec{Stages: []StageDef{
				{Kind: "biflow", Params: map[string]any{"max_hops": -1}, Stages: []StageDef{{Kind: "identity"}}},
			}},
			wantErr: ErrInvalidMaxHops,
			stage:   "stages[0]",
			field:   "params.max_hops",
		},
		{
			name: "valid nested biflow",
			spec: FlowSpec{Stages: []StageDef{
				{Kind: "parallel-biflow", Params: map[string]any{"max_hops": 20}, Stages: []StageDef{
					{Kind: "identity"}, {Kind: "router", Params: map[string]any{"target": 0, "limit": 1}},
				}},
			}},
		},
		{
			name: "valid biflow",
			spec: FlowSpec{Type: TypeBiFlow, MaxHops: 10, Stages: []StageDef{
				{Kind: "identity"}, {Kind: "router", Params: map[string]any{"target": 0}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.spec, reg)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if ve.Stage != tt.stage {
				t.Errorf("expected stage %q, got %q", tt.stage, ve.Stage)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}

func TestBuild_InvalidParams(t *testing.T) {
	spec := &FlowSpec{Stages: []StageDef{
		{Kind: "polynomial", Params: map[string]any{"degree": 0}},
	}}
	_, err := Build(spec, Registry())
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if !errors.Is(err, node.ErrInvalidParam) {
		t.Errorf("expected node.ErrInvalidParam in chain, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Stage != "stages[0]" {
		t.Errorf("expected ValidationError at stages[0], got %v", err)
	}
}

func TestBuild_NestedFlowTrainsAndExecutes(t *testing.T) {
	ctx := context.Background()
	spec, err := ParseSpec([]byte(nestedYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	runner, err := Build(spec, Registry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := runner.(*parallel.ParallelFlow); !ok {
		t.Fatalf("expected *parallel.ParallelFlow, got %T", runner)
	}
	if _, ok := runner.Node(1).(*parallel.ParallelFlowNode); !ok {
		t.Errorf("expected stage 1 to be ParallelFlowNode, got %T", runner.Node(1))
	}

	rnd := rand.New(rand.NewSource(4))
	chunks := make([]*array.Matrix, 4)
	for i := range chunks {
		chunks[i] = array.Random(rnd, 30, 10)
	}
	data := [][]*array.Matrix{chunks, chunks, nil, chunks}

	pool := scheduler.NewPool(scheduler.PoolConfig{Workers: 3})
	defer pool.Shutdown(ctx)

	if err := runner.Train(ctx, data, pool); err != nil {
		t.Fatalf("train: %v", err)
	}
	if runner.IsTraining() {
		t.Error("expected trained flow")
	}

	y, err := runner.ExecuteChunks(ctx, chunks, pool)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if y.Rows != 120 || y.Cols != 5 {
		t.Errorf("expected (120, 5), got (%d, %d)", y.Rows, y.Cols)
	}
}

func TestBuild_BiFlow(t *testing.T) {
	spec := &FlowSpec{
		Type:    TypeBiFlow,
		MaxHops: 7,
		Stages: []StageDef{
			{Kind: "identity"},
			{Kind: "flow", Stages: []StageDef{{Kind: "identity"}}},
		},
	}
	runner, err := Build(spec, Registry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bf, ok := runner.(*biflow.ParallelBiFlow)
	if !ok {
		t.Fatalf("expected *biflow.ParallelBiFlow, got %T", runner)
	}
	if bf.MaxHops() != 7 {
		t.Errorf("expected max hops 7, got %d", bf.MaxHops())
	}
}

func TestBuild_NestedBiFlow(t *testing.T) {
	spec := &FlowSpec{
		Stages: []StageDef{
			{Kind: "parallel-biflow", Params: map[string]any{"max_hops": 5}, Stages: []StageDef{
				{Kind: "center"},
				{Kind: "router", Params: map[string]any{"target": 0, "limit": 1}},
			}},
			{Kind: "biflow", Stages: []StageDef{{Kind: "identity"}}},
		},
	}
	runner, err := Build(spec, Registry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pn, ok := runner.Node(0).(*biflow.ParallelFlowNode)
	if !ok {
		t.Fatalf("expected stage 0 to be biflow.ParallelFlowNode, got %T", runner.Node(0))
	}
	if pn.MaxHops() != 5 {
		t.Errorf("expected max hops 5, got %d", pn.MaxHops())
	}
	bn, ok := runner.Node(1).(*biflow.FlowNode)
	if !ok {
		t.Fatalf("expected stage 1 to be biflow.FlowNode, got %T", runner.Node(1))
	}
	if bn.MaxHops() != biflow.DefaultMaxHops {
		t.Errorf("expected default max hops, got %d", bn.MaxHops())
	}

	ctx := context.Background()
	rnd := rand.New(rand.NewSource(6))
	chunks := []*array.Matrix{array.Random(rnd, 10, 3), array.Random(rnd, 10, 3)}
	pool := scheduler.NewPool(scheduler.PoolConfig{Workers: 2})
	defer pool.Shutdown(ctx)

	if err := runner.Train(ctx, [][]*array.Matrix{chunks}, pool); err != nil {
		t.Fatalf("train: %v", err)
	}
	y, err := runner.ExecuteChunks(ctx, chunks, pool)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if y.Rows != 20 || y.Cols != 3 {
		t.Errorf("expected (20, 3), got (%d, %d)", y.Rows, y.Cols)
	}
}

func TestFlowSpec_MarshalRoundTrip(t *testing.T) {
	spec, err := ParseSpec([]byte(nestedYAML))
	if err != nil {
		t.Fatal(err)
	}
	out, err := spec.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := ParseSpec(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again.Stages) != len(spec.Stages) || again.Stages[1].Kind != "parallel-flow" {
		t.Errorf("round trip changed spec: %+v", again)
	}
}
