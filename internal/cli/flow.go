package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/binet/internal/engine"
	"github.com/shaiso/binet/internal/node"
)

// NewFlowCmd создаёт группу команд для работы с описаниями flow.
func NewFlowCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Inspect flow specs",
	}

	cmd.AddCommand(
		newFlowValidateCmd(outputFn),
		newFlowKindsCmd(outputFn),
	)

	return cmd
}

func newFlowValidateCmd(outputFn func() *Output) *cobra.Command {
	var specFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a flow spec and print its stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := engine.LoadSpec(specFile)
			if err != nil {
				return err
			}
			f, err := engine.Build(spec, engine.Registry())
			if err != nil {
				return err
			}

			out.Notef("Flow %q is valid: %s with %d stages", spec.Name, spec.FlowType(), f.Len())
			return printStages(out, f.Nodes())
		},
	}

	cmd.Flags().StringVar(&specFile, "spec", "", "Path to flow spec YAML (required)")
	cmd.MarkFlagRequired("spec")

	return cmd
}

func newFlowKindsCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List node kinds available in flow specs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			kinds := engine.Registry().Kinds()
			rows := make([][]string, len(kinds))
			for i, k := range kinds {
				rows[i] = []string{k}
			}

			return out.Print([]string{"KIND"}, rows, kinds)
		},
	}
}

// StageInfo — описание стадии для вывода.
type StageInfo struct {
	Stage     int    `json:"stage"`
	Kind      string `json:"kind"`
	InputDim  int    `json:"input_dim"`
	OutputDim int    `json:"output_dim"`
	Phases    int    `json:"phases"`
	Trained   bool   `json:"trained"`
}

func printStages(out *Output, nodes []node.Node) error {
	infos := make([]StageInfo, len(nodes))
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		infos[i] = StageInfo{
			Stage:     i,
			Kind:      n.Kind(),
			InputDim:  n.InputDim(),
			OutputDim: n.OutputDim(),
			Phases:    n.Phases(),
			Trained:   !n.IsTraining(),
		}
		rows[i] = []string{
			strconv.Itoa(i),
			n.Kind(),
			formatDim(n.InputDim()),
			formatDim(n.OutputDim()),
			strconv.Itoa(n.Phases()),
			strconv.FormatBool(!n.IsTraining()),
		}
	}
	return out.Print([]string{"STAGE", "KIND", "INPUT", "OUTPUT", "PHASES", "TRAINED"}, rows, infos)
}

func formatDim(d int) string {
	if d == 0 {
		return "?"
	}
	return strconv.Itoa(d)
}
