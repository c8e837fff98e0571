// binet — инструмент командной строки: обучение flow по YAML-описанию и
// чтение журнала runs через HTTP API.
//
// Использование:
//
//	binet [--api-url URL] [--json] <command> [subcommand] [flags]
//
// Команды:
//
//	train  Обучение и выполнение flow
//	flow   Проверка описаний flow
//	runs   Журнал runs и tasks
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/binet/internal/cli"
	"github.com/shaiso/binet/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "binet",
		Short:         "binet — parallel training of node flows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "Log level (DEBUG, INFO, WARN, ERROR)")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	loggerFn := func() *slog.Logger {
		// Логи в stderr, stdout остаётся для данных
		return telemetry.NewLogger(os.Stderr, telemetry.ParseLevel(logLevel), "text")
	}

	rootCmd.AddCommand(
		cli.NewTrainCmd(outputFn, loggerFn),
		cli.NewFlowCmd(outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
