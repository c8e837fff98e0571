// Package cli реализует команды binet.
//
// # Обзор
//
// train и flow работают локально: загружают описание flow (YAML), собирают
// его через engine и обучают выбранным планировщиком. runs читает журнал
// через HTTP API и не импортирует internal/api.
//
// # Ключевые компоненты
//
// ## Train
//
// RunTrain загружает данные стадий (CSV или синтетический шум), обучает flow
// и при --execute выполняет его на новых данных:
//
//	binet train --spec flow.yaml --data stage0.csv,-,stage2.csv --execute x.csv --output -
//
// Планировщик выбирается флагом --scheduler: sequential, pool или remote.
// remote отправляет задачи воркерам через RabbitMQ; с --journal каждый
// train и execute записывается в PostgreSQL как run.
//
// ## Client
//
// HTTP-клиент журнала. Ошибку сервера возвращает как *APIError.
//
//	client := cli.NewClient("http://localhost:8080")
//	runs, err := client.ListRuns(ctx, cli.ListRunsOpts{Status: "FAILED"})
//
// ## Output
//
// Таблицы через text/tabwriter, с флагом --json — JSON.
//
// ## Commands
//
//   - train: обучение и выполнение flow
//   - flow: validate, kinds
//   - runs: list, show, tasks
//
// Каждая группа создаётся через фабричную функцию (NewRunsCmd и т.д.),
// принимающую outputFn (и clientFn) — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
