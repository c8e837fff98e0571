// Package engine загружает описание flow из YAML и строит по нему flow.
//
// # Формат
//
//	name: sfa-like
//	type: biflow          # flow (по умолчанию) или biflow
//	max_hops: 200         # только для biflow
//	stages:
//	  - kind: standardize
//	  - kind: parallel-flow
//	    stages:
//	      - kind: center
//	      - kind: select
//	        params: {output_dim: 6}
//	  - kind: polynomial
//	    params: {degree: 2}
//	  - kind: select
//	    params: {output_dim: 5}
//
// kind — имя узла в node.Registry. Вложенные stages допустимы только для
// flow, parallel-flow, biflow и parallel-biflow. Вложенный biflow ведёт
// свой маршрут, его лимит hop'ов задаётся params: {max_hops: N}.
//
// # Использование
//
//	spec, err := engine.LoadSpec("flow.yaml")
//	reg := engine.Registry()
//	if err := engine.Validate(spec, reg); err != nil { ... }
//	runner, err := engine.Build(spec, reg)
//	err = runner.Train(ctx, data, sched)
//
// Ошибки валидации — *ValidationError с путём до стадии.
package engine
