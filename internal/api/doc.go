// Package api — HTTP API журнала runs и tasks.
//
// API только читает журнал: runs создаёт удалённый планировщик при обучении
// или выполнении, задачи пишут планировщик и воркеры. Обработчики
// возвращают ошибку, ответ из неё собирает Handler.serve.
package api
