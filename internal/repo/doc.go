// Package repo — журнал runs и tasks в PostgreSQL (pgx).
//
// Журнал ведут удалённый планировщик (создаёт runs и tasks) и воркер
// (переводит tasks в RUNNING/SUCCEEDED/FAILED). API и CLI только читают.
//
// Open подключается по DBConfig и сразу применяет схему (Migrate).
package repo
