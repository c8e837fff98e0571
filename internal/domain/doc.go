// Package domain описывает записи журнала: Run и Task.
package domain
