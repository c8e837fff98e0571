// Package nodes содержит эталонные узлы для flow.
//
// Это не библиотека алгоритмов: узлы нужны, чтобы было на чём гонять
// движок. Все обучаемые узлы копят достаточные статистики (суммы и счётчики),
// поэтому их Join — это сложение, не зависящее от порядка снимков.
//
//   - identity     — без обучения, y = x
//   - polynomial   — без обучения, все мономы степени 1..degree
//   - center       — 1 фаза, вычитает среднее
//   - standardize  — 2 фазы: среднее, затем дисперсия вокруг среднего
//   - select       — 1 фаза, оставляет output_dim столбцов с наибольшей дисперсией
//   - router       — BiNode, возвращает поток на стадию target не более limit раз
package nodes
