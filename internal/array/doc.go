// Package array содержит минимальный плотный тип матрицы для узлов и flow.
//
// Matrix хранит данные построчно (row-major): строки — наблюдения,
// столбцы — измерения. Числовые ядра узлов работают поверх Matrix,
// сама матрица не знает ничего о обучении.
//
//	x := array.New(100, 10)
//	parts := x.Split(5)        // 5 чанков по 20 строк
//	y := array.VStack(parts...) // обратно (100, 10)
package array
