// Package dataset загружает обучающие данные для CLI.
//
// Формат файла: CSV без кавычек, одна строка матрицы на строку файла.
// Первая строка считается заголовком, если в ней нет ни одного числа.
// Строки, начинающиеся с '#', пропускаются.
//
// Данные стадии делятся на чанки (Matrix.Split), и каждый чанк становится
// отдельной задачей планировщика.
package dataset
