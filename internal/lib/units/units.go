// Package units реализует разбор сенсорных метрик перчатки.
//
// Прошивка перчатки и импортированные из Firestore данные хранят метрики
// строками с суффиксами единиц: "12°", "3 N", "25 °/s". Пакет снимает
// точный суффикс и приводит значение к float64; отсутствующее или
// некорректное значение даёт 0, а не ошибку.
package units

import (
	"strconv"
	"strings"
)

// Суффиксы единиц, в точности как их пишет прошивка.
const (
	SuffixAngle    = "°"
	SuffixForce    = " N"
	SuffixVelocity = " °/s"
)

// ParseAngle разбирает угол сгибания в градусах.
func ParseAngle(s string) float64 {
	return parse(s, SuffixAngle)
}

// ParseForce разбирает силу в ньютонах. Используется и для силы
// сервопривода — суффикс у них общий.
func ParseForce(s string) float64 {
	return parse(s, SuffixForce)
}

// ParseVelocity разбирает скорость движения в градусах в секунду.
func ParseVelocity(s string) float64 {
	return parse(s, SuffixVelocity)
}

// FormatAngle возвращает угол в текстовом формате прошивки.
func FormatAngle(v float64) string {
	return format(v) + SuffixAngle
}

// FormatForce возвращает силу в текстовом формате прошивки.
func FormatForce(v float64) string {
	return format(v) + SuffixForce
}

// FormatVelocity возвращает скорость в текстовом формате прошивки.
func FormatVelocity(v float64) string {
	return format(v) + SuffixVelocity
}

// parse снимает суффикс и приводит остаток к числу. Любой хвост,
// оставшийся после снятия суффикса, делает значение некорректным.
func parse(s, suffix string) float64 {
	if s == "" {
		return 0
	}
	trimmed := strings.TrimSuffix(s, suffix)
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return v
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
