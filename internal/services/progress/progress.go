// Package services содержит анализатор прогресса: сравнение двух
// нормализованных сессий по средним значениям метрик и построение
// текстового сообщения для пациента.
package services

import (
	"fmt"
	"strings"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
)

// Фиксированные подсказки при регрессе метрики.
const (
	hintAngle    = "Haz ejercicios suaves para mejorar la flexión."
	hintForce    = "Prueba ejercicios de resistencia."
	hintVelocity = "Practica movimientos más rápidos."
)

// Сообщения без метрик.
const (
	// MessageFirstSession выводится вместо сравнения, когда
	// предыдущей сессии нет.
	MessageFirstSession = "Primera sesión registrada. ¡Sigue así!"
	// MessageStable выводится, когда ни одна метрика не изменилась.
	MessageStable = "¡Sigue así! Tus métricas están estables."
	// MessageConsolation выводится, когда все три категоризируемые
	// метрики просели и улучшений нет.
	MessageConsolation = "¡Ánimo! Aunque hayas retrocedido un poco, cada pequeño esfuerzo cuenta. Sigue practicando y consulta a tu fisioterapeuta si necesitas apoyo."
)

// Analyze сравнивает текущую сессию с предыдущей: для каждой метрики
// считает среднее по четырём пальцам и категоризирует угол, силу и
// скорость. Сила сервопривода отслеживается, но не категоризируется.
// При отсутствии предыдущей сессии сравнение не выполняется и
// выставляется FirstSession.
func Analyze(current models.ProcessedSession, previous *models.ProcessedSession) models.ProgressResult {
	if previous == nil {
		return models.ProgressResult{
			Angle:        models.MetricProgress{Name: "angle", After: mean(current.Angles())},
			Force:        models.MetricProgress{Name: "force", After: mean(current.Forces())},
			ServoForce:   models.MetricProgress{Name: "servoforce", After: mean(current.ServoForces())},
			Velocity:     models.MetricProgress{Name: "velocity", After: mean(current.Velocities())},
			FirstSession: true,
		}
	}

	return models.ProgressResult{
		Angle:      classify("angle", mean(previous.Angles()), mean(current.Angles())),
		Force:      classify("force", mean(previous.Forces()), mean(current.Forces())),
		ServoForce: track("servoforce", mean(previous.ServoForces()), mean(current.ServoForces())),
		Velocity:   classify("velocity", mean(previous.Velocities()), mean(current.Velocities())),
	}
}

// BuildMessage строит текстовое сообщение по результату анализа.
// Порядок блоков фиксирован: улучшения (если есть); затем либо единое
// утешительное сообщение (ничего не улучшилось и все три метрики
// просели), либо подсказки по просевшим метрикам; если не изменилось
// ничего — нейтральное поощрение.
func BuildMessage(result models.ProgressResult) string {
	if result.FirstSession {
		return MessageFirstSession
	}

	var improvements, suggestions []string
	if result.Angle.Category == models.CategoryImproved {
		improvements = append(improvements, fmt.Sprintf("Flexión mejorada en %.1f°.", result.Angle.Delta))
	} else if result.Angle.Category == models.CategoryRegressed {
		suggestions = append(suggestions, hintAngle)
	}
	if result.Force.Category == models.CategoryImproved {
		improvements = append(improvements, fmt.Sprintf("Fuerza aumentada en %.1f N.", result.Force.Delta))
	} else if result.Force.Category == models.CategoryRegressed {
		suggestions = append(suggestions, hintForce)
	}
	if result.Velocity.Category == models.CategoryImproved {
		improvements = append(improvements, fmt.Sprintf("Velocidad mejorada en %.1f °/s.", result.Velocity.Delta))
	} else if result.Velocity.Category == models.CategoryRegressed {
		suggestions = append(suggestions, hintVelocity)
	}

	var blocks []string
	if len(improvements) > 0 {
		blocks = append(blocks, "Mejoras: "+strings.Join(improvements, " "))
	}
	switch {
	case len(improvements) == 0 && allRegressed(result):
		blocks = append(blocks, MessageConsolation)
	case len(suggestions) > 0:
		blocks = append(blocks, "Sugerencias: "+strings.Join(suggestions, " "))
	case len(improvements) == 0:
		blocks = append(blocks, MessageStable)
	}
	return strings.Join(blocks, "\n")
}

func allRegressed(result models.ProgressResult) bool {
	for _, m := range result.Classified() {
		if m.Category != models.CategoryRegressed {
			return false
		}
	}
	return true
}

func classify(name string, before, after float64) models.MetricProgress {
	m := track(name, before, after)
	switch {
	case after > before:
		m.Category = models.CategoryImproved
	case after < before:
		m.Category = models.CategoryRegressed
	default:
		m.Category = models.CategoryStable
	}
	return m
}

func track(name string, before, after float64) models.MetricProgress {
	return models.MetricProgress{
		Name:   name,
		Before: before,
		After:  after,
		Delta:  after - before,
	}
}

// mean никогда не делит на ноль: пустой список усредняется в 0.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
