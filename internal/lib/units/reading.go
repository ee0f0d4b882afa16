package units

import (
	"github.com/magabrotheeeer/glove-rehab-tracker/internal/models"
)

// ParseReading превращает сырые поля документа пальца в канонические
// метрики. Поле может быть строкой в формате прошивки или числом
// (типизированная запись); всё остальное даёт 0.
func ParseReading(fields map[string]any) models.FingerReading {
	return models.FingerReading{
		Angle:      field(fields, "angle", ParseAngle),
		Force:      field(fields, "force", ParseForce),
		ServoForce: field(fields, "servoforce", ParseForce),
		Velocity:   field(fields, "velocity", ParseVelocity),
	}
}

// ZeroFields возвращает поля пальца с нулевыми метриками в текстовом
// формате прошивки. Такими документами архиватор преднаполняет
// следующую сессию.
func ZeroFields() map[string]any {
	return map[string]any{
		"angle":      FormatAngle(0),
		"force":      FormatForce(0),
		"servoforce": FormatForce(0),
		"velocity":   FormatVelocity(0),
	}
}

func field(fields map[string]any, name string, parse func(string) float64) float64 {
	switch v := fields[name].(type) {
	case string:
		return parse(v)
	case float64:
		return v
	default:
		return 0
	}
}
