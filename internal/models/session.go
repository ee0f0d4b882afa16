package models

// Fingers — фиксированные ключи документов пальцев внутри коллекции
// сессии. Порядок значим и совпадает с порядком отображаемых названий.
var Fingers = []string{"Index", "Little", "Middle", "Ring"}

// FingerLabels — отображаемые названия пальцев, соотнесены 1:1
// с Fingers. Интерфейс продукта испаноязычный, ключи — нет.
var FingerLabels = []string{"Índice", "Meñique", "Medio", "Anular"}

// FingerReading — канонические метрики одного пальца за сессию.
// В хранилище метрики лежат как строки с суффиксами единиц
// ("12°", "3 N", "25 °/s") и парсятся библиотекой units.
type FingerReading struct {
	Angle      float64 `json:"angle"`      // Угол сгибания, градусы
	Force      float64 `json:"force"`      // Сила, ньютоны
	ServoForce float64 `json:"servoforce"` // Оценочная сила сервопривода, ньютоны
	Velocity   float64 `json:"velocity"`   // Скорость движения, градусы в секунду
}

// IsZero сообщает, что все метрики пальца нулевые.
func (r FingerReading) IsZero() bool {
	return r.Angle == 0 && r.Force == 0 && r.ServoForce == 0 && r.Velocity == 0
}

// ProcessedSession — сессия после нормализации: порядковый номер и
// показания четырёх пальцев в порядке Fingers. Отсутствующий документ
// пальца даёт нулевые показания.
type ProcessedSession struct {
	Ordinal  int             `json:"ordinal"`
	Readings []FingerReading `json:"readings"`
}

// Valid сообщает, была ли сессия отработана: хотя бы одна метрика
// хотя бы одного пальца отлична от нуля.
func (s ProcessedSession) Valid() bool {
	for _, r := range s.Readings {
		if !r.IsZero() {
			return true
		}
	}
	return false
}

// Angles возвращает углы всех пальцев в порядке Fingers.
func (s ProcessedSession) Angles() []float64 {
	return s.metric(func(r FingerReading) float64 { return r.Angle })
}

// Forces возвращает силы всех пальцев в порядке Fingers.
func (s ProcessedSession) Forces() []float64 {
	return s.metric(func(r FingerReading) float64 { return r.Force })
}

// ServoForces возвращает силы сервопривода всех пальцев в порядке Fingers.
func (s ProcessedSession) ServoForces() []float64 {
	return s.metric(func(r FingerReading) float64 { return r.ServoForce })
}

// Velocities возвращает скорости всех пальцев в порядке Fingers.
func (s ProcessedSession) Velocities() []float64 {
	return s.metric(func(r FingerReading) float64 { return r.Velocity })
}

func (s ProcessedSession) metric(f func(FingerReading) float64) []float64 {
	out := make([]float64, 0, len(s.Readings))
	for _, r := range s.Readings {
		out = append(out, f(r))
	}
	return out
}
