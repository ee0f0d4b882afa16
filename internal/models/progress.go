package models

// Категории изменения метрики между двумя сессиями.
const (
	CategoryImproved  = "improved"
	CategoryRegressed = "regressed"
	CategoryStable    = "stable"
)

// MetricProgress — динамика одной метрики: средние значения по четырём
// пальцам до и после, разница и категория. Сила сервопривода
// отслеживается, но не категоризируется.
type MetricProgress struct {
	Name     string  `json:"name"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
	Delta    float64 `json:"delta"`
	Category string  `json:"category,omitempty"`
}

// ProgressResult — структурированный результат сравнения двух сессий.
// FirstSession выставляется, когда предыдущей сессии нет и сравнение
// не выполнялось.
type ProgressResult struct {
	Angle        MetricProgress `json:"angle"`
	Force        MetricProgress `json:"force"`
	ServoForce   MetricProgress `json:"servoforce"`
	Velocity     MetricProgress `json:"velocity"`
	FirstSession bool           `json:"first_session"`
}

// Classified возвращает категоризируемые метрики: угол, силу и скорость.
func (r ProgressResult) Classified() []MetricProgress {
	return []MetricProgress{r.Angle, r.Force, r.Velocity}
}

// ProgressReport — данные дашборда: нормализованная последняя валидная
// сессия, номер сессии для отображения, результат анализа и готовое
// текстовое сообщение.
type ProgressReport struct {
	HasSessions  bool              `json:"has_sessions"`
	SessionCount int               `json:"session_count"`
	Session      *ProcessedSession `json:"session,omitempty"`
	Result       *ProgressResult   `json:"result,omitempty"`
	Message      string            `json:"message"`
}
