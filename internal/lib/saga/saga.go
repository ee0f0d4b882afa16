// Package saga реализует компенсируемую последовательность шагов:
// упорядоченный список прямых действий с парными откатами.
//
// Execute выполняет шаги по порядку; при ошибке откатывает уже
// выполненные шаги в обратном порядке и возвращает исходную ошибку.
// Ошибки откатов логируются и не прерывают компенсацию остальных шагов.
package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/glove-rehab-tracker/internal/lib/sl"
)

// Step — один шаг саги. Compensate может быть nil, если шагу нечего
// откатывать.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga — упорядоченный набор шагов с откатами.
type Saga struct {
	log   *slog.Logger
	steps []Step
}

// New создает новую сагу с переданным логгером.
func New(log *slog.Logger) *Saga {
	return &Saga{log: log}
}

// AddStep добавляет шаг в конец последовательности.
func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute выполняет шаги по порядку. При ошибке шага запускает
// компенсации выполненных шагов в обратном порядке.
func (s *Saga) Execute(ctx context.Context) error {
	const op = "saga.Execute"
	for i, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			s.log.Error("saga step failed, compensating",
				slog.String("step", step.Name), sl.Err(err))
			s.compensate(ctx, i-1)
			return fmt.Errorf("%s: step %s: %w", op, step.Name, err)
		}
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, from int) {
	for i := from; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.log.Error("saga compensation failed",
				slog.String("step", step.Name), sl.Err(err))
		}
	}
}
