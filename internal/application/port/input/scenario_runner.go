package input

import (
	"context"

	"brighthorizons-e2e/internal/domain/entity"
)

type ScenarioRunner interface {
	Execute(ctx context.Context) (*entity.ScenarioReport, error)
}
