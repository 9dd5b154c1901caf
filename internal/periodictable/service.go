package periodictable

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/WOCOMLABS/jmv-arch/internal/feature"
)

// Service maps periodic-table actions to states. Only ActionData reaches
// the repository.
type Service struct {
	repository feature.Repository[Action, TableDTO]
}

// NewService creates a service backed by repository.
func NewService(repository feature.Repository[Action, TableDTO]) *Service {
	return &Service{repository: repository}
}

// UseWith never panics: repository errors and panics become failures.
func (s *Service) UseWith(ctx context.Context, action Action) feature.Result[State] {
	switch action {
	case ActionInitial:
		return feature.Success[State](Initialized{})
	case ActionLoad:
		return feature.Success[State](Loading{})
	case ActionData:
		return feature.Catch(func() (State, error) {
			dto, err := s.repository.InteractWith(ctx, action)
			if err != nil {
				return nil, err
			}
			return Success{Elements: toElements(dto)}, nil
		})
	default:
		return feature.Failure[State](fmt.Errorf("unknown action %s", action))
	}
}

// toElements keeps only the symbol of each element, NFC-normalised so
// equal symbols compare equal regardless of how the backend encoded them.
func toElements(dto TableDTO) []Element {
	elements := make([]Element, len(dto.Elements))
	for i, e := range dto.Elements {
		elements[i] = Element{Symbol: norm.NFC.String(strings.TrimSpace(e.Symbol))}
	}
	return elements
}
