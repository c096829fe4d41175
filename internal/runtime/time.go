package runtime

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// ResolveTime returns t after checking its range, or the engine clock's
// current instant in UTC when t is nil.
func (e *Engine) ResolveTime(t *domain.Time) (domain.Time, error) {
	if t == nil {
		return domain.Time{Timestamp: e.now().Unix(), Offset: 0}, nil
	}
	if t.Timestamp < 0 {
		return domain.Time{}, &domain.InvalidTimeError{Value: t.Timestamp, Reason: "timestamp must be a non-negative epoch"}
	}
	if t.Offset < domain.MinOffset || t.Offset > domain.MaxOffset {
		return domain.Time{}, &domain.InvalidTimeError{
			Value:  t.Offset,
			Reason: fmt.Sprintf("offset must be within [%d, %d] minutes", domain.MinOffset, domain.MaxOffset),
		}
	}
	return *t, nil
}
