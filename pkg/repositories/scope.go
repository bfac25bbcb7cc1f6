package repositories

import (
	"context"
	"fmt"

	"github.com/ranchforce/agriwebb-sync/pkg/database"
)

func scopeFrom(ctx context.Context) (database.Querier, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}
	return scope, nil
}
