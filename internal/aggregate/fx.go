// Package aggregate wires the aggregation engine into the application.
package aggregate

import (
	"go.uber.org/fx"

	"github.com/czei/themeparkhallofshame-sub001/internal/aggregate/service"
)

var Module = fx.Module("aggregate",
	fx.Provide(service.NewService),
)
