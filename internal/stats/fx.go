package stats

import (
	"go.uber.org/fx"

	"github.com/czei/themeparkhallofshame-sub001/internal/stats/repository"
)

var Module = fx.Module("stats",
	fx.Provide(repository.Provide),
)
