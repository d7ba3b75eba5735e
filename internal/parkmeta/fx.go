package parkmeta

import (
	"go.uber.org/fx"

	"github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/repository"
)

var Module = fx.Module("parkmeta",
	fx.Provide(repository.Provide),
)
