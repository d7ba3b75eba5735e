package snapshot

import (
	"go.uber.org/fx"

	"github.com/czei/themeparkhallofshame-sub001/internal/snapshot/repository"
)

var Module = fx.Module("snapshot",
	fx.Provide(repository.Provide),
)
