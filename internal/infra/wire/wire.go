//go:build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/videolens/server/internal/infra/config"
)

// InitializeApp assembles the service from configuration.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		AppSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
