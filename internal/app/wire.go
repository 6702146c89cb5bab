//go:build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"scalpbot/internal/config"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config, mode Mode) (*App, error) {
	wire.Build(
		provideAppBuilder,
		wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
		provideAppFromBuilder,
	)
	return nil, nil
}
