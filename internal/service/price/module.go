package price

import "go.uber.org/fx"

// Module provides the price service and its fetcher chain to Fx.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewTileExpertFetcher,
			fx.As(new(Fetcher)),
			fx.ResultTags(`group:"price.fetchers"`),
		),
	),
	fx.Provide(NewService),
)
