package search

import "go.uber.org/fx"

// Module provides the search service to Fx.
var Module = fx.Provide(NewService)
