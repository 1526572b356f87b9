package manticore

import (
	"go.uber.org/fx"

	"github.com/tileware/orderhub/internal/config"
)

// Module provides the manticore client to Fx.
var Module = fx.Provide(func(cfg config.Config) *Client {
	return NewClient(cfg.Search)
})
