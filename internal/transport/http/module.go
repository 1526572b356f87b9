package http

import (
	"go.uber.org/fx"

	ordertransport "github.com/tileware/orderhub/internal/transport/http/order"
	pricetransport "github.com/tileware/orderhub/internal/transport/http/price"
	searchtransport "github.com/tileware/orderhub/internal/transport/http/search"
	soaptransport "github.com/tileware/orderhub/internal/transport/http/soap"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	searchtransport.Module,
	pricetransport.Module,
	soaptransport.Module,
)
