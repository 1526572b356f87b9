package app

import (
	"go.uber.org/fx"

	"github.com/tileware/orderhub/internal/cache"
	"github.com/tileware/orderhub/internal/config"
	"github.com/tileware/orderhub/internal/database"
	"github.com/tileware/orderhub/internal/logger"
	"github.com/tileware/orderhub/internal/messaging"
	"github.com/tileware/orderhub/internal/observability"
	repositoryorder "github.com/tileware/orderhub/internal/repository/order"
	"github.com/tileware/orderhub/internal/search/manticore"
	grpcserver "github.com/tileware/orderhub/internal/server/grpc"
	httpserver "github.com/tileware/orderhub/internal/server/http"
	serviceorder "github.com/tileware/orderhub/internal/service/order"
	serviceprice "github.com/tileware/orderhub/internal/service/price"
	servicesearch "github.com/tileware/orderhub/internal/service/search"
	servicesoap "github.com/tileware/orderhub/internal/service/soap"
	transporthttp "github.com/tileware/orderhub/internal/transport/http"
	"github.com/tileware/orderhub/internal/worker"
	workerorder "github.com/tileware/orderhub/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	manticore.Module,
	serviceorder.Module,
	servicesearch.Module,
	serviceprice.Module,
	servicesoap.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
