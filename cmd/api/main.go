package main

import (
	"go.uber.org/fx"

	"github.com/tileware/orderhub/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
