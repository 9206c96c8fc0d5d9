package main

import (
	"context"

	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	app := mustBootstrapShipAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Get().Fatal("ship-api stopped", zap.Error(err))
	}
}
