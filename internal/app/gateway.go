package app

import (
	"net/http"

	commonhttp "timetrack-gateway/internal/common/http"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/config"
	"timetrack-gateway/internal/credentials"
	"timetrack-gateway/internal/gateway"
	"timetrack-gateway/internal/routing"
)

// Every proxied request goes to one of two hosts
const upstreamIdleConnsPerHost = 64

func (app *App) initializeGateway() error {
	cfg := app.Config

	router, err := routing.NewRouter(routing.RouteTable{
		Dashboard: cfg.DashboardURL,
		Downloads: cfg.DownloadsURL,
	})
	if err != nil {
		return err
	}
	app.Router = router

	// Proxied responses are streamed, so only the wait for response headers
	// is bounded. Backend encodings are relayed untouched.
	upstream := commonhttp.NewTransport(
		commonhttp.WithResponseHeaderTimeout(cfg.UpstreamTimeout),
		commonhttp.WithMaxIdleConnsPerHost(upstreamIdleConnsPerHost),
		commonhttp.WithoutCompression(),
	)

	opts := []gateway.Option{
		gateway.WithDefaultTransport(upstream),
		gateway.WithLogger(app.Logger),
	}
	for _, backend := range []string{config.BackendDashboard, config.BackendDownloads} {
		if !cfg.MachineAuthEnabled(backend) {
			continue
		}
		opts = append(opts, gateway.WithTransport(backend, app.machineTransport(upstream)))
		app.Logger.Info("Machine credentials attached to backend", logging.Field{Key: "backend", Value: backend})
	}

	app.Gateway = gateway.New(router, app.Auth, opts...)

	app.Logger.Info("Gateway routes configured",
		logging.Field{Key: "dashboard", Value: cfg.DashboardURL},
		logging.Field{Key: "downloads", Value: cfg.DownloadsURL},
	)
	return nil
}

func (app *App) machineTransport(base http.RoundTripper) http.RoundTripper {
	return credentials.NewTransport(app.Credentials, base)
}
