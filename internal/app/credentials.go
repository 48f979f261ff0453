package app

import (
	"net/http"
	"time"

	"timetrack-gateway/internal/circuitbreaker"
	commonhttp "timetrack-gateway/internal/common/http"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/credentials"
	"timetrack-gateway/internal/identity"
	"timetrack-gateway/internal/metrics"
)

// initializeCredentials builds the identity client and starts the machine
// credential service. A provider that is down at startup does not stop the
// gateway: the service keeps retrying and /readyz reports it.
func (app *App) initializeCredentials() error {
	cfg := app.Config

	// The breaker's open period matches the retry interval so the next
	// scheduled attempt is the half-open probe.
	app.IdentityBreaker = circuitbreaker.NewGoBreaker("identity",
		circuitbreaker.OAuthConfig.WithTimeout(cfg.CredentialsRetryInterval),
		app.Logger,
		circuitbreaker.WithStateListener(func(name string, _, to circuitbreaker.State) {
			metrics.SetBreakerState(name, int(to))
		}),
	)

	client, err := identity.NewClient(identity.Config{
		TokenURL:     cfg.IdentityTokenURL,
		ClientID:     cfg.IdentityClientID,
		ClientSecret: cfg.IdentityClientSecret,
		Audience:     cfg.IdentityAudience,
		Scopes:       cfg.IdentityScopes,
	},
		identity.WithHTTPClient(commonhttp.NewHTTPClient(
			commonhttp.WithTimeout(cfg.IdentityHTTPTimeout),
			commonhttp.WithCheckRedirect(refuseRedirect),
		)),
		identity.WithCircuitBreaker(app.IdentityBreaker),
		identity.WithLogger(app.Logger),
	)
	if err != nil {
		return err
	}
	app.Identity = client

	service, err := credentials.NewService(client, credentials.NewClockTimer, app.Logger,
		credentials.WithRetryInterval(cfg.CredentialsRetryInterval),
		credentials.WithFetchTimeout(cfg.CredentialsFetchTimeout),
		credentials.WithRefreshListener(recordRefresh),
	)
	if err != nil {
		return err
	}
	app.Credentials = service

	app.Logger.Info("Machine credentials initialized",
		logging.Field{Key: "token_url", Value: cfg.IdentityTokenURL},
		logging.Field{Key: "state", Value: service.State().String()},
		logging.Field{Key: "retry_interval", Value: cfg.CredentialsRetryInterval.String()},
	)
	return nil
}

// refuseRedirect keeps the client secret from being re-posted to another
// location. The redirect reply surfaces as a failed fetch.
func refuseRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// recordRefresh feeds every fetch outcome into the credential metrics. A
// failed refresh that still has an earlier token keeps the ready gauge up.
func recordRefresh(result credentials.RefreshResult) {
	if result.Token == nil {
		metrics.RecordCredentialRefresh(result.Success, false, time.Time{})
		return
	}
	metrics.RecordCredentialRefresh(result.Success, true, result.Token.ExpiresAt())
}
