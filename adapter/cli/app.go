package cli

import (
	"github.com/plumeapp/plume/internal/entitlements/application"
	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// App holds the CLI application dependencies.
type App struct {
	// Entitlement engine
	Engine *application.Engine

	// Subscription repository, for read-only status queries
	SubscriptionRepo domain.SubscriptionRepository

	// Product ids offered by this build (configured per environment)
	ProductIDs []string

	// Current user (configured per environment)
	CurrentUserID int64
}

// DefaultProductIDs returns the product ids the running app offers.
func DefaultProductIDs() []string {
	if app != nil && len(app.ProductIDs) > 0 {
		return app.ProductIDs
	}
	return nil
}

// NewApp creates a new CLI application.
func NewApp(engine *application.Engine, subscriptions domain.SubscriptionRepository) *App {
	return &App{
		Engine:           engine,
		SubscriptionRepo: subscriptions,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id int64) {
	a.CurrentUserID = id
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
