//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"user-admin-service/internal/app"
	"user-admin-service/internal/database"
)

func InitializeApp() (*app.App, error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeMigrationRunner() (*MigrationRunner, error) {
	panic(wire.Build(
		ConfigSet,
		database.Open,
		NewMigrationRunner,
	))
}
