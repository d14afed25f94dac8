// Package migrations embeds the goose SQL migration files so cmd/gateway
// can apply them against Postgres on startup without a separate CLI step.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
