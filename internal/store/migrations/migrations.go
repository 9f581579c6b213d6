// Package migrations embeds the Postgres DDL for the inventory tables.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
