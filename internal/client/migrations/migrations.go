// Package migrations embeds the goose migration scripts for the client's
// on-device sqlite database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
