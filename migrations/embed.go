// Package migrations holds the share store schema: shares, share_members,
// share_messages and share_logs, as goose SQL files.
package migrations

import "embed"

// FS is handed to goose.NewProvider by the server at startup and by the
// integration tests.
//
//go:embed *.sql
var FS embed.FS
