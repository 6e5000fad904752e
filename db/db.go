// Package db carries the canonical schema so tooling and the integration
// test containers apply the same DDL.
package db

import _ "embed"

//go:embed schema.sql
var Schema string
