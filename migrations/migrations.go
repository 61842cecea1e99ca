// Package migrations embeds the BigQuery DDL applied by cmd/migrate.
// Files are named NNNN_name.sql and may use {{PROJECT_ID}} and {{DATASET_ID}}.
package migrations

import "embed"

//go:embed bigquery/*.sql
var BigQuery embed.FS
