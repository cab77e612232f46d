// Package bench runs YAML-configured recall/cost benchmarks.
//
// A run provisions a dataset (synthetic, local or fetched from S3/MinIO),
// clusters it into buckets, builds a vecbucket.Index of the configured kind
// and evaluates every routing value of the sweep twice: once with a single
// routing value for all queries and once with the budget split per query
// across the visited buckets. Each sweep point yields a report.Report.
package bench
