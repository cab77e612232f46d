// Package report records the outcome of benchmark runs.
//
// A Report describes one sweep point of a run: the bucket kind, the routing
// value, the recall it reached and what it cost. Sinks persist reports:
//
//	FileSink      one file per report in a blobstore.BlobStore (json or msgpack)
//	WriterSink    JSON lines on an io.Writer
//	DynamoDBSink  one item per report in a DynamoDB table
package report
