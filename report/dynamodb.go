package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/vecbucket/codec"
)

// DDBClient is the subset of the DynamoDB API used by DynamoDBSink.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrDuplicate is returned when a report with the same run id and sequence
// number was already stored.
var ErrDuplicate = errors.New("report: duplicate report")

// DynamoDBSink stores reports in a DynamoDB table.
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: seq (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vecbucket-reports \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=seq,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=seq,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
//
// Headline metrics are stored as top-level attributes; the full report is
// kept as JSON in the body attribute.
type DynamoDBSink struct {
	client DDBClient
	table  string
}

// NewDynamoDBSink creates a sink writing to table.
func NewDynamoDBSink(client DDBClient, table string) *DynamoDBSink {
	return &DynamoDBSink{client: client, table: table}
}

// Write stores r. Reports are never overwritten.
func (s *DynamoDBSink) Write(ctx context.Context, r *Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	body, err := codec.GoJSON{}.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}

	item := map[string]types.AttributeValue{
		"run_id":         &types.AttributeValueMemberS{Value: r.RunID},
		"seq":            &types.AttributeValueMemberN{Value: strconv.Itoa(r.Seq)},
		"kind":           &types.AttributeValueMemberS{Value: r.Kind},
		"mode":           &types.AttributeValueMemberS{Value: r.Mode},
		"routing":        &types.AttributeValueMemberN{Value: strconv.Itoa(r.Routing)},
		"recall":         &types.AttributeValueMemberN{Value: strconv.FormatFloat(r.Recall, 'f', -1, 64)},
		"search_seconds": &types.AttributeValueMemberN{Value: strconv.FormatFloat(r.SearchSeconds, 'f', -1, 64)},
		"body":           &types.AttributeValueMemberS{Value: string(body)},
	}
	if r.Dataset != "" {
		item["dataset"] = &types.AttributeValueMemberS{Value: r.Dataset}
	}
	if r.DistanceComputations != nil {
		item["distance_computations"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(*r.DistanceComputations, 10)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(seq)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: run %s seq %d", ErrDuplicate, r.RunID, r.Seq)
		}
		return fmt.Errorf("report: put item: %w", err)
	}
	return nil
}

// Load reads back every report of a run, ordered by sequence number.
func (s *DynamoDBSink) Load(ctx context.Context, runID string) ([]*Report, error) {
	var (
		out   []*Report
		start map[string]types.AttributeValue
	)
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("run_id = :run"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":run": &types.AttributeValueMemberS{Value: runID},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("report: query: %w", err)
		}
		for _, item := range resp.Items {
			body, ok := item["body"].(*types.AttributeValueMemberS)
			if !ok {
				return nil, errors.New("report: item without body attribute")
			}
			r := new(Report)
			if err := (codec.GoJSON{}).Unmarshal([]byte(body.Value), r); err != nil {
				return nil, fmt.Errorf("report: decode: %w", err)
			}
			out = append(out, r)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = resp.LastEvaluatedKey
	}
}
