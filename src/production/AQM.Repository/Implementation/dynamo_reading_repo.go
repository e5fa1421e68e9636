package implementation

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	aqmmodels "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Models"
	interfaces "gitlab.com/maplesense1/aqm.air_monitor/src/production/AQM.Repository/Interfaces"
)

// DynamoAPI is the subset of *dynamodb.Client the repository uses
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoReadingRepository stores readings in a table with partition key
// deviceId (S) and sort key timestamp (N).
type DynamoReadingRepository struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoReadingRepository(client DynamoAPI, tableName string) *DynamoReadingRepository {
	return &DynamoReadingRepository{client: client, tableName: tableName}
}

func (r *DynamoReadingRepository) PutReading(ctx context.Context, reading aqmmodels.Reading) error {
	item, err := attributevalue.MarshalMap(reading.Item())
	if err != nil {
		return &interfaces.StoreWriteError{Err: fmt.Errorf("failed to marshal reading: %w", err)}
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return &interfaces.StoreWriteError{Err: err}
	}
	return nil
}

func (r *DynamoReadingRepository) QueryByDevice(ctx context.Context, deviceID string, sinceTs int64) ([]aqmmodels.Reading, error) {
	if deviceID == "" {
		return nil, interfaces.ErrDeviceIDRequired
	}

	keyCond := expression.Key(aqmmodels.DeviceIDKey).Equal(expression.Value(deviceID)).
		And(expression.Key(aqmmodels.TimestampKey).GreaterThanEqual(expression.Value(sinceTs)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(interfaces.MaxDeviceQueryItems),
	}

	readings := make([]aqmmodels.Reading, 0)
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() && len(readings) < interfaces.MaxDeviceQueryItems {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
		}
		batch, err := unmarshalReadings(page.Items)
		if err != nil {
			return nil, &interfaces.StoreReadError{Op: interfaces.OpQueryByDevice, Err: err}
		}
		readings = append(readings, batch...)
	}

	if len(readings) > interfaces.MaxDeviceQueryItems {
		readings = readings[:interfaces.MaxDeviceQueryItems]
	}
	return readings, nil
}

func (r *DynamoReadingRepository) ScanSince(ctx context.Context, sinceTs int64) ([]aqmmodels.Reading, error) {
	filter := expression.Name(aqmmodels.TimestampKey).GreaterThanEqual(expression.Value(sinceTs))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	readings := make([]aqmmodels.Reading, 0)
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
		}
		batch, err := unmarshalReadings(page.Items)
		if err != nil {
			return nil, &interfaces.StoreReadError{Op: interfaces.OpScanSince, Err: err}
		}
		readings = append(readings, batch...)
	}
	return readings, nil
}

func (r *DynamoReadingRepository) ListDeviceIDs(ctx context.Context) ([]string, error) {
	proj := expression.NamesList(expression.Name(aqmmodels.DeviceIDKey))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
	}

	input := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	}

	ids := make([]string, 0)
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
		}
		for _, item := range page.Items {
			var id string
			if err := attributevalue.Unmarshal(item[aqmmodels.DeviceIDKey], &id); err != nil {
				return nil, &interfaces.StoreReadError{Op: interfaces.OpListDeviceIDs, Err: err}
			}
			ids = append(ids, id)
		}
	}
	return distinctSorted(ids), nil
}

// Ping scans a single item, the cheapest read that proves table access
func (r *DynamoReadingRepository) Ping(ctx context.Context) error {
	proj := expression.NamesList(expression.Name(aqmmodels.DeviceIDKey))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return &interfaces.StoreReadError{Op: interfaces.OpPing, Err: err}
	}

	_, err = r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
		Limit:                    aws.Int32(1),
	})
	if err != nil {
		return &interfaces.StoreReadError{Op: interfaces.OpPing, Err: err}
	}
	return nil
}

func unmarshalReadings(items []map[string]types.AttributeValue) ([]aqmmodels.Reading, error) {
	readings := make([]aqmmodels.Reading, 0, len(items))
	for _, item := range items {
		var raw map[string]interface{}
		if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		reading, err := aqmmodels.ReadingFromItem(raw)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, nil
}
