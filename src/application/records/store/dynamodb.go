package store

import (
	"context"
	"sort"
	"strconv"
	"time"

	"mediagrab-be-server/src/application/records/entity"
	"mediagrab-be-server/src/lib/cerr"
	"mediagrab-be-server/src/lib/env"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

var (
	tableName = "DownloadRecords"
	idField   = "record_id"
)

const (
	userIDValueName = ":userID"
	statusValueName = ":statusValue"

	defaultPageLimit = 20
	maxPageLimit     = 100
)

var _ entity.RecordStore = DynamoDBRecordStore{}

func NewDynamoDBRecordStore(environment env.Environment) DynamoDBRecordStore {
	dbSession := session.Must(session.NewSession())

	config := aws.NewConfig().WithRegion("us-east-2").WithCredentials(credentials.NewEnvCredentials())

	if environment == env.Development {
		config = config.WithEndpoint("http://localhost:8000")
	}

	client := dynamodb.New(dbSession, config)
	return DynamoDBRecordStore{
		dynamoDBClient: client,
	}
}

type DynamoDBRecordStore struct {
	dynamoDBClient *dynamodb.DynamoDB
}

func (d DynamoDBRecordStore) CreateRecord(_ context.Context, record entity.DownloadRecord) (string, error) {
	if record.ID == "" {
		return "", cerr.Error("Cannot create a record without an ID")
	}

	err := d.putRecord(record)
	if err != nil {
		return "", cerr.Field("record_id", record.ID).
			Wrap(err).Error("Failed to create download record")
	}

	return record.ID, nil
}

// SaveRecord is a full overwrite keyed by the record ID. PutItem with
// identical contents is a no-op from the reader's perspective, which is
// what makes repeated saves of a terminal record safe.
func (d DynamoDBRecordStore) SaveRecord(_ context.Context, record entity.DownloadRecord) error {
	if record.ID == "" {
		return cerr.Error("Cannot save a record without an ID")
	}

	err := d.putRecord(record)
	if err != nil {
		return cerr.Field("record_id", record.ID).
			Wrap(err).Error("Failed to save download record")
	}

	return nil
}

func (d DynamoDBRecordStore) GetRecord(_ context.Context, id string) (entity.DownloadRecord, error) {
	consistentRead := true

	output, err := d.dynamoDBClient.GetItem(&dynamodb.GetItemInput{
		ConsistentRead: &consistentRead,
		Key:            makeKey(id),
		TableName:      &tableName,
	})
	if err != nil {
		return entity.DownloadRecord{}, cerr.Field("record_id", id).
			Wrap(err).Error("Failed to get download record from DynamoDB")
	}

	if len(output.Item) == 0 {
		return entity.DownloadRecord{}, cerr.Field("record_id", id).Error("Download record not found")
	}

	record, err := recordFromItem(output.Item)
	if err != nil {
		return entity.DownloadRecord{}, cerr.Field("record_id", id).
			Wrap(err).Error("Failed to convert item to download record")
	}

	return record, nil
}

func (d DynamoDBRecordStore) FindRecords(_ context.Context, filter entity.RecordFilter, page entity.Pagination) ([]entity.DownloadRecord, error) {
	records, err := d.scanRecords(filter)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to scan download records")
	}

	sort.Slice(records, func(i int, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return paginate(records, page), nil
}

// StatusStats aggregates client side. DynamoDB has no server side
// aggregation, the scan is bounded by the per-user record count.
func (d DynamoDBRecordStore) StatusStats(_ context.Context, userID string) ([]entity.StatusStat, error) {
	records, err := d.scanRecords(entity.RecordFilter{UserID: userID})
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to scan download records")
	}

	statsByStatus := map[entity.Status]*entity.StatusStat{}
	for _, record := range records {
		stat, ok := statsByStatus[record.Status]
		if !ok {
			stat = &entity.StatusStat{Status: record.Status}
			statsByStatus[record.Status] = stat
		}

		stat.Count++
		stat.TotalSize += record.FileSize
	}

	stats := []entity.StatusStat{}
	for _, status := range []entity.Status{entity.PendingStatus, entity.DownloadingStatus, entity.CompletedStatus, entity.FailedStatus} {
		if stat, ok := statsByStatus[status]; ok {
			stats = append(stats, *stat)
		}
	}

	return stats, nil
}

func (d DynamoDBRecordStore) DeleteRecord(_ context.Context, id string) error {
	_, err := d.dynamoDBClient.DeleteItem(&dynamodb.DeleteItemInput{
		Key:       makeKey(id),
		TableName: &tableName,
	})
	if err != nil {
		return cerr.Field("record_id", id).
			Wrap(err).Error("Failed to delete download record")
	}

	return nil
}

func (d DynamoDBRecordStore) putRecord(record entity.DownloadRecord) error {
	_, err := d.dynamoDBClient.PutItem(&dynamodb.PutItemInput{
		Item:      itemFromRecord(record),
		TableName: &tableName,
	})
	if err != nil {
		return cerr.Wrap(err).Error("Failed to put item into DynamoDB")
	}

	return nil
}

func (d DynamoDBRecordStore) scanRecords(filter entity.RecordFilter) ([]entity.DownloadRecord, error) {
	filterExpression := "user_id = " + userIDValueName

	userIDValue := dynamodb.AttributeValue{}
	userIDValue.SetS(filter.UserID)

	expressionAttributeValues := map[string]*dynamodb.AttributeValue{
		userIDValueName: &userIDValue,
	}

	if filter.Status != "" {
		filterExpression += " AND record_status = " + statusValueName
		statusValue := dynamodb.AttributeValue{}
		statusValue.SetS(string(filter.Status))
		expressionAttributeValues[statusValueName] = &statusValue
	}

	records := []entity.DownloadRecord{}
	var startKey map[string]*dynamodb.AttributeValue

	for {
		output, err := d.dynamoDBClient.Scan(&dynamodb.ScanInput{
			ExclusiveStartKey:         startKey,
			ExpressionAttributeValues: expressionAttributeValues,
			FilterExpression:          &filterExpression,
			TableName:                 &tableName,
		})
		if err != nil {
			return nil, cerr.Wrap(err).Error("Failed to scan DynamoDB table")
		}

		for _, item := range output.Items {
			record, err := recordFromItem(item)
			if err != nil {
				return nil, cerr.Wrap(err).Error("Failed to convert item to download record")
			}
			records = append(records, record)
		}

		if output.LastEvaluatedKey == nil {
			break
		}
		startKey = output.LastEvaluatedKey
	}

	return records, nil
}

func paginate(records []entity.DownloadRecord, page entity.Pagination) []entity.DownloadRecord {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	pageNumber := page.Page
	if pageNumber < 1 {
		pageNumber = 1
	}

	start := (pageNumber - 1) * limit
	if start >= len(records) {
		return []entity.DownloadRecord{}
	}

	end := start + limit
	if end > len(records) {
		end = len(records)
	}

	return records[start:end]
}

func makeKey(id string) map[string]*dynamodb.AttributeValue {
	attributeValue := dynamodb.AttributeValue{}
	attributeValue.SetS(id)
	return map[string]*dynamodb.AttributeValue{
		idField: &attributeValue,
	}
}

func itemFromRecord(record entity.DownloadRecord) map[string]*dynamodb.AttributeValue {
	item := map[string]*dynamodb.AttributeValue{}

	setStringField(item, idField, record.ID)
	setStringField(item, "user_id", record.UserID)
	setStringField(item, "file_url", record.FileURL)
	setStringField(item, "record_status", string(record.Status))
	setStringField(item, "timestamp", record.Timestamp.Format(time.RFC3339Nano))

	if record.FileName != "" {
		setStringField(item, "file_name", record.FileName)
	}
	if record.Error != "" {
		setStringField(item, "error_message", record.Error)
	}
	if !record.CompletedAt.IsZero() {
		setStringField(item, "completed_at", record.CompletedAt.Format(time.RFC3339Nano))
	}

	fileSize := dynamodb.AttributeValue{}
	fileSize.SetN(strconv.FormatInt(record.FileSize, 10))
	item["file_size"] = &fileSize

	if len(record.Metadata) > 0 {
		metadata := dynamodb.AttributeValue{}
		metadata.SetM(convertToAttributeValues(record.Metadata))
		item["metadata"] = &metadata
	}

	return item
}

func setStringField(item map[string]*dynamodb.AttributeValue, key string, value string) {
	attributeValue := dynamodb.AttributeValue{}
	attributeValue.SetS(value)
	item[key] = &attributeValue
}

func convertToAttributeValues(m map[string]string) map[string]*dynamodb.AttributeValue {
	output := map[string]*dynamodb.AttributeValue{}

	for k, v := range m {
		attributeValue := dynamodb.AttributeValue{}
		attributeValue.SetS(v)
		output[k] = &attributeValue
	}

	return output
}
