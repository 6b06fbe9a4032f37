package store

import (
	"strconv"
	"time"

	"mediagrab-be-server/src/application/records/entity"
	"mediagrab-be-server/src/lib/cerr"

	"github.com/aws/aws-sdk-go/service/dynamodb"
)

func recordFromItem(item map[string]*dynamodb.AttributeValue) (entity.DownloadRecord, error) {
	id, err := getStringField(item, idField)
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to get record ID")
	}

	userID, err := getStringField(item, "user_id")
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to get user ID")
	}

	fileURL, err := getStringField(item, "file_url")
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to get file URL")
	}

	statusVal, err := getStringField(item, "record_status")
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to get record status")
	}

	status, err := entity.ConvertToStatus(statusVal)
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to convert status string value to enum")
	}

	timestampVal, err := getStringField(item, "timestamp")
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to get timestamp")
	}

	timestamp, err := time.Parse(time.RFC3339Nano, timestampVal)
	if err != nil {
		return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to parse record timestamp")
	}

	record := entity.DownloadRecord{
		ID:        id,
		UserID:    userID,
		FileURL:   fileURL,
		Status:    status,
		Timestamp: timestamp,
	}

	record.FileName = getOptionalStringField(item, "file_name")
	record.Error = getOptionalStringField(item, "error_message")

	if completedAtVal := getOptionalStringField(item, "completed_at"); completedAtVal != "" {
		completedAt, err := time.Parse(time.RFC3339Nano, completedAtVal)
		if err != nil {
			return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to parse record completion time")
		}
		record.CompletedAt = completedAt
	}

	if sizeAttr, ok := item["file_size"]; ok && sizeAttr.N != nil {
		size, err := strconv.ParseInt(*sizeAttr.N, 10, 64)
		if err != nil {
			return entity.DownloadRecord{}, cerr.Wrap(err).Error("Failed to parse record file size")
		}
		record.FileSize = size
	}

	if metadataAttr, ok := item["metadata"]; ok && metadataAttr.M != nil {
		metadata := map[string]string{}
		for key, value := range metadataAttr.M {
			if value.S == nil {
				continue
			}
			metadata[key] = *value.S
		}
		record.Metadata = metadata
	}

	return record, nil
}

func getStringField(object map[string]*dynamodb.AttributeValue, fieldKey string) (string, error) {
	stringVal, ok := object[fieldKey]
	if !ok {
		return "", cerr.Field("field_key", fieldKey).Error("Missing string key on object")
	}

	if stringVal.S == nil {
		return "", cerr.Field("field_key", fieldKey).Error("String value is empty")
	}

	return *stringVal.S, nil
}

func getOptionalStringField(object map[string]*dynamodb.AttributeValue, fieldKey string) string {
	stringVal, ok := object[fieldKey]
	if !ok || stringVal.S == nil {
		return ""
	}

	return *stringVal.S
}
