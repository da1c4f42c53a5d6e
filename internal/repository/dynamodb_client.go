package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefixRecord = "RECORD#"
	skSnapshot     = "SNAPSHOT"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoRecord.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoRecord keeps a whole record as one JSON attribute of a single item.
// PutItem replaces the item in one call, so a failed write never leaves a
// partial snapshot behind.
type DynamoRecord struct {
	api       dynamodbAPI
	tableName string
	name      string
}

// NewDynamoRecord creates a record named name in tableName.
func NewDynamoRecord(api dynamodbAPI, tableName, name string) (*DynamoRecord, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("repository: record name must not be empty")
	}
	return &DynamoRecord{api: api, tableName: tableName, name: name}, nil
}

// recordPK returns the partition key for a named record.
func recordPK(name string) string {
	return pkPrefixRecord + name
}

func (d *DynamoRecord) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: recordPK(d.name)},
		"SK": &types.AttributeValueMemberS{Value: skSnapshot},
	}
}

// Read decodes the stored snapshot into v. A missing item is ErrNotFound.
func (d *DynamoRecord) Read(ctx context.Context, v any) error {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            d.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("repository: Read %s get item: %w", d.name, err)
	}
	if out == nil || len(out.Item) == 0 {
		return ErrNotFound
	}

	body, err := strAttr(out.Item, "body")
	if err != nil {
		return fmt.Errorf("repository: Read %s: %w", d.name, err)
	}
	size, err := intAttr(out.Item, "size")
	if err != nil {
		return fmt.Errorf("repository: Read %s decode size: %w", d.name, err)
	}
	if size != len(body) {
		return fmt.Errorf("repository: Read %s: body is %d bytes, expected %d", d.name, len(body), size)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("repository: Read %s unmarshal: %w", d.name, err)
	}
	return nil
}

// Write replaces the stored snapshot with v.
func (d *DynamoRecord) Write(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("repository: Write %s marshal: %w", d.name, err)
	}

	item := d.key()
	item["body"] = &types.AttributeValueMemberS{Value: string(body)}
	item["size"] = &types.AttributeValueMemberN{Value: strconv.Itoa(len(body))}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Write %s: %w", d.name, err)
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
