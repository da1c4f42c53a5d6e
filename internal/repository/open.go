package repository

import (
	"fmt"
	"strings"
)

// Record backends.
const (
	BackendFile     = "file"
	BackendDynamoDB = "dynamodb"
)

// Location names one record on either backend.
type Location struct {
	// Path is the file used by BackendFile.
	Path string
	// Name is the record name used by BackendDynamoDB.
	Name string
}

// Open returns the record at loc on backend. api and table are only read for
// BackendDynamoDB.
func Open(backend string, loc Location, api dynamodbAPI, table string) (Record, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		rec, err := NewFileRecord(loc.Path)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case BackendDynamoDB:
		rec, err := NewDynamoRecord(api, table, loc.Name)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("repository: unknown record backend %q", backend)
	}
}
