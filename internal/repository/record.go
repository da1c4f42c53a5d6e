// Package repository persists whole-table records (the session table, the
// message catalog) either as local files or as DynamoDB items.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Read when the record has never been written.
var ErrNotFound = errors.New("repository: record not found")

// Record reads and overwrites one whole-table document.
type Record interface {
	Read(ctx context.Context, v any) error
	Write(ctx context.Context, v any) error
}

type codec struct {
	name      string
	marshal   func(v any) ([]byte, error)
	unmarshal func(data []byte, v any) error
}

var jsonCodec = codec{
	name: "json",
	marshal: func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	},
	unmarshal: json.Unmarshal,
}

var yamlCodec = codec{
	name:      "yaml",
	marshal:   yaml.Marshal,
	unmarshal: yaml.Unmarshal,
}

// codecFor picks the encoding from the file extension; JSON unless .yaml/.yml.
func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec
	default:
		return jsonCodec
	}
}
