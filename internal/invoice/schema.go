package invoice

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/record.json
var schemaFS embed.FS

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		raw, err := schemaFS.ReadFile("schemas/record.json")
		if err != nil {
			recordSchemaErr = fmt.Errorf("failed to read record schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(raw)); err != nil {
			recordSchemaErr = fmt.Errorf("failed to load record schema: %w", err)
			return
		}
		recordSchema, recordSchemaErr = compiler.Compile("record.json")
		if recordSchemaErr != nil {
			recordSchemaErr = fmt.Errorf("failed to compile record schema: %w", recordSchemaErr)
		}
	})
	return recordSchema, recordSchemaErr
}

// ValidateRecordJSON checks that a response body has the shape of a Record:
// document and header are flat objects of scalars, details is a list of them.
func ValidateRecordJSON(body []byte) error {
	schema, err := compiledRecordSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("failed to decode record JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
