package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const snapshotSchemaURL = "snapshot.schema.json"

//go:embed schema/snapshot.schema.json
var snapshotSchemaDocument []byte

var (
	snapshotSchemaOnce sync.Once
	snapshotSchema     *jsonschema.Schema
	snapshotSchemaErr  error
)

// SnapshotSchema returns the compiled JSON schema of the snapshot document.
func SnapshotSchema() (*jsonschema.Schema, error) {
	snapshotSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(snapshotSchemaURL, bytes.NewReader(snapshotSchemaDocument)); err != nil {
			snapshotSchemaErr = fmt.Errorf("load snapshot schema: %w", err)
			return
		}
		snapshotSchema, snapshotSchemaErr = compiler.Compile(snapshotSchemaURL)
	})
	return snapshotSchema, snapshotSchemaErr
}

// SnapshotSchemaDocument returns the raw schema published alongside exports.
func SnapshotSchemaDocument() []byte {
	return append([]byte(nil), snapshotSchemaDocument...)
}

func validateSnapshotDocument(raw []byte) error {
	schema, err := SnapshotSchema()
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("%w: malformed json: %w", ErrInvalidSnapshot, err)
	}
	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return nil
}
