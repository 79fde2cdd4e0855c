package httpapi

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const addFileSchemaJSON = `{
	"type": "object",
	"required": ["filename"],
	"additionalProperties": false,
	"properties": {
		"filename": {"type": "string", "minLength": 1},
		"language": {"type": "string"},
		"fileSizeBytes": {"type": "integer", "minimum": 0},
		"docType": {"type": "string", "enum": ["README", "JSDOC", "API", "ARCHITECTURE"]},
		"origin": {"type": "string", "enum": ["upload", "github", "paste", "sample", "history"]},
		"documentId": {"type": "string"},
		"github": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"repo": {"type": "string"},
				"path": {"type": "string"},
				"sha": {"type": "string"},
				"branch": {"type": "string"}
			}
		}
	}
}`

const updateFileSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"minProperties": 1,
	"properties": {
		"documentId": {"type": "string"},
		"docType": {"type": "string", "enum": ["README", "JSDOC", "API", "ARCHITECTURE"]}
	}
}`

type requestSchemas struct {
	addFile    *jsonschema.Schema
	updateFile *jsonschema.Schema
}

func compileRequestSchemas() (*requestSchemas, error) {
	compiler := jsonschema.NewCompiler()
	for name, raw := range map[string]string{
		"add_file.json":    addFileSchemaJSON,
		"update_file.json": updateFileSchemaJSON,
	} {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(raw)))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		if err := compiler.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("register schema %s: %w", name, err)
		}
	}
	addFile, err := compiler.Compile("add_file.json")
	if err != nil {
		return nil, err
	}
	updateFile, err := compiler.Compile("update_file.json")
	if err != nil {
		return nil, err
	}
	return &requestSchemas{addFile: addFile, updateFile: updateFile}, nil
}

// validateBody checks raw JSON against schema and returns a human-readable
// violation, or "" when valid.
func validateBody(schema *jsonschema.Schema, body []byte) string {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return "invalid json body"
	}
	if err := schema.Validate(instance); err != nil {
		return err.Error()
	}
	return ""
}
