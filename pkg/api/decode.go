package api

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeWorkflow reads a workflow definition, picking the decoder
// from the file name's extension
func DecodeWorkflow(name string, r io.Reader) (*Workflow, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return DecodeWorkflowJSON(r)
	case ".yaml", ".yml":
		return DecodeWorkflowYAML(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// DecodeWorkflowJSON reads a JSON workflow definition
func DecodeWorkflowJSON(r io.Reader) (*Workflow, error) {
	var wf Workflow
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &wf, nil
}

// DecodeWorkflowYAML reads a YAML workflow definition
func DecodeWorkflowYAML(r io.Reader) (*Workflow, error) {
	var wf Workflow
	if err := yaml.NewDecoder(r).Decode(&wf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &wf, nil
}
