// Package config provides configuration types, defaults, and persistence
// for tuicore.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveBreakpoints updates the breakpoints section in the config file.
// This preserves comments and formatting in other sections by editing the
// document through a yaml.Node rather than round-tripping the whole struct.
func SaveBreakpoints(configPath string, b BreakpointsConfig) error {
	node, err := nodeFor(b)
	if err != nil {
		return fmt.Errorf("building breakpoints node: %w", err)
	}
	return saveSection(configPath, "breakpoints", node)
}

// SaveTracing updates the tracing section in the config file.
func SaveTracing(configPath string, t TracingConfig) error {
	node, err := nodeFor(t)
	if err != nil {
		return fmt.Errorf("building tracing node: %w", err)
	}
	return saveSection(configPath, "tracing", node)
}

// SaveDrawlistValidate updates the drawlist_validate section in the config
// file.
func SaveDrawlistValidate(configPath string, d DrawlistValidateConfig) error {
	node, err := nodeFor(d)
	if err != nil {
		return fmt.Errorf("building drawlist_validate node: %w", err)
	}
	return saveSection(configPath, "drawlist_validate", node)
}

// nodeFor marshals a value to YAML and decodes it back into a yaml.Node,
// so callers can splice it into a larger document without losing the
// rest of that document's comments and formatting.
func nodeFor(v any) (*yaml.Node, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return node.Content[0], nil
	}
	return &node, nil
}

// saveSection reads the config file at configPath, replaces (or inserts)
// the top-level mapping key with the given node, and writes the result
// back atomically.
func saveSection(configPath, key string, valueNode *yaml.Node) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: key},
						valueNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == key {
					root.Content[i+1] = valueNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: key},
					valueNode,
				)
			}
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// writeAtomic writes data to configPath via a temp file in the same
// directory, then renames it into place, so a concurrent reader (or a
// crash mid-write) never observes a partial file.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".tuicore.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
