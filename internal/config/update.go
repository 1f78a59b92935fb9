package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetValue sets a dotted key (e.g. "thresholds.cpu_warn") in the config
// file at configPath, preserving the existing YAML structure and
// comments. Missing intermediate mappings are created. If the file does
// not exist, a new one is written containing only the given key.
func SetValue(configPath, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	var root yaml.Node

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Start a fresh document
		root = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind: yaml.MappingNode,
				Tag:  "!!map",
			}},
		}
	default:
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{{
				Kind: yaml.MappingNode,
				Tag:  "!!map",
			}},
		}
	}

	docNode := root.Content[0]
	if docNode.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	// Walk the dotted path, creating mappings as needed
	parts := strings.Split(key, ".")
	node := docNode
	for _, part := range parts[:len(parts)-1] {
		child := findMapValue(node, part)
		if child == nil {
			child = &yaml.Node{
				Kind: yaml.MappingNode,
				Tag:  "!!map",
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part},
				child)
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("'%s' is not a section", part)
		}
		node = child
	}

	leaf := parts[len(parts)-1]
	valueNode := findMapValue(node, leaf)
	if valueNode == nil {
		valueNode = &yaml.Node{Kind: yaml.ScalarNode}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: leaf},
			valueNode)
	}
	if valueNode.Kind != yaml.ScalarNode {
		return fmt.Errorf("'%s' is not a scalar setting", key)
	}
	valueNode.Tag = scalarTag(value)
	valueNode.Value = value

	// Write back to file
	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if err := os.WriteFile(configPath, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetValue looks up a dotted key in cfg and returns its rendered value.
func GetValue(cfg *Config, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	// Durations render as raw nanoseconds through yaml; format them
	switch key {
	case "interval":
		return cfg.Interval.String(), nil
	case "notifications.interval":
		return cfg.Notifications.Interval.String(), nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	node := root.Content[0]
	for _, part := range strings.Split(key, ".") {
		node = findMapValue(node, part)
		if node == nil {
			return "", fmt.Errorf("key '%s' not set", key)
		}
	}

	if node.Kind != yaml.ScalarNode {
		out, err := yaml.Marshal(node)
		if err != nil {
			return "", fmt.Errorf("failed to render config: %w", err)
		}
		return strings.TrimRight(string(out), "\n"), nil
	}
	return node.Value, nil
}

// validateKey rejects keys that do not exist in the config schema.
// View toggles are free-form under "view.".
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty config key")
	}
	if strings.HasPrefix(key, "view.") {
		return nil
	}
	if _, ok := knownKeys()[key]; !ok {
		return fmt.Errorf("unknown config key '%s'", key)
	}
	return nil
}

// knownKeys derives the valid dotted keys from the default config's
// YAML rendering, so the schema has a single source of truth.
func knownKeys() map[string]struct{} {
	keys := make(map[string]struct{})

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return keys
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return keys
	}

	collectKeys(root.Content[0], "", keys)
	return keys
}

func collectKeys(node *yaml.Node, prefix string, keys map[string]struct{}) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]
		key := keyNode.Value
		if prefix != "" {
			key = prefix + "." + key
		}
		keys[key] = struct{}{}
		if valueNode.Kind == yaml.MappingNode {
			collectKeys(valueNode, key, keys)
		}
	}
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}

// scalarTag picks the YAML tag matching how the value string parses, so
// 'config set realtime true' writes a bool rather than a quoted string.
func scalarTag(value string) string {
	if value == "true" || value == "false" {
		return "!!bool"
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return "!!int"
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return "!!float"
	}
	return "!!str"
}
