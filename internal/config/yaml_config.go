package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/inbox/internal/lockfile"
)

// SetYamlConfig sets key in the config file in use: the loaded file, else
// the project's .inbox/config.yaml, else the user config. Missing files and
// directories are created. Comments and unrelated keys are preserved.
func SetYamlConfig(key, value string) (string, error) {
	if !IsKnownKey(key) {
		return "", fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(SortedKeys(), ", "))
	}
	path := ConfigFileUsed()
	if path == "" {
		if p, err := findProjectConfigYaml(); err == nil {
			path = p
		} else {
			path = UserConfigPath()
		}
	}
	if path == "" {
		return "", errors.New("no config file location available")
	}
	if err := SetKey(path, key, value); err != nil {
		return "", err
	}
	Set(key, value)
	return path, nil
}

// SetKey writes key=value into the YAML file at path. Dotted keys address
// nested mappings.
func SetKey(path, key, value string) error {
	lock, err := lockfile.Acquire(path)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	content, err := os.ReadFile(path) // #nosec G304 - path is a config file location
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	out, err := updateYamlKey(content, key, value)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// findProjectConfigYaml finds the nearest .inbox/config.yaml above the
// working directory.
func findProjectConfigYaml() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for dir := cwd; ; dir = filepath.Dir(dir) {
		configPath := filepath.Join(dir, ProjectDirName, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("no %s/%s found", ProjectDirName, FileName)
}

// updateYamlKey sets a dotted key in YAML content, creating intermediate
// mappings as needed.
func updateYamlKey(content []byte, key, value string) ([]byte, error) {
	var doc yaml.Node
	if len(bytes.TrimSpace(content)) > 0 {
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("config root is not a mapping")
	}

	parts := strings.Split(key, ".")
	node := root
	for i, part := range parts {
		child := lookup(node, part)
		last := i == len(parts)-1
		switch {
		case child == nil && last:
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: part},
				scalar(value))
		case child == nil:
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
			node = child
		case last:
			*child = *scalar(value)
		case child.Kind != yaml.MappingNode:
			return nil, fmt.Errorf("cannot set %s: %s is not a mapping", key, strings.Join(parts[:i+1], "."))
		default:
			node = child
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// scalar builds a value node. Values that would resolve to a non-string
// YAML type keep that type; everything else is a plain string.
func scalar(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		n.Tag = "!!str"
		return n
	}
	if _, ok := parsed.(string); ok || parsed == nil {
		n.Tag = "!!str"
	}
	return n
}
