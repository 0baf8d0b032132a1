package declarative

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAgents reads an agents file (YAML or JSON).
func LoadAgents(path string) (Agents, error) {
	var out Agents
	if err := loadFile(path, &out); err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	return out, nil
}

// LoadTasks reads a tasks file (YAML or JSON).
func LoadTasks(path string) (Tasks, error) {
	var out Tasks
	if err := loadFile(path, &out); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return out, nil
}

// LoadAgentsBytes parses agents from memory. format 为空时自动检测。
func LoadAgentsBytes(data []byte, format string) (Agents, error) {
	var out Agents
	if err := decode(data, format, &out); err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	return out, nil
}

// LoadTasksBytes parses tasks from memory. format 为空时自动检测。
func LoadTasksBytes(data []byte, format string) (Tasks, error) {
	var out Tasks
	if err := decode(data, format, &out); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return out, nil
}

func loadFile(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return decode(data, detectFormat(path), dest)
}

func decode(data []byte, format string, dest any) error {
	if format == "" {
		format = sniffFormat(data)
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("parse YAML: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q, use \"yaml\" or \"json\"", format)
	}
	return nil
}

// detectFormat 按扩展名判断，未知扩展名返回空串交给 sniffFormat。
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

func sniffFormat(data []byte) string {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return "json"
	}
	return "yaml"
}
