package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader parses and validates YAML configuration documents.
type Loader struct {
	validate *validator.Validate
}

// NewLoader builds a Loader ready for use.
func NewLoader() *Loader {
	return &Loader{validate: validator.New()}
}

// LoadGatewayFile reads and validates a GatewayConfig from a YAML file,
// starting from DefaultGatewayConfig so unset fields keep their defaults.
func (l *Loader) LoadGatewayFile(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gateway config: %w", err)
	}
	cfg := DefaultGatewayConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse gateway config: %w", err)
	}
	if err := l.validateStruct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrontFile reads and validates a FrontConfig from a YAML file.
func (l *Loader) LoadFrontFile(path string) (*FrontConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read front config: %w", err)
	}
	cfg := DefaultFrontConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse front config: %w", err)
	}
	if err := l.validateStruct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPeerFile reads a gateway's peer-endpoint file (§6: JSON
// {"nodes": ["host:port", ...]}) and returns the flat endpoint list.
func LoadPeerFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read peer file: %w", err)
	}
	var list PeerList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse peer file: %w", err)
	}
	return list.Nodes, nil
}

func (l *Loader) validateStruct(v interface{}) error {
	if err := l.validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("config validation failed: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	var out string
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("field '%s' failed on '%s' validation", e.Field(), e.Tag())
	}
	return out
}
