package filter

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTerms is used when no terms file is configured.
var DefaultTerms = []string{
	"password", "passphrase", "secret", "token",
	"api key", "api_key", "access key", "client secret", "client_secret",
	"connection string", "jwt", "bearer", "refresh token", "private key", "ssh key",
	"confidential", "internal use only", "do not distribute",
	"ssn", "social security", "credit card", "card number", "cvv", "iban", "swift", "routing number",
	"roadmap", "nda", "legal hold", "privileged",
	"şifrə", "gizli", "məxfi", "paylaşma", "daxili istifadə", "müştəri sirri",
	"hesab nömrəsi", "kart nömrəsi", "sirri",
}

type termsFile struct {
	Terms []string `yaml:"terms"`
}

// LoadTerms reads banned terms from a YAML file holding either a plain
// sequence or a mapping with a "terms" key.
func LoadTerms(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terms file: %w", err)
	}
	return ParseTerms(raw)
}

func ParseTerms(raw []byte) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse terms yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var terms []string
		if err := root.Decode(&terms); err != nil {
			return nil, fmt.Errorf("decode terms list: %w", err)
		}
		return terms, nil
	case yaml.MappingNode:
		var file termsFile
		if err := root.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode terms mapping: %w", err)
		}
		return file.Terms, nil
	default:
		return nil, fmt.Errorf("terms yaml: expected a list or a mapping, got %s", root.Tag)
	}
}
