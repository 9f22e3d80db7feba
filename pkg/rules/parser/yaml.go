package parser

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// yamlDocument is the intermediate structure for a rule document. Decoding
// runs with KnownFields enabled, so an unknown key at any level is a
// structural error rather than silently ignored: the document format is a
// contract with the legal/product authors.
type yamlDocument struct {
	Version      string                `yaml:"version"`
	Jurisdiction string                `yaml:"jurisdiction"`
	Product      string                `yaml:"product"`
	Routes       []string              `yaml:"routes"`
	Identifiers  []string              `yaml:"identifiers"`
	RuleGroups   map[string][]yamlRule `yaml:"rule_groups"`
}

// yamlRule is the intermediate structure for one rule entry.
type yamlRule struct {
	ID              string   `yaml:"id"`
	Severity        string   `yaml:"severity"`
	AppliesTo       []string `yaml:"applies_to"`
	AppliesWhen     []string `yaml:"applies_when"`
	Message         string   `yaml:"message"`
	Rationale       string   `yaml:"rationale"`
	Field           string   `yaml:"field"`
	RequiresFeature string   `yaml:"requires_feature"`
}

// decodeStrict decodes the document with unknown-field rejection.
func decodeStrict(data []byte) (*yamlDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// decodeGeneric decodes the document into plain maps/slices for JSON-schema
// validation.
func decodeGeneric(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ruleLocations walks the YAML node tree and returns the source location of
// every rule entry, keyed by group name. Locations are attached to rules so
// later validation stages can point at the offending line.
func ruleLocations(data []byte, path string) map[string][]ast.Location {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil
	}
	if len(root.Content) == 0 {
		return nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}

	locations := make(map[string][]ast.Location)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "rule_groups" {
			continue
		}
		groups := doc.Content[i+1]
		if groups.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(groups.Content); j += 2 {
			name := groups.Content[j].Value
			seq := groups.Content[j+1]
			if seq.Kind != yaml.SequenceNode {
				continue
			}
			locs := make([]ast.Location, 0, len(seq.Content))
			for _, item := range seq.Content {
				locs = append(locs, ast.Location{File: path, Line: item.Line, Column: item.Column})
			}
			locations[name] = locs
		}
	}
	return locations
}
