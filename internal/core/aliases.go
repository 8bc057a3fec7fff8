package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// aliasFile is the on-disk shape of an alias extension file:
//
//	text: [frase, oracion]
//	label: [ods, objetivo]
//	replace: false
//
// With replace unset the lists are appended to the built-in table.
type aliasFile struct {
	Text    []string `yaml:"text"`
	Label   []string `yaml:"label"`
	Replace bool     `yaml:"replace"`
}

// ParseAliasYAML builds an alias table from YAML, merged into the defaults
// unless the document sets replace: true.
func ParseAliasYAML(data []byte) (ColumnAliasTable, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ColumnAliasTable{}, fmt.Errorf("parse alias file: %w", err)
	}

	extra := ColumnAliasTable{Text: f.Text, Label: f.Label}
	if f.Replace {
		return ColumnAliasTable{}.Merge(extra)
	}
	return DefaultAliasTable().Merge(extra)
}

// LoadAliasFile reads an alias table from path. An empty path returns the
// built-in table.
func LoadAliasFile(path string) (ColumnAliasTable, error) {
	if path == "" {
		return DefaultAliasTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ColumnAliasTable{}, fmt.Errorf("read alias file: %w", err)
	}
	return ParseAliasYAML(data)
}
