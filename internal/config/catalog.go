package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agrostat/sidra"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Groups []sidra.ProductGroup `yaml:"groups"`
}

// LoadCatalog читает каталог групп продуктов из YAML; пустой путь дает встроенный каталог
func LoadCatalog(path string) ([]sidra.ProductGroup, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog разбирает и проверяет каталог
func ParseCatalog(data []byte) ([]sidra.ProductGroup, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Groups) == 0 {
		return nil, fmt.Errorf("catalog has no product groups")
	}

	seen := make(map[string]bool)
	var errors []string
	for i, g := range file.Groups {
		switch {
		case g.Name == "":
			errors = append(errors, fmt.Sprintf("group %d: name is required", i+1))
		case seen[g.Name]:
			errors = append(errors, fmt.Sprintf("group %s: duplicate name", g.Name))
		}
		seen[g.Name] = true
		if g.TableID <= 0 {
			errors = append(errors, fmt.Sprintf("group %s: table must be positive", g.Name))
		}
		if len(g.Targets) == 0 {
			errors = append(errors, fmt.Sprintf("group %s: targets are required", g.Name))
		}
	}
	if len(errors) > 0 {
		return nil, fmt.Errorf("catalog validation errors: %s", strings.Join(errors, "; "))
	}
	return file.Groups, nil
}
