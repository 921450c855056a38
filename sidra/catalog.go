package sidra

// ClassificationHints подстроки названий классификаций, в которых ищутся целевые категории
var ClassificationHints = []string{"produto", "rebanho", "aquicultura"}

// FallbackVariables общие названия переменных, если предпочтительное не найдено
var FallbackVariables = []string{"quantidade produzida", "efetivo", "produção"}

// ProductGroup группа продуктов: таблица SIDRA, предпочтительная переменная и ключевые слова категорий
type ProductGroup struct {
	Name              string   `yaml:"name" json:"name"`
	TableID           int      `yaml:"table" json:"table"`
	PreferredVariable string   `yaml:"variable" json:"variable"`
	Targets           []string `yaml:"targets" json:"targets"`
	SourceTag         string   `yaml:"source" json:"source"`
}

// Source метка источника для наблюдений группы
func (g ProductGroup) Source() string {
	if g.SourceTag != "" {
		return g.SourceTag
	}
	return "sidra:" + g.Name
}

// FindGroup ищет группу по имени
func FindGroup(groups []ProductGroup, name string) (ProductGroup, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g, true
		}
	}
	return ProductGroup{}, false
}
