package sidra

import (
	"errors"
	"strings"

	"agrostat/normalization"
)

var (
	// ErrNoUsableVariable в метаданных нет переменных
	ErrNoUsableVariable = errors.New("no usable variable in table metadata")
	// ErrNoTargetCategories ни одна категория не соответствует ключевым словам группы
	ErrNoTargetCategories = errors.New("no target categories in table metadata")
)

// Selection выбор переменной и категорий для группы
type Selection struct {
	Variable   Variable
	Categories CategorySelection
}

// SelectVariable выбирает переменную: сначала по предпочтительному названию,
// затем по общим резервным названиям, затем первую объявленную.
// Сравнение по вхождению подстроки без учета регистра и диакритики.
func SelectVariable(variables []Variable, preferred string) (Variable, error) {
	if len(variables) == 0 {
		return Variable{}, ErrNoUsableVariable
	}

	labels := make([]string, 0, len(FallbackVariables)+1)
	if preferred != "" {
		labels = append(labels, preferred)
	}
	labels = append(labels, FallbackVariables...)

	for _, label := range labels {
		for _, v := range variables {
			if normalization.ContainsNormalized(v.Name, label) {
				return v, nil
			}
		}
	}
	return variables[0], nil
}

// SelectCategories оставляет категории, название которых содержит одно из ключевых слов,
// только в классификациях продуктов, стад или аквакультуры
func SelectCategories(classifications []Classification, targets []string) (CategorySelection, error) {
	keywords := make([]string, 0, len(targets))
	for _, t := range targets {
		if k := normalization.NormalizeName(t); k != "" {
			keywords = append(keywords, k)
		}
	}

	selection := make(CategorySelection)
	for _, cls := range classifications {
		if !isProductClassification(cls.Name) {
			continue
		}
		for _, cat := range cls.Categories {
			if !matchesAnyKeyword(cat.Name, keywords) {
				continue
			}
			if selection[cls.ID] == nil {
				selection[cls.ID] = make(map[int]string)
			}
			selection[cls.ID][cat.ID] = cat.Name
		}
	}

	if selection.Len() == 0 {
		return nil, ErrNoTargetCategories
	}
	return selection, nil
}

// Select выбирает переменную и категории группы
func Select(meta *Metadata, group ProductGroup) (Selection, error) {
	if meta == nil {
		return Selection{}, ErrNoUsableVariable
	}

	variable, err := SelectVariable(meta.Variables, group.PreferredVariable)
	if err != nil {
		return Selection{}, err
	}

	categories, err := SelectCategories(meta.Classifications, group.Targets)
	if err != nil {
		return Selection{}, err
	}

	return Selection{Variable: variable, Categories: categories}, nil
}

func isProductClassification(name string) bool {
	for _, hint := range ClassificationHints {
		if normalization.ContainsNormalized(name, hint) {
			return true
		}
	}
	return false
}

func matchesAnyKeyword(name string, keywords []string) bool {
	normalized := normalization.NormalizeName(name)
	for _, k := range keywords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}
