package sidra

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"agrostat/fetch"
)

// DefaultBaseURL базовый адрес API агрегатов SIDRA
const DefaultBaseURL = "https://servicodados.ibge.gov.br/api/v3"

// Metadata метаданные таблицы (агрегата) SIDRA
type Metadata struct {
	ID              int              `json:"id"`
	Name            string           `json:"nome"`
	Variables       []Variable       `json:"variaveis"`
	Classifications []Classification `json:"classificacoes"`
}

// Variable переменная таблицы
type Variable struct {
	ID   int    `json:"id"`
	Name string `json:"nome"`
	Unit string `json:"unidade"`
}

// Classification классификация таблицы с категориями
type Classification struct {
	ID         int        `json:"id"`
	Name       string     `json:"nome"`
	Categories []Category `json:"categorias"`
}

// Category категория классификации
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"nome"`
}

// Client клиент API SIDRA
type Client struct {
	baseURL string
	fetcher fetch.Fetcher
}

// NewClient создает клиент SIDRA
func NewClient(baseURL string, fetcher fetch.Fetcher) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), fetcher: fetcher}
}

// BaseURL базовый адрес клиента
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Metadata загружает метаданные таблицы
func (c *Client) Metadata(ctx context.Context, tableID int) (*Metadata, error) {
	var meta Metadata
	url := fmt.Sprintf("%s/agregados/%d/metadados", c.baseURL, tableID)
	if err := c.fetcher.FetchJSON(ctx, url, &meta); err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for table %d: %w", tableID, err)
	}
	return &meta, nil
}

// Values загружает документ значений: список строк, первая из которых заголовок
func (c *Client) Values(ctx context.Context, url string) ([]json.RawMessage, error) {
	var doc []json.RawMessage
	if err := c.fetcher.FetchJSON(ctx, url, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CategorySelection выбранные категории: класс → (категория → название)
type CategorySelection map[int]map[int]string

// ClassificationIDs идентификаторы классификаций по возрастанию
func (s CategorySelection) ClassificationIDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CategoryIDs идентификаторы категорий классификации по возрастанию
func (s CategorySelection) CategoryIDs(classificationID int) []int {
	cats := s[classificationID]
	ids := make([]int, 0, len(cats))
	for id := range cats {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len общее число выбранных категорий
func (s CategorySelection) Len() int {
	n := 0
	for _, cats := range s {
		n += len(cats)
	}
	return n
}
