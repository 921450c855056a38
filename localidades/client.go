package localidades

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agrostat/fetch"
	"agrostat/models"
	"agrostat/normalization"
)

// DefaultBaseURL базовый адрес API localidades IBGE
const DefaultBaseURL = "https://servicodados.ibge.gov.br/api/v1/localidades"

// UFCodes коды IBGE для сигл UF
var UFCodes = map[string]int{
	"RO": 11, "AC": 12, "AM": 13, "RR": 14, "PA": 15, "AP": 16, "TO": 17,
	"MA": 21, "PI": 22, "CE": 23, "RN": 24, "PB": 25, "PE": 26, "AL": 27, "SE": 28, "BA": 29,
	"MG": 31, "ES": 32, "RJ": 33, "SP": 35,
	"PR": 41, "SC": 42, "RS": 43,
	"MS": 50, "MT": 51, "GO": 52, "DF": 53,
}

// municipality элемент ответа /estados/{uf}/municipios
type municipality struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
}

// Client клиент реестра муниципалитетов IBGE
type Client struct {
	baseURL string
	fetcher fetch.Fetcher
}

// NewClient создает клиент реестра
func NewClient(baseURL string, fetcher fetch.Fetcher) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
	}
}

// Municipalities загружает муниципалитеты перечисленных UF, отсортированные по коду
func (c *Client) Municipalities(ctx context.Context, ufs []string) ([]models.CanonicalMunicipality, error) {
	var result []models.CanonicalMunicipality

	for _, uf := range ufs {
		uf = strings.ToUpper(strings.TrimSpace(uf))
		ufID, ok := UFCodes[uf]
		if !ok {
			return nil, fmt.Errorf("unknown uf %q", uf)
		}

		var items []municipality
		url := fmt.Sprintf("%s/estados/%d/municipios", c.baseURL, ufID)
		if err := c.fetcher.FetchJSON(ctx, url, &items); err != nil {
			return nil, fmt.Errorf("failed to fetch municipalities for %s: %w", uf, err)
		}

		for _, item := range items {
			result = append(result, models.CanonicalMunicipality{
				Code:           item.ID,
				Name:           item.Nome,
				UF:             uf,
				NormalizedName: normalization.NormalizeName(item.Nome),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}
