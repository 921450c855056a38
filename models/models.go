package models

import "time"

// BranchMunicipality строка справочника "филиал → муниципалитет" из таблицы филиалов.
// ResolvedCode заполняется только при сопоставлении с реестром IBGE.
type BranchMunicipality struct {
	ID             int64   `json:"id"`
	Branch         string  `json:"filial"`
	RawName        string  `json:"nome_municipio"`
	UF             string  `json:"uf,omitempty"`
	NormalizedName string  `json:"nome_normalizado"`
	ResolvedCode   *int    `json:"codigo_ibge,omitempty"`
	ResolvedUF     string  `json:"uf_resolvida,omitempty"`
	Score          float64 `json:"score,omitempty"`
}

// CanonicalMunicipality муниципалитет из реестра IBGE
type CanonicalMunicipality struct {
	Code           int    `json:"codigo"`
	Name           string `json:"nome"`
	UF             string `json:"uf"`
	NormalizedName string `json:"nome_normalizado"`
}

// Resolution результат сопоставления одной записи филиала
type Resolution struct {
	RecordID int64
	Code     int
	UF       string
	Name     string
	Score    float64
}

// Observation значение показателя SIDRA для муниципалитета, года и категории.
// Натуральный ключ: (TableID, VariableID, Year, MunicipalityCode, CategoryID).
type Observation struct {
	TableID          int      `json:"tabela"`
	VariableID       int      `json:"variavel"`
	Year             int      `json:"ano"`
	MunicipalityCode int      `json:"cod_municipio"`
	MunicipalityName string   `json:"nome_municipio"`
	CategoryID       *int     `json:"produto_codigo,omitempty"`
	CategoryName     string   `json:"produto_nome"`
	Unit             string   `json:"unidade"`
	RawValue         *string  `json:"valor_str,omitempty"`
	NumericValue     *float64 `json:"valor_num,omitempty"`
	SourceTag        string   `json:"fonte"`
}

// ObservationKey натуральный ключ наблюдения
type ObservationKey struct {
	TableID          int
	VariableID       int
	Year             int
	MunicipalityCode int
	CategoryID       int
}

// Key возвращает натуральный ключ; отсутствующая категория кодируется нулем
func (o Observation) Key() ObservationKey {
	cat := 0
	if o.CategoryID != nil {
		cat = *o.CategoryID
	}
	return ObservationKey{
		TableID:          o.TableID,
		VariableID:       o.VariableID,
		Year:             o.Year,
		MunicipalityCode: o.MunicipalityCode,
		CategoryID:       cat,
	}
}

// CollectionRun итог одного запуска сбора
type CollectionRun struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Upserted   int       `json:"upserted"`
	Summary    string    `json:"summary"`
}
