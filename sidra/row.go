package sidra

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field поле строки ответа; Null означает JSON null
type Field struct {
	Key   string
	Value string
	Null  bool
}

// Row строка ответа с сохранением порядка полей
type Row []Field

// UnmarshalJSON декодирует JSON-объект, сохраняя порядок ключей
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row is not a JSON object")
	}

	var fields Row
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode field %q: %w", key, err)
		}
		fields = append(fields, decodeField(key, raw))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = fields
	return nil
}

func decodeField(key string, raw json.RawMessage) Field {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return Field{Key: key, Null: true}
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Field{Key: key, Value: s}
		}
	}
	return Field{Key: key, Value: string(trimmed)}
}

// Lookup возвращает значение поля; ok ложно, если поля нет или оно null
func (r Row) Lookup(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			if f.Null {
				return "", false
			}
			return f.Value, true
		}
	}
	return "", false
}

// Has проверяет наличие поля (включая null)
func (r Row) Has(key string) bool {
	for _, f := range r {
		if f.Key == key {
			return true
		}
	}
	return false
}
