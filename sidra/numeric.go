package sidra

import (
	"strconv"
	"strings"
)

// nullMarkers значения SIDRA без числового содержания
var nullMarkers = map[string]bool{
	"":    true,
	"...": true,
	"-":   true,
	"X":   true,
	"x":   true,
}

// ParseNumber разбирает число в бразильском формате: "." разделитель тысяч, "," десятичный.
// Маркеры отсутствия данных и нечисловые строки дают nil.
func ParseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if nullMarkers[s] {
		return nil
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
