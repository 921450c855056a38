package normalization

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letterFolds буквы без канонического разложения, которые NFD не сводит к латинице
var letterFolds = strings.NewReplacer(
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"ð", "d",
	"ħ", "h",
	"ı", "i",
	"æ", "ae",
	"œ", "oe",
	"ß", "ss",
	"þ", "th",
)

// NormalizeName приводит название муниципалитета к канонической форме:
// нижний регистр, без диакритики, пробелы схлопнуты.
// Функция тотальна и идемпотентна: NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)

	// transform.Chain хранит состояние, поэтому создается на каждый вызов
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}
	stripped = letterFolds.Replace(stripped)

	return strings.Join(strings.Fields(stripped), " ")
}

// ContainsNormalized проверяет вхождение needle в haystack после нормализации обеих строк
func ContainsNormalized(haystack, needle string) bool {
	n := NormalizeName(needle)
	if n == "" {
		return false
	}
	return strings.Contains(NormalizeName(haystack), n)
}
