package algorithms

import (
	"sort"
	"strings"
)

const (
	// unbaseScale понижающий коэффициент для токенных метрик
	unbaseScale = 0.95
	// partialScale коэффициент для частичного сравнения строк разной длины
	partialScale = 0.90
	// longPartialScale коэффициент, когда одна строка длиннее другой в 8 и более раз
	longPartialScale = 0.60
)

// Ratio нормализованное сходство по расстоянию Indel (вставки и удаления), 0..100.
// Для двух пустых строк возвращает 100.
func Ratio(s1, s2 string) float64 {
	return ratioRunes([]rune(s1), []rune(s2))
}

func ratioRunes(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

// lcsLength длина наибольшей общей подпоследовательности
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) < len(b) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// PartialRatio лучшее совпадение короткой строки с окном длинной строки.
// Окна у краев могут быть короче короткой строки.
func PartialRatio(s1, s2 string) float64 {
	short, long := []rune(s1), []rune(s2)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	n, m := len(short), len(long)
	best := 0.0
	for start := -(n - 1); start < m; start++ {
		lo := max(start, 0)
		hi := min(start+n, m)
		if score := ratioRunes(short, long[lo:hi]); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// sortedTokens разбивает строку на слова и сортирует их
func sortedTokens(s string) []string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return tokens
}

// tokenSets возвращает пересечение и разности множеств слов в отсортированном виде
func tokenSets(s1, s2 string) (sect, diffAB, diffBA []string) {
	setA := make(map[string]bool)
	for _, tok := range strings.Fields(s1) {
		setA[tok] = true
	}
	setB := make(map[string]bool)
	for _, tok := range strings.Fields(s2) {
		setB[tok] = true
	}

	for tok := range setA {
		if setB[tok] {
			sect = append(sect, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			diffBA = append(diffBA, tok)
		}
	}
	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)
	return sect, diffAB, diffBA
}

// TokenSortRatio сходство после сортировки слов
func TokenSortRatio(s1, s2 string) float64 {
	return Ratio(strings.Join(sortedTokens(s1), " "), strings.Join(sortedTokens(s2), " "))
}

// TokenSetRatio сходство по общим и различающимся словам
func TokenSetRatio(s1, s2 string) float64 {
	if len(strings.Fields(s1)) == 0 || len(strings.Fields(s2)) == 0 {
		return 0
	}

	sect, diffAB, diffBA := tokenSets(s1, s2)
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	sectStr := strings.Join(sect, " ")
	combinedAB := strings.TrimSpace(sectStr + " " + strings.Join(diffAB, " "))
	combinedBA := strings.TrimSpace(sectStr + " " + strings.Join(diffBA, " "))

	best := Ratio(combinedAB, combinedBA)
	if sectStr != "" {
		best = max(best, Ratio(sectStr, combinedAB), Ratio(sectStr, combinedBA))
	}
	return best
}

// PartialTokenRatio частичное сравнение по словам; общее слово дает 100
func PartialTokenRatio(s1, s2 string) float64 {
	tokensA := sortedTokens(s1)
	tokensB := sortedTokens(s2)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	sect, diffAB, diffBA := tokenSets(s1, s2)
	if len(sect) > 0 {
		return 100
	}

	result := PartialRatio(strings.Join(tokensA, " "), strings.Join(tokensB, " "))
	if len(tokensA) == len(diffAB) && len(tokensB) == len(diffBA) {
		return result
	}
	return max(result, PartialRatio(strings.Join(diffAB, " "), strings.Join(diffBA, " ")))
}

// WRatio взвешенная оценка сходства 0..100: выбирает лучшую из полной,
// частичной и токенных метрик в зависимости от соотношения длин строк.
// Пустая строка с любой стороны дает 0.
func WRatio(s1, s2 string) float64 {
	len1 := len([]rune(s1))
	len2 := len([]rune(s2))
	if len1 == 0 || len2 == 0 {
		return 0
	}

	lenRatio := float64(max(len1, len2)) / float64(min(len1, len2))
	endRatio := Ratio(s1, s2)

	if lenRatio < 1.5 {
		tokenRatio := max(TokenSortRatio(s1, s2), TokenSetRatio(s1, s2))
		return max(endRatio, tokenRatio*unbaseScale)
	}

	scale := partialScale
	if lenRatio >= 8 {
		scale = longPartialScale
	}

	endRatio = max(endRatio, PartialRatio(s1, s2)*scale)
	return max(endRatio, PartialTokenRatio(s1, s2)*unbaseScale*scale)
}
