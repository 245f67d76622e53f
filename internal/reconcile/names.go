package reconcile

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
)

// Причины, по которым пара имён попала в подсказки.
const (
	ReasonCaseVariant = "case_variant"
	ReasonSimilar     = "similar"
)

// DefaultSimilarity: порог похожести по Левенштейну.
const DefaultSimilarity float32 = 0.9

// NearDuplicate: пара разных имён, похожих на один клуб.
// Только подсказка администратору: сверка сливает лишь точные совпадения.
type NearDuplicate struct {
	A, B       string
	Reason     string
	Similarity float32
}

// Fold приводит имя к виду для сравнения: обрезает пробелы, схлопывает
// внутренние и снимает регистр.
func Fold(name string) string {
	// Caser хранит состояние, поэтому создаётся на каждый вызов.
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// FindNearDuplicates ищет пары имён, которые совпадают после Fold или
// похожи не меньше чем на threshold. names должны быть различными.
func FindNearDuplicates(names []string, threshold float32) []NearDuplicate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarity
	}

	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	folded := make([]string, len(sorted))
	for i, n := range sorted {
		folded[i] = Fold(n)
	}

	var out []NearDuplicate
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i] == sorted[j] {
				continue
			}
			if folded[i] == folded[j] {
				out = append(out, NearDuplicate{A: sorted[i], B: sorted[j], Reason: ReasonCaseVariant, Similarity: 1})
				continue
			}
			sim, err := edlib.StringsSimilarity(folded[i], folded[j], edlib.Levenshtein)
			if err == nil && sim >= threshold {
				out = append(out, NearDuplicate{A: sorted[i], B: sorted[j], Reason: ReasonSimilar, Similarity: sim})
			}
		}
	}
	return out
}
