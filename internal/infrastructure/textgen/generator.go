package textgen

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/DRSN-tech/food-rating/internal/domain"
)

const bestProductPlaceholder = "{best_product}"

// phrases — шаблоны рекомендации, каждая фраза — токены, соединяемые пробелом.
var phrases = [][]string{
	{"Product", bestProductPlaceholder, "is highly praised for", "nutritional value."},
	{"Considering its", "shelf life", "and", "sustainability,", "Product", bestProductPlaceholder, "stands out."},
	{"Among the options,", "Product", bestProductPlaceholder, "excels", "in customer satisfaction."},
	{"For affordability and", "health benefits,", "Product", bestProductPlaceholder, "is a great choice."},
}

// Generator формирует текст рекомендации из фиксированных шаблонов со случайным выбором фразы.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New создаёт генератор. seed == 0 означает случайный seed.
func New(seed uint64) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sentences возвращает все возможные фразы для номера лучшего продукта.
func Sentences(best int) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, render(p, best))
	}
	return out
}

// Generate возвращает строку вида
// "The ratings are: Product 1 - a, Product 2 - b, Product 3 - c. <фраза о лучшем продукте>".
func (g *Generator) Generate(scores []float64) string {
	g.mu.Lock()
	phrase := phrases[g.rng.IntN(len(phrases))]
	g.mu.Unlock()

	return RatingsSummary(scores) + " " + render(phrase, domain.BestIndex(scores)+1)
}

// RatingsSummary перечисляет округлённые рейтинги всех продуктов.
func RatingsSummary(scores []float64) string {
	var sb strings.Builder
	sb.WriteString("The ratings are: ")
	for i, s := range scores {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("Product ")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(" - ")
		sb.WriteString(domain.FormatRating(domain.RoundRating(s)))
	}
	sb.WriteString(".")
	return sb.String()
}

func render(tokens []string, best int) string {
	return strings.ReplaceAll(strings.Join(tokens, " "), bestProductPlaceholder, strconv.Itoa(best))
}
