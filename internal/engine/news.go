package engine

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// News categories. Names match the persisted values the dashboard filters on.
const (
	CategoryInjury     = "lesao"
	CategorySuspension = "suspensao"
	CategoryWeather    = "clima"
	CategoryCrisis     = "crise_interna"
	CategoryTransfer   = "mercado"
	CategoryNeutral    = "neutro"
)

// NewsClassification is the scored output for one piece of free text.
// Classification is idempotent: same text, same result.
type NewsClassification struct {
	Category  string `json:"category"`
	Relevance int    `json:"relevance"`  // 0-100
	Impact    int    `json:"impact"`     // 0-100
	NewsScore int    `json:"news_score"` // 0-100
}

// newsCategoryRule pairs a category with its trigger keywords and base
// impact. First match wins; categories are mutually exclusive by
// construction.
type newsCategoryRule struct {
	category   string
	baseImpact float64
	keywords   []string
}

// Priority order: injury > suspension > weather > internal crisis >
// transfer market > neutral.
var newsCategoryRules = []newsCategoryRule{
	{CategoryInjury, 70, []string{"lesao", "lesão", "lesionado", "desfalque", "injury", "injured", "fora da partida"}},
	{CategorySuspension, 60, []string{"suspensao", "suspensão", "suspenso", "cartao vermelho", "cartão vermelho", "suspended", "banned"}},
	{CategoryWeather, 40, []string{"chuva", "tempestade", "clima", "neve", "rain", "storm", "weather"}},
	{CategoryCrisis, 75, []string{"crise", "demitido", "demissao", "demissão", "protesto", "crisis", "sacked", "turmoil"}},
	{CategoryTransfer, 30, []string{"transferencia", "transferência", "contratacao", "contratação", "mercado", "transfer", "signing"}},
}

var newsCleanPattern = regexp.MustCompile(`[^a-z0-9áàâãéêíóôõúüç ]+`)

// ClassifyNews scores arbitrary free text into a category, relevance and
// impact. Fails soft: empty or unusable input yields a zeroed neutral
// result, so ingestion never halts on malformed text.
func ClassifyNews(text string) NewsClassification {
	cleaned := normalizeNewsText(text)
	if cleaned == "" {
		return NewsClassification{Category: CategoryNeutral}
	}

	// Longer articles are assumed more substantive. Explicit heuristic, not
	// a learned feature.
	relevance := utf8.RuneCountInString(cleaned) / 3
	if relevance > 100 {
		relevance = 100
	}

	category := CategoryNeutral
	baseImpact := 10.0
	for _, rule := range newsCategoryRules {
		if containsAny(cleaned, rule.keywords) {
			category = rule.category
			baseImpact = rule.baseImpact
			break
		}
	}

	impact := int(math.Min(100, baseImpact+float64(relevance)*0.4))
	newsScore := int(math.Round(float64(impact)*0.65 + float64(relevance)*0.35))

	return NewsClassification{
		Category:  category,
		Relevance: relevance,
		Impact:    impact,
		NewsScore: newsScore,
	}
}

// ImpactSignal converts a classification into the signed news impact score
// the fusion engine consumes, roughly -30..+30. Squad-weakening categories
// push the over confidence down.
func (c NewsClassification) ImpactSignal() float64 {
	if c.NewsScore == 0 {
		return 0
	}
	magnitude := float64(c.NewsScore) * 0.3
	switch c.Category {
	case CategoryInjury, CategorySuspension, CategoryCrisis, CategoryWeather:
		return -magnitude
	case CategoryTransfer:
		return magnitude * 0.5
	default:
		return 0
	}
}

func normalizeNewsText(text string) string {
	lowered := strings.ToLower(text)
	lowered = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(lowered)
	cleaned := newsCleanPattern.ReplaceAllString(lowered, "")
	return strings.TrimSpace(cleaned)
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
