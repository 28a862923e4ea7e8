// Package query turns natural-language meal plan requests into generation
// constraints
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
)

// DefaultDurationDays is used when a request names no duration
const DefaultDurationDays = 3

const parseTimeout = 30 * time.Second

// ParsedQuery is the structured content of a request. Values are as stated
// by the user; the Validator clamps and corrects them.
type ParsedQuery struct {
	DurationDays        int      `json:"duration_days"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Preferences         []string `json:"preferences"`
	SpecialRequirements []string `json:"special_requirements"`
	Exclusions          []string `json:"exclusions"`
	Contradictions      []string `json:"contradictions"`
}

// Parser extracts requirements with the language model and falls back to
// keyword matching when the model is unavailable
type Parser struct {
	llm     outbound.TextGenerator
	timeout time.Duration
	logger  *zap.Logger
}

// NewParser creates a parser. A nil generator uses keyword matching only.
func NewParser(llm outbound.TextGenerator, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		llm:     llm,
		timeout: parseTimeout,
		logger:  logger.Named("query-parser"),
	}
}

const parserSystemPrompt = `You are a meal plan query parser. Extract structured information from natural language queries about meal plans.

Extract:
- duration_days: Number of days (1-7, default 3 if not specified)
- dietary_restrictions: List of restrictions (vegan, vegetarian, gluten-free, dairy-free, nut-free, etc.)
- preferences: List of preferences (high-protein, low-carb, keto, paleo, mediterranean, etc.)
- special_requirements: List of special requirements (budget-friendly, quick-meals, etc.)
- exclusions: Ingredients or cuisines the user does not want
- contradictions: Contradictory requirements, if any (e.g. "vegan pescatarian")

Return valid JSON only.`

// Parse never fails: model errors fall back to keyword matching
func (p *Parser) Parse(ctx context.Context, text string) ParsedQuery {
	if p.llm != nil {
		parsed, err := p.parseWithLLM(ctx, text)
		if err == nil {
			return parsed
		}
		p.logger.Warn("LLM query parsing failed, using keyword parser", zap.Error(err))
	}
	return ParseKeywords(text)
}

func (p *Parser) parseWithLLM(ctx context.Context, text string) (ParsedQuery, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.llm.Generate(ctx, outbound.TextRequest{
		System: parserSystemPrompt,
		User: fmt.Sprintf(`Parse this meal plan query: %q

Return a JSON object with:
{
  "duration_days": <int 1-7>,
  "dietary_restrictions": [<list>],
  "preferences": [<list>],
  "special_requirements": [<list>],
  "exclusions": [<list>],
  "contradictions": [<list>]
}`, text),
		JSONMode:    true,
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return ParsedQuery{}, err
	}
	if resp == nil {
		return ParsedQuery{}, mealplan.ErrEmptyResponse
	}

	content := resp.Content
	start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return ParsedQuery{}, mealplan.ErrEmptyResponse
	}

	var raw struct {
		DurationDays        json.RawMessage `json:"duration_days"`
		DietaryRestrictions json.RawMessage `json:"dietary_restrictions"`
		Preferences         json.RawMessage `json:"preferences"`
		SpecialRequirements json.RawMessage `json:"special_requirements"`
		Exclusions          json.RawMessage `json:"exclusions"`
		Contradictions      json.RawMessage `json:"contradictions"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return ParsedQuery{}, fmt.Errorf("decode parsed query: %w", err)
	}

	return ParsedQuery{
		DurationDays:        looseInt(raw.DurationDays, DefaultDurationDays),
		DietaryRestrictions: looseList(raw.DietaryRestrictions),
		Preferences:         looseList(raw.Preferences),
		SpecialRequirements: looseList(raw.SpecialRequirements),
		Exclusions:          looseList(raw.Exclusions),
		Contradictions:      looseList(raw.Contradictions),
	}, nil
}

var digits = regexp.MustCompile(`\d+`)

// looseInt reads a number or the first number inside a string
func looseInt(raw json.RawMessage, def int) int {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if m := digits.FindString(s); m != "" {
			if v, err := strconv.Atoi(m); err == nil {
				return v
			}
		}
	}
	return def
}

// looseList reads a list of strings or a single string, dropping duplicates
func looseList(raw json.RawMessage) []string {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return []string{}
		}
		items = []string{s}
	}
	return dedupe(items)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

var (
	durationPattern  = regexp.MustCompile(`(\d+)\s*-?\s*days?`)
	exclusionPattern = regexp.MustCompile(`\b(?:without|avoid|no)\s+([a-z][a-z-]*)`)
)

var restrictionKeywords = []string{
	"vegan", "vegetarian", "gluten-free", "dairy-free", "nut-free", "pescatarian", "paleo", "keto",
}

var exclusionStopWords = map[string]bool{
	"more": true, "than": true, "longer": true,
}

// mentionedInOrder returns the keywords found in q, in the order the user
// wrote them. Hyphenated keywords also match with a space.
func mentionedInOrder(q string, keywords []string) []string {
	type hit struct {
		keyword string
		pos     int
	}
	var hits []hit
	for _, kw := range keywords {
		pos := strings.Index(q, kw)
		if alt := strings.Index(q, strings.ReplaceAll(kw, "-", " ")); alt >= 0 && (pos < 0 || alt < pos) {
			pos = alt
		}
		if pos >= 0 {
			hits = append(hits, hit{kw, pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.keyword)
	}
	return out
}

// ParseKeywords is the keyword-based parser used without a language model
func ParseKeywords(text string) ParsedQuery {
	q := strings.ToLower(text)

	duration := DefaultDurationDays
	if m := durationPattern.FindStringSubmatch(q); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			duration = v
		}
	} else if strings.Contains(q, "week") {
		duration = 7
	}

	restrictions := mentionedInOrder(q, restrictionKeywords)

	preferences := []string{}
	if strings.Contains(q, "high protein") || strings.Contains(q, "high-protein") {
		preferences = append(preferences, "high-protein")
	}
	if strings.Contains(q, "low carb") || strings.Contains(q, "low-carb") {
		preferences = append(preferences, "low-carb")
	}
	if strings.Contains(q, "high carb") || strings.Contains(q, "high-carb") {
		preferences = append(preferences, "high-carb")
	}
	if strings.Contains(q, "mediterranean") {
		preferences = append(preferences, "mediterranean")
	}

	special := []string{}
	if strings.Contains(q, "budget") || strings.Contains(q, "cheap") {
		special = append(special, "budget-friendly")
	}
	if strings.Contains(q, "quick") || strings.Contains(q, "fast") || strings.Contains(q, "15 minute") {
		special = append(special, "quick-meals")
	}

	exclusions := []string{}
	for _, m := range exclusionPattern.FindAllStringSubmatch(q, -1) {
		if !exclusionStopWords[m[1]] {
			exclusions = append(exclusions, m[1])
		}
	}

	return ParsedQuery{
		DurationDays:        duration,
		DietaryRestrictions: restrictions,
		Preferences:         preferences,
		SpecialRequirements: special,
		Exclusions:          dedupe(exclusions),
		Contradictions:      []string{},
	}
}
