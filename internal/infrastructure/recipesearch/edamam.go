// Package recipesearch provides the Edamam recipe search client used to
// ground generated meals in real recipes
package recipesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/config"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxCandidates is the largest page requested from Edamam
	MaxCandidates = 10

	maxIngredients = 7
	serviceName    = "edamam"
)

var edamamMealTypes = map[mealplan.MealType]string{
	mealplan.MealTypeBreakfast: "breakfast",
	mealplan.MealTypeLunch:     "lunch/dinner",
	mealplan.MealTypeDinner:    "lunch/dinner",
	mealplan.MealTypeSnack:     "snack",
}

var healthLabels = map[string]string{
	"vegetarian":  "vegetarian",
	"vegan":       "vegan",
	"pescatarian": "pecatarian",
	"paleo":       "paleo",
	"keto":        "keto-friendly",
	"gluten-free": "gluten-free",
	"dairy-free":  "dairy-free",
	"nut-free":    "tree-nut-free",
	"peanut-free": "peanut-free",
	"soy-free":    "soy-free",
	"egg-free":    "egg-free",
}

var (
	ambienceTerms = []string{
		"seasonal", "chef-inspired", "fresh", "vibrant", "modern", "comfort",
		"home-style", "rustic", "colorful", "balanced", "weekday-friendly",
	}
	mealTypeTerms = map[mealplan.MealType][]string{
		mealplan.MealTypeBreakfast: {"energizing", "sunrise", "brunch-ready"},
		mealplan.MealTypeLunch:     {"midday", "bistro", "light"},
		mealplan.MealTypeDinner:    {"evening", "family-style", "hearty"},
		mealplan.MealTypeSnack:     {"bite-sized", "quick", "grab-and-go"},
	}
)

// Client implements outbound.CandidateRetriever against the Edamam Recipe Search v2 API
type Client struct {
	baseURL    string
	appID      string
	appKey     string
	userID     string
	queryNoise bool
	client     *http.Client
	logger     *zap.Logger
	metrics    *monitoring.MetricsCollector

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ outbound.CandidateRetriever = (*Client)(nil)

// Option customises a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithoutQueryNoise disables the random ambience terms added to queries
func WithoutQueryNoise() Option {
	return func(c *Client) { c.queryNoise = false }
}

// WithRand sets the randomness source used for query noise
func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rng = r }
}

// NewClient creates an Edamam client
func NewClient(cfg config.RecipeSearchConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userID := cfg.UserID
	if userID == "" {
		userID = cfg.AppID
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		appKey:     cfg.AppKey,
		userID:     userID,
		queryNoise: true,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.Named("edamam"),
		metrics:    metrics,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info("Edamam client initialized",
		zap.String("base_url", c.baseURL),
		zap.Duration("timeout", timeout),
		zap.Bool("query_noise", c.queryNoise))

	return c
}

// Fetch returns up to MaxCandidates recipes. Failures are logged and yield
// an empty slice.
func (c *Client) Fetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe {
	start := time.Now()

	candidates, err := c.search(ctx, mealType, restrictions, prepTimeMax)
	if err != nil {
		c.metrics.RecipeSearch("error")
		c.logger.Warn("Recipe search failed",
			zap.String("meal_type", string(mealType)),
			zap.Strings("restrictions", restrictions),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return []mealplan.CandidateRecipe{}
	}

	c.metrics.RecipeSearch("ok")
	c.logger.Debug("Recipe search completed",
		zap.String("meal_type", string(mealType)),
		zap.Int("candidates", len(candidates)),
		zap.Duration("duration", time.Since(start)))

	return candidates
}

func (c *Client) search(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) ([]mealplan.CandidateRecipe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+c.buildQuery(mealType, restrictions, prepTimeMax).Encode(), nil)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(serviceName, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	req.SetBasicAuth(c.appID, c.appKey)
	req.Header.Set("Edamam-Account-User", c.userID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalServiceError(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewExternalServiceError(serviceName, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.NewMalformedResponseError(serviceName, err)
	}

	candidates := make([]mealplan.CandidateRecipe, 0, len(body.Hits))
	for _, hit := range body.Hits {
		if len(candidates) == MaxCandidates {
			break
		}
		cand, ok := hit.Recipe.toCandidate()
		if !ok {
			c.logger.Debug("Skipping malformed hit", zap.String("label", hit.Recipe.Label))
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (c *Client) buildQuery(mealType mealplan.MealType, restrictions []string, prepTimeMax *int) url.Values {
	terms := []string{string(mealType)}
	terms = append(terms, restrictions...)
	if c.queryNoise {
		terms = append(terms, c.noise(mealType)...)
	}

	params := url.Values{}
	params.Set("type", "public")
	params.Set("q", strings.Join(terms, " "))
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("to", strconv.Itoa(MaxCandidates))

	if mt, ok := edamamMealTypes[mealType]; ok {
		params.Set("mealType", mt)
	}

	seen := make(map[string]bool)
	for _, r := range restrictions {
		label, ok := healthLabels[strings.ToLower(strings.TrimSpace(r))]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		params.Add("health", label)
	}

	if prepTimeMax != nil && *prepTimeMax > 0 {
		params.Set("time", fmt.Sprintf("1-%d", *prepTimeMax))
	}
	return params
}

// noise returns one meal-type term and two ambience terms
func (c *Client) noise(mealType mealplan.MealType) []string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	var out []string
	if tags := mealTypeTerms[mealType]; len(tags) > 0 {
		out = append(out, tags[c.rng.Intn(len(tags))])
	}
	perm := c.rng.Perm(len(ambienceTerms))
	out = append(out, ambienceTerms[perm[0]], ambienceTerms[perm[1]])
	return out
}

type searchResponse struct {
	Hits []struct {
		Recipe edamamRecipe `json:"recipe"`
	} `json:"hits"`
}

type edamamRecipe struct {
	Label       string  `json:"label"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	Yield       float64 `json:"yield"`
	Calories    float64 `json:"calories"`
	TotalTime   float64 `json:"totalTime"`
	Ingredients []struct {
		Food string `json:"food"`
	} `json:"ingredients"`
	TotalNutrients map[string]struct {
		Quantity float64 `json:"quantity"`
	} `json:"totalNutrients"`
}

func (r edamamRecipe) toCandidate() (mealplan.CandidateRecipe, bool) {
	label := strings.TrimSpace(r.Label)
	if label == "" || r.Yield <= 0 {
		return mealplan.CandidateRecipe{}, false
	}

	ingredients := make([]string, 0, maxIngredients)
	for _, ing := range r.Ingredients {
		if len(ingredients) == maxIngredients {
			break
		}
		food := strings.TrimSpace(ing.Food)
		if food == "" {
			continue
		}
		ingredients = append(ingredients, titleWords(food))
	}

	perServing := func(code string) float64 {
		return round1(r.TotalNutrients[code].Quantity / r.Yield)
	}

	return mealplan.CandidateRecipe{
		Title:       label,
		Ingredients: ingredients,
		Nutrition: mealplan.Nutrition{
			Calories: int(math.Round(r.Calories / r.Yield)),
			ProteinG: perServing("PROCNT"),
			CarbsG:   perServing("CHOCDF"),
			FatG:     perServing("FAT"),
		}.Clamp(),
		PrepTimeMinutes: int(r.TotalTime),
		SourceURL:       r.URL,
		Source:          r.Source,
	}, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// titleWords collapses whitespace and title-cases each word. A Caser is
// stateful, so one is built per call.
func titleWords(s string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(s), " "))
}
