// Package recipes turns a list of leftover ingredients into a recipe using a
// text generation model. Model output is untrusted: the first JSON object in
// it is extracted and anything unusable falls back to a generic recipe.
package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"annadan-api/apperr"
	"annadan-api/metrics"
	"annadan-api/models"
)

// ErrUnavailable is returned by generators that are not configured
var ErrUnavailable = errors.New("text generator not configured")

// Generator produces free text for a system instruction and a prompt
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Request struct {
	Ingredients         []models.Ingredient `json:"ingredients"`
	NumberOfPeople      int                 `json:"numberOfPeople"`
	FoodType            string              `json:"foodType"`
	DietaryRestrictions []string            `json:"dietaryRestrictions"`
}

// Generated is the recipe as returned to the client
type Generated struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Ingredients  []models.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	PrepTime     string              `json:"prepTime"`
	Difficulty   string              `json:"difficulty"`
	Tips         string              `json:"tips"`
}

// Saver persists generated recipes
type Saver interface {
	CreateRecipe(ctx context.Context, r *models.Recipe) error
}

const systemInstruction = "You are a professional chef and recipe creator. Create delicious, practical recipes using the given ingredients."

const defaultServings = 2

const aiUnavailable = "AI service is currently unavailable. Please try again later."

type Service struct {
	gen     Generator
	saver   Saver
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(gen Generator, saver Saver, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{gen: gen, saver: saver, logger: logger, metrics: m, now: time.Now}
}

// Generate asks the model for a recipe and saves it for the user. Saving is
// best-effort: on failure the recipe gets a temporary id and saved is false.
func (s *Service) Generate(ctx context.Context, userID string, req Request) (*Generated, bool, error) {
	if len(req.Ingredients) == 0 {
		return nil, false, apperr.Validation("Ingredients are required")
	}
	if s.gen == nil {
		return nil, false, apperr.Dependency(aiUnavailable, ErrUnavailable)
	}

	text, err := s.gen.Generate(ctx, systemInstruction, BuildPrompt(req))
	if err != nil {
		s.logger.Error("recipe generation failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, false, apperr.Dependency(aiUnavailable, err)
	}

	recipe, ok := ParseRecipe(text)
	if !ok {
		s.metrics.RecipeFellBack()
		s.logger.Warn("model output was not a recipe, using fallback",
			slog.String("user_id", userID),
			slog.Int("output_len", len(text)))
		recipe = Fallback(req.Ingredients)
	}

	servings := req.NumberOfPeople
	if servings <= 0 {
		servings = defaultServings
	}
	restrictions := req.DietaryRestrictions
	if restrictions == nil {
		restrictions = []string{}
	}
	row := &models.Recipe{
		UserID:              userID,
		Title:               recipe.Title,
		Description:         recipe.Description,
		Ingredients:         recipe.Ingredients,
		Instructions:        recipe.Instructions,
		PrepTime:            recipe.PrepTime,
		Servings:            servings,
		Difficulty:          recipe.Difficulty,
		DietaryRestrictions: restrictions,
		Tips:                recipe.Tips,
	}

	saved := false
	if s.saver != nil {
		if err := s.saver.CreateRecipe(ctx, row); err != nil {
			s.logger.Warn("save recipe failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		} else {
			saved = true
		}
	}
	if saved {
		recipe.ID = row.ID
	} else {
		recipe.ID = fmt.Sprintf("temp_%d", s.now().UnixMilli())
	}
	return recipe, saved, nil
}

// BuildPrompt renders the user's ingredients and constraints into a prompt
// that asks for a single JSON object.
func BuildPrompt(req Request) string {
	items := make([]string, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		items = append(items, fmt.Sprintf("%s (%s)", ing.Name, ing.Quantity))
	}
	servings := req.NumberOfPeople
	if servings <= 0 {
		servings = defaultServings
	}
	foodType := req.FoodType
	if foodType == "" {
		foodType = "any"
	}
	restrictions := "none"
	if len(req.DietaryRestrictions) > 0 {
		restrictions = strings.Join(req.DietaryRestrictions, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a delicious recipe using these ingredients: %s\n\n", strings.Join(items, ", "))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Number of servings: %d\n", servings)
	fmt.Fprintf(&b, "- Food type: %s\n", foodType)
	fmt.Fprintf(&b, "- Dietary restrictions: %s\n\n", restrictions)
	b.WriteString(`Please provide:
1. Recipe title
2. Brief description
3. List of ingredients with quantities
4. Step-by-step cooking instructions
5. Preparation time
6. Difficulty level (Easy/Medium/Hard)
7. Any additional tips or notes

IMPORTANT: Respond ONLY with valid JSON in this exact format (no additional text or markdown):
{
  "title": "Recipe Title",
  "description": "Brief description",
  "ingredients": [{"name": "ingredient", "quantity": "amount"}],
  "instructions": ["step 1", "step 2", "step 3"],
  "prepTime": "time in minutes",
  "difficulty": "Easy",
  "tips": "Additional tips"
}`)
	return b.String()
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseRecipe extracts the outermost JSON object from model output. It
// reports false when there is none, it does not decode, or it has no title.
func ParseRecipe(text string) (*Generated, bool) {
	candidate := jsonObject.FindString(text)
	if candidate == "" {
		candidate = text
	}
	var r Generated
	if err := json.Unmarshal([]byte(candidate), &r); err != nil {
		return nil, false
	}
	if strings.TrimSpace(r.Title) == "" {
		return nil, false
	}
	r.ID = ""
	return &r, true
}

// Fallback is served when the model output cannot be used
func Fallback(ingredients []models.Ingredient) *Generated {
	return &Generated{
		Title:        "Generated Recipe",
		Description:  "A delicious recipe using your ingredients",
		Ingredients:  ingredients,
		Instructions: []string{"Follow the recipe instructions carefully", "Adjust seasoning to taste"},
		PrepTime:     "30 minutes",
		Difficulty:   "Medium",
		Tips:         "Feel free to adjust ingredients based on your preferences",
	}
}
