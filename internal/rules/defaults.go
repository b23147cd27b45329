package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/releve/internal/logger"
	"github.com/cleared-dev/releve/internal/model"
)

// DefaultRule maps keywords to a category given by path.
type DefaultRule struct {
	Category string
	Keywords []string
}

// DefaultRules returns the keyword rules seeded alongside the default
// category catalog.
func DefaultRules() []DefaultRule {
	return []DefaultRule{
		{"Alimentation", []string{"lidl", "carrefour", "intermarche", "restaurant", "mc donald", "pizza", "boulangerie", "boucherie"}},
		{"Transport", []string{"essence", "parking", "sncf", "bus", "metro", "uber", "taxi", "autolib", "carburant"}},
		{"Logement", []string{"loyer", "immobilier", "proprio", "syndic"}},
		{"Logement > Électricité/Gaz/Eau", []string{"edf", "water", "eau", "electricite", "gaz"}},
		{"Logement > Internet/Téléphone", []string{"orange", "internet", "téléphone", "sfr", "bouygues"}},
		{"Loisirs", []string{"cinema", "theatre", "spotify", "netflix", "jeux", "flickr", "steam", "playstation"}},
		{"Santé", []string{"pharmacie", "docteur", "medical", "sante", "dentiste"}},
		{"Éducation", []string{"ecole", "universite", "formation", "cours"}},
		{"Salaire", []string{"salaire", "virement salaire", "paye", "traitement"}},
	}
}

// Resolver turns a category reference into a category.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (model.Category, error)
}

// Seed installs DefaultRules when no rule exists yet and returns how many
// rules it created. Rules whose category cannot be found are skipped.
func (e *Engine) Seed(ctx context.Context, categories Resolver) (int, error) {
	existing, err := e.store.ListRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing rules: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	log := logger.FromContext(ctx)
	n := 0
	for _, dr := range DefaultRules() {
		cat, err := categories.Resolve(ctx, dr.Category)
		if errors.Is(err, model.ErrNotFound) {
			log.Debug().Str("category", dr.Category).Msg("default rule category missing, skipped")
			continue
		}
		if err != nil {
			return n, fmt.Errorf("resolving %q: %w", dr.Category, err)
		}
		for _, kw := range dr.Keywords {
			if _, err := e.store.CreateRule(ctx, model.Rule{Keyword: kw, CategoryID: cat.ID}); err != nil {
				return n, fmt.Errorf("seeding rule %q: %w", kw, err)
			}
			n++
		}
	}
	return n, nil
}
