package request

import (
	"brein.evalgo.org/brerr"
	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
	"brein.evalgo.org/signature"
)

// Keys of the recommendation subtree.
const (
	RecommendationKey         = "recommendation"
	NumRecommendationsKey     = "numRecommendations"
	RecommendationCategoryKey = "recommendationCategory"
)

// DefaultNumRecommendations is used when no count is given.
const DefaultNumRecommendations = 3

// Recommendation asks for items to recommend to the user.
type Recommendation struct {
	Base

	numRecommendations int
	category           string
}

// NewRecommendation creates a recommendation request for user.
func NewRecommendation(user *User) *Recommendation {
	r := &Recommendation{numRecommendations: DefaultNumRecommendations}
	r.SetUser(user)
	return r
}

// Kind implements Entity.
func (r *Recommendation) Kind() Kind { return KindRecommendation }

// Endpoint implements Entity.
func (r *Recommendation) Endpoint(cfg *config.Config) string { return cfg.Endpoint(KindRecommendation.String()) }

// SetNumRecommendations sets how many recommendations are requested.
func (r *Recommendation) SetNumRecommendations(n int) *Recommendation {
	r.numRecommendations = n
	return r
}

// SetCategory restricts recommendations to a category.
func (r *Recommendation) SetCategory(category string) *Recommendation {
	r.category = category
	return r
}

// NumRecommendations returns the requested number of recommendations.
func (r *Recommendation) NumRecommendations() int { return r.numRecommendations }

// BuildDocument implements Entity.
func (r *Recommendation) BuildDocument(cfg *config.Config) (document.Document, error) {
	if r.numRecommendations <= 0 {
		return nil, brerr.Validation("request.Recommendation.BuildDocument", "number of recommendations must be positive, got %d", r.numRecommendations)
	}

	doc, err := r.baseDocument(cfg, "request.Recommendation.BuildDocument", true)
	if err != nil {
		return nil, err
	}

	recommendation := document.Document{NumRecommendationsKey: r.numRecommendations}
	document.Merge(recommendation, map[string]interface{}{
		RecommendationCategoryKey: r.category,
	})
	doc[RecommendationKey] = recommendation
	return doc, nil
}

// SignatureMessage implements Entity.
func (r *Recommendation) SignatureMessage(doc document.Document) string {
	return signature.RecommendationMessage(doc)
}
