package resolvers

import (
	"encoding/json"
	"fmt"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
)

// Resolver validates and settles wagers of one market type
type Resolver interface {
	// Market returns the market type the resolver owns
	Market() entities.MarketType

	// Validate checks a prediction before placement and returns the terms the
	// wager is frozen with
	Validate(prediction json.RawMessage, odds *decimal.Decimal) (Terms, error)

	// Resolve judges a pending wager against a facts snapshot. Incomplete
	// facts produce a non-resolvable outcome, not an error.
	Resolve(wager *entities.Wager, facts *entities.MatchFacts) (entities.Outcome, error)
}

// Terms are fixed at placement time
type Terms struct {
	Odds       decimal.Decimal
	SubjectKey *string
}

// NotOutPolicy decides what a threshold market does with a batsman still at the crease
type NotOutPolicy string

const (
	// NotOutDefer waits for the match to finish before judging a not-out batsman
	NotOutDefer NotOutPolicy = "defer"
	// NotOutSettle judges a not-out batsman on the current score
	NotOutSettle NotOutPolicy = "settle"
)

// ParseNotOutPolicy maps a config value to a policy
func ParseNotOutPolicy(value string) (NotOutPolicy, error) {
	switch NotOutPolicy(value) {
	case NotOutDefer, "":
		return NotOutDefer, nil
	case NotOutSettle:
		return NotOutSettle, nil
	}
	return "", fmt.Errorf("unknown not-out policy %q", value)
}

// Registry dispatches to the resolver registered for a wager's market
type Registry struct {
	resolvers map[entities.MarketType]Resolver
}

// NewRegistry builds a registry holding every market resolver
func NewRegistry(policy NotOutPolicy) *Registry {
	r := &Registry{resolvers: make(map[entities.MarketType]Resolver)}
	r.Register(newTossResolver())
	r.Register(newMatchWinnerResolver())
	r.Register(newPlayerRunsResolver(policy))
	r.Register(newBoundaryCountResolver())
	r.Register(newBowlerRunsResolver())
	r.Register(newPlayerWicketsResolver())
	r.Register(newCompositeResolver())
	return r
}

// Register adds or replaces the resolver for its market
func (r *Registry) Register(resolver Resolver) {
	r.resolvers[resolver.Market()] = resolver
}

// Get returns the resolver for market
func (r *Registry) Get(market entities.MarketType) (Resolver, error) {
	resolver, ok := r.resolvers[market]
	if !ok {
		return nil, entities.ValidationErrorf("unknown market type %q", market)
	}
	return resolver, nil
}

// Validate checks a prediction against its market's rules
func (r *Registry) Validate(market entities.MarketType, prediction json.RawMessage, odds *decimal.Decimal) (Terms, error) {
	resolver, err := r.Get(market)
	if err != nil {
		return Terms{}, err
	}
	return resolver.Validate(prediction, odds)
}

// Resolve judges a wager. An abandoned match voids every market.
func (r *Registry) Resolve(wager *entities.Wager, facts *entities.MatchFacts) (entities.Outcome, error) {
	resolver, err := r.Get(wager.MarketType)
	if err != nil {
		return entities.Outcome{}, err
	}
	if facts == nil {
		return entities.NotResolvable("no match facts"), nil
	}
	if facts.IsAbandoned() {
		return entities.Void(wager.Stake, fmt.Sprintf("match %s", facts.Status)), nil
	}
	return resolver.Resolve(wager, facts)
}

// providedOdds validates client odds for open markets
func providedOdds(odds *decimal.Decimal) (decimal.Decimal, error) {
	if odds == nil {
		return decimal.Zero, entities.ValidationErrorf("odds are required for this market")
	}
	if !odds.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, entities.ValidationErrorf("odds must be greater than 1, got %s", odds.String())
	}
	return *odds, nil
}

func stringPtr(s string) *string {
	return &s
}
