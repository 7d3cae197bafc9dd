// Package generator produces candidate hypotheses by inspecting the
// knowledge store, vector store, finding graph and recent history. Every
// generator function self-limits its output and swallows its own faults;
// one broken collaborator never aborts an exploration round.
package generator

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/danielpatrickdp/exploration-engine/internal/collab"
	"github.com/danielpatrickdp/exploration-engine/internal/findings"
	"github.com/danielpatrickdp/exploration-engine/internal/hypothesis"
)

// #region generator

// Generator runs the per-type hypothesis producers.
type Generator struct {
	knowledge collab.KnowledgeStore
	vectors   collab.VectorStore
	graph     *findings.Graph // nil disables graph-guided generation
	history   History
	rng       *rand.Rand
	config    Config
}

// New creates a Generator. rng must be non-nil; seed it in tests.
func New(knowledge collab.KnowledgeStore, vectors collab.VectorStore, graph *findings.Graph, history History, rng *rand.Rand, config Config) *Generator {
	if config.MaxPerGenerator <= 0 {
		config.MaxPerGenerator = 2
	}
	return &Generator{
		knowledge: knowledge,
		vectors:   vectors,
		graph:     graph,
		history:   history,
		rng:       rng,
		config:    config,
	}
}

// #endregion generator

// #region generate

// genFunc is one hypothesis producer.
type genFunc struct {
	name string
	fn   func(ctx context.Context) ([]*hypothesis.Hypothesis, error)
}

// Generate runs every producer and concatenates their candidates.
func (g *Generator) Generate(ctx context.Context) []*hypothesis.Hypothesis {
	producers := []genFunc{
		{"provider_comparison", g.providerComparisons},
		{"strategy_optimization", g.strategyOptimizations},
		{"capability_discovery", g.capabilityGaps},
		{"transfer_learning", g.transferOpportunities},
		{"adversarial_probe", g.adversarialProbes},
		{"mutation_experiment", g.mutations},
		{"cross_domain", g.crossDomainBridges},
	}

	var out []*hypothesis.Hypothesis
	for _, p := range producers {
		out = append(out, g.safeRun(ctx, p)...)
	}
	return out
}

// safeRun isolates one producer: errors and panics are logged, never raised.
func (g *Generator) safeRun(ctx context.Context, p genFunc) (candidates []*hypothesis.Hypothesis) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("generator %s panicked: %v", p.name, r)
			candidates = nil
		}
	}()

	candidates, err := p.fn(ctx)
	if err != nil {
		log.Printf("generator %s failed: %v", p.name, err)
		return nil
	}
	if len(candidates) > g.config.MaxPerGenerator {
		candidates = candidates[:g.config.MaxPerGenerator]
	}
	return candidates
}

// #endregion generate

// #region provider-comparison

// providerComparisons proposes head-to-head tests when the knowledge store
// ranks two or more providers for a task type.
func (g *Generator) providerComparisons(ctx context.Context) ([]*hypothesis.Hypothesis, error) {
	domain := g.pickDomain()
	providers, err := g.knowledge.ProviderRecommendations(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("provider recommendations: %w", err)
	}
	if len(providers) < 2 {
		return nil, nil
	}

	h := hypothesis.New(
		hypothesis.TypeProviderComparison,
		fmt.Sprintf("%s may outperform %s on %s tasks", providers[0], providers[1], domain),
		domain,
		hypothesis.LevelMedium, hypothesis.LevelLow, 2.0,
	)
	return []*hypothesis.Hypothesis{h}, nil
}

// #endregion provider-comparison

// #region strategy-optimization

// strategyOptimizations targets goals with weak success rates.
func (g *Generator) strategyOptimizations(ctx context.Context) ([]*hypothesis.Hypothesis, error) {
	stats, err := g.knowledge.GoalStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("goal statistics: %w", err)
	}

	var out []*hypothesis.Hypothesis
	for goal, s := range stats {
		if s.SuccessRate >= 0.6 || s.Attempts < 3 {
			continue
		}
		out = append(out, hypothesis.New(
			hypothesis.TypeStrategyOptimization,
			fmt.Sprintf("a revised strategy could lift %s above its %.0f%% success rate", goal, s.SuccessRate*100),
			goal,
			hypothesis.LevelHigh, hypothesis.LevelLow, 1.5,
		))
		if len(out) >= g.config.MaxPerGenerator {
			break
		}
	}
	return out, nil
}

// #endregion strategy-optimization

// #region capability-discovery

// capabilityGaps searches the vector store for areas with thin coverage.
func (g *Generator) capabilityGaps(ctx context.Context) ([]*hypothesis.Hypothesis, error) {
	domain := g.pickDomain()
	docs, err := g.vectors.Search(ctx, "unresolved capability gap in "+domain, 5)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Sparse or weakly similar coverage suggests an unexplored capability.
	weak := len(docs) < 2
	for _, d := range docs {
		if d.Similarity < 0.4 {
			weak = true
		}
	}
	if !weak {
		return nil, nil
	}

	h := hypothesis.New(
		hypothesis.TypeCapabilityDiscovery,
		fmt.Sprintf("the system may have an untested capability in %s", domain),
		domain,
		hypothesis.LevelMedium, hypothesis.LevelLow, 1.0,
	)
	return []*hypothesis.Hypothesis{h}, nil
}

// #endregion capability-discovery

// #region transfer-learning

// transferOpportunities proposes carrying a provider's strong task style
// into a domain where it is untried.
func (g *Generator) transferOpportunities(ctx context.Context) ([]*hypothesis.Hypothesis, error) {
	source := g.pickDomain()
	providers, err := g.knowledge.ProviderRecommendations(ctx, source)
	if err != nil || len(providers) == 0 {
		return nil, err
	}
	profile, err := g.knowledge.ProviderProfile(ctx, providers[0])
	if err != nil {
		return nil, fmt.Errorf("provider profile: %w", err)
	}
	if len(profile.TaskHistory) == 0 {
		return nil, nil
	}

	target := g.pickDomainExcept(source)
	h := hypothesis.New(
		hypothesis.TypeTransferLearning,
		fmt.Sprintf("techniques %s uses for %s may transfer to %s", profile.ID, source, target),
		target,
		hypothesis.LevelMedium, hypothesis.LevelMedium, 2.5,
	)
	return []*hypothesis.Hypothesis{h}, nil
}

// #endregion transfer-learning

// #region adversarial-probe

// adversarialProbes pits two randomly drawn providers against each other.
func (g *Generator) adversarialProbes(ctx context.Context) ([]*hypothesis.Hypothesis, error) {
	domain := g.pickDomain()
	providers, err := g.knowledge.ProviderRecommendations(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("provider recommendations: %w", err)
	}
	if len(providers) < 2 {
		return nil, nil
	}

	i := g.rng.Intn(len(providers))
	j := g.rng.Intn(len(providers) - 1)
	if j >= i {
		j++
	}
	probe := probeTypes[g.rng.Intn(len(probeTypes))]

	h := hypothesis.New(
		hypothesis.TypeAdversarialProbe,
		fmt.Sprintf("%s probe: %s challenges %s on %s", probe, providers[i], providers[j], domain),
		domain,
		hypothesis.LevelMedium, hypothesis.LevelMedium, 3.0,
	)
	h.Payload = hypothesis.AdversarialConfig{
		Challenger: providers[i],
		Defender:   providers[j],
		ProbeType:  probe,
	}
	return []*hypothesis.Hypothesis{h}, nil
}

// #endregion adversarial-probe

// #region mutation

// mutations derives a prompt mutation from a recently validated experiment.
func (g *Generator) mutations(context.Context) ([]*hypothesis.Hypothesis, error) {
	if g.history == nil {
		return nil, nil
	}
	var base *hypothesis.Hypothesis
	for _, past := range g.history.Recent(20) {
		if past.Status == hypothesis.StatusValidated {
			base = past
			break
		}
	}
	if base == nil {
		return nil, nil
	}

	mutation := mutationTypes[g.rng.Intn(len(mutationTypes))]
	h := hypothesis.New(
		hypothesis.TypeMutationExperiment,
		fmt.Sprintf("a %s mutation of %q may improve results in %s", mutation, base.Description, base.TargetArea),
		base.TargetArea,
		hypothesis.LevelLow, hypothesis.LevelLow, 1.0,
	)
	h.Payload = hypothesis.MutationConfig{
		BasePrompt:   base.Description,
		MutationType: mutation,
	}
	return []*hypothesis.Hypothesis{h}, nil
}

// #endregion mutation

// #region cross-domain

// crossDomainBridges walks the finding graph for domain pairs with
// accumulated transfer evidence.
func (g *Generator) crossDomainBridges(context.Context) ([]*hypothesis.Hypothesis, error) {
	source := g.pickDomain()
	target := g.pickDomainExcept(source)

	if g.graph != nil {
		walk, err := g.graph.Walk(source, 2, 0.1, 5)
		if err != nil {
			return nil, fmt.Errorf("graph walk: %w", err)
		}
		// Prefer the strongest graph neighbor over a random pick.
		if len(walk.IDs) > 1 {
			target = walk.IDs[1]
		}
	}

	h := hypothesis.New(
		hypothesis.TypeCrossDomain,
		fmt.Sprintf("insights from %s may apply to %s", source, target),
		source,
		hypothesis.LevelHigh, hypothesis.LevelMedium, 3.5,
	)
	return []*hypothesis.Hypothesis{h}, nil
}

// #endregion cross-domain

// #region domain-pick

func (g *Generator) pickDomain() string {
	return g.config.SeedDomains[g.rng.Intn(len(g.config.SeedDomains))]
}

func (g *Generator) pickDomainExcept(exclude string) string {
	for i := 0; i < 10; i++ {
		d := g.pickDomain()
		if d != exclude {
			return d
		}
	}
	return exclude
}

// #endregion domain-pick
