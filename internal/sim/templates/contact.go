package templates

import (
	"fmt"
	"strings"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
)

const maxKnownSpecies = 5

var contactTraits = [...][]string{
	{"curious", "peaceful"},
	{"cautious", "territorial"},
	{"aggressive", "expansionist"},
}

type firstContact struct{ names *catalogs.Names }

func (*firstContact) Name() string   { return FirstContactName }
func (*firstContact) Weight() uint32 { return 12 }

func (*firstContact) Applicable(g *galaxy.State) bool {
	return len(g.Species) < maxKnownSpecies
}

// Generate draws: species prefix, species suffix, temperament.
func (t *firstContact) Generate(_ *galaxy.State, src rng.Source) event.Event {
	name := speciesName(src, t.names)
	traits := contactTraits[src.NextU32()%uint32(len(contactTraits))]
	hostile := false
	for _, tr := range traits {
		if tr == "aggressive" {
			hostile = true
		}
	}
	newSpecies := func() galaxy.AddSpecies {
		return galaxy.AddSpecies{Species: galaxy.Species{Name: name, Traits: append([]string(nil), traits...)}}
	}

	var contact event.ResponseOption
	if hostile {
		contact = option("Initiate peaceful diplomatic contact",
			fmt.Sprintf("The %s view our overtures as weakness and become hostile.", name),
			-10, newSpecies(), galaxy.SetRelation{Species: name, Relation: galaxy.Hostile})
	} else {
		contact = option("Initiate peaceful diplomatic contact",
			fmt.Sprintf("The %s respond positively. A new friendship begins!", name),
			15, newSpecies(), galaxy.SetRelation{Species: name, Relation: galaxy.Friendly})
	}

	return event.Event{
		Description: fmt.Sprintf("Our explorers have encountered the %s, a previously unknown spacefaring species. Initial observations suggest they are %s.", name, strings.Join(traits, " and ")),
		Expertise: []event.Expertise{
			{Tag: "diplomacy", Weight: 0.5},
			{Tag: "culture", Weight: 0.3},
			{Tag: "linguistics", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			contact,
			option("Maintain cautious observation before contact",
				fmt.Sprintf("We observe the %s from afar, learning about them before deciding on contact.", name),
				5, newSpecies()),
			option("Withdraw and avoid contact for now",
				"We retreat quietly. The species remains unaware of us.", 0),
		},
	}
}

type diplomaticRequest struct{}

func (diplomaticRequest) Name() string   { return DiplomaticRequestName }
func (diplomaticRequest) Weight() uint32 { return 9 }

func (diplomaticRequest) Applicable(g *galaxy.State) bool { return len(g.Species) > 0 }

// Generate draws once, for the requesting species.
func (diplomaticRequest) Generate(g *galaxy.State, src rng.Source) event.Event {
	if len(g.Species) == 0 {
		return event.Quiet()
	}
	name := g.Species[pickIndex(src, len(g.Species))].Name
	cur := g.RelationOf(name)

	return event.Event{
		Description: fmt.Sprintf("The %s have sent an envoy requesting a formal diplomatic summit. They wish to discuss trade agreements and cultural exchange. Current relations are %s.", name, cur),
		Expertise: []event.Expertise{
			{Tag: "diplomacy", Weight: 0.5},
			{Tag: "culture", Weight: 0.3},
			{Tag: "strategy", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			option("Accept generously: offer trade and cultural exchange",
				fmt.Sprintf("The %s are delighted by our generosity. Relations improve significantly!", name),
				12, galaxy.SetRelation{Species: name, Relation: galaxy.GreatlyImprove(cur)}),
			option("Negotiate cautiously: seek mutual benefit",
				fmt.Sprintf("Careful negotiations with the %s yield a modest agreement.", name),
				5, galaxy.SetRelation{Species: name, Relation: galaxy.StepUp(cur)}),
			option("Decline the summit: we have other priorities",
				fmt.Sprintf("The %s are offended by our refusal. Relations deteriorate.", name),
				-2, galaxy.SetRelation{Species: name, Relation: galaxy.StepDown(cur)}),
		},
	}
}

type culturalExchange struct{}

func (culturalExchange) Name() string   { return CulturalExchangeName }
func (culturalExchange) Weight() uint32 { return 7 }

func (culturalExchange) Applicable(g *galaxy.State) bool {
	return len(nonHostileSpecies(g)) > 0
}

// Generate draws: partner species (among non-hostile ones, or any species when all are
// hostile), then the mishap roll.
func (culturalExchange) Generate(g *galaxy.State, src rng.Source) event.Event {
	candidates := nonHostileSpecies(g)
	if len(candidates) == 0 {
		for _, sp := range g.Species {
			candidates = append(candidates, sp.Name)
		}
	}
	if len(candidates) == 0 {
		return event.Quiet()
	}
	name := candidates[pickIndex(src, len(candidates))]
	cur := g.RelationOf(name)
	lexicon := galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: name + " Cultural Lexicon", Category: "culture"}}
	mishap := src.NextU32()%6 == 0

	var commit event.ResponseOption
	if mishap {
		commit = option("Commit fully: exchange scholars and share archives",
			"A translation mishap causes offense during the exchange. Relations cool despite useful insights.",
			2, lexicon, galaxy.SetRelation{Species: name, Relation: galaxy.StepDown(galaxy.StepUp(cur))})
	} else {
		commit = option("Commit fully: exchange scholars and share archives",
			fmt.Sprintf("The exchange succeeds. We compile the %s and relations improve.", lexicon.Discovery.Name),
			10, lexicon, galaxy.SetRelation{Species: name, Relation: galaxy.StepUp(cur)})
	}

	return event.Event{
		Description: fmt.Sprintf("The %s invite us to a structured cultural exchange: language mapping, art archives, and diplomatic protocol training. Current relations are %s.", name, cur),
		Expertise: []event.Expertise{
			{Tag: "culture", Weight: 0.4},
			{Tag: "diplomacy", Weight: 0.4},
			{Tag: "science", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			commit,
			option("Accept cautiously: run a limited exchange",
				"A small exchange program runs smoothly. Incremental trust is built.",
				5, galaxy.SetRelation{Species: name, Relation: cur}),
			option("Decline: focus on strategic priorities",
				"We politely decline. The relationship suffers from the missed opportunity.",
				-1, galaxy.SetRelation{Species: name, Relation: galaxy.StepDown(cur)}),
		},
	}
}

func nonHostileSpecies(g *galaxy.State) []string {
	var out []string
	for _, sp := range g.Species {
		if g.RelationOf(sp.Name) != galaxy.Hostile {
			out = append(out, sp.Name)
		}
	}
	return out
}
