// Package templates generates the council's events. Every generator draws from a shared
// rng.Source in a fixed order; the draw protocol of each template is documented on its
// Generate method and pinned by tests, because a single extra or missing draw changes
// every later round of a seeded run.
package templates

import (
	"fmt"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
)

type Template interface {
	Name() string
	Applicable(g *galaxy.State) bool
	Weight() uint32
	Generate(g *galaxy.State, src rng.Source) event.Event
}

const (
	UnknownSignalName     = "Unknown Signal"
	DerelictName          = "Derelict Vessel"
	AnomalyName           = "Spatial Anomaly"
	FirstContactName      = "First Contact"
	ThreatEmergenceName   = "Threat Emergence"
	ResourceScarcityName  = "Resource Scarcity"
	ArtifactName          = "Artifact Discovery"
	DiplomaticRequestName = "Diplomatic Request"
	CulturalExchangeName  = "Cultural Exchange"
	TechBreakthroughName  = "Tech Breakthrough"
)

// DefaultOrder is the catalog order. Selection walks templates in this order, so it is
// part of a seeded run's identity.
var DefaultOrder = [...]string{
	UnknownSignalName,
	DerelictName,
	AnomalyName,
	FirstContactName,
	ThreatEmergenceName,
	ResourceScarcityName,
	ArtifactName,
	DiplomaticRequestName,
	CulturalExchangeName,
	TechBreakthroughName,
}

// Catalog is an ordered, immutable template list.
type Catalog struct {
	templates []Template
}

// NewCatalog builds the built-in templates in DefaultOrder, drawing names from the given
// pools. overrides replaces per-template weights by name; a zero weight disables the
// template. Unknown names are rejected.
func NewCatalog(names catalogs.Names, overrides map[string]uint32) (*Catalog, error) {
	n := &names
	all := []Template{
		&unknownSignal{names: n},
		&derelict{names: n},
		anomaly{},
		&firstContact{names: n},
		&threatEmergence{names: n},
		resourceScarcity{},
		&artifact{names: n},
		diplomaticRequest{},
		culturalExchange{},
		&techBreakthrough{names: n},
	}
	byName := make(map[string]int, len(all))
	for i, t := range all {
		byName[t.Name()] = i
	}
	for name, w := range overrides {
		i, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("templates: unknown template %q", name)
		}
		all[i] = reweighted{Template: all[i], weight: w}
	}
	return &Catalog{templates: all}, nil
}

// Default is the built-in catalog with the embedded name pools and no overrides.
func Default() *Catalog {
	c, err := NewCatalog(catalogs.Default().Names, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// FromCatalogs builds a catalog from loaded catalog files.
func FromCatalogs(c *catalogs.Catalogs) (*Catalog, error) {
	return NewCatalog(c.Names, c.Weights.ByName)
}

func (c *Catalog) Names() []string {
	out := make([]string, len(c.templates))
	for i, t := range c.templates {
		out[i] = t.Name()
	}
	return out
}

func (c *Catalog) Templates() []Template {
	return append([]Template(nil), c.templates...)
}

// Select picks one applicable template by weight and generates its event. When nothing
// applies it returns event.Quiet without drawing.
//
// Draws: one for the roll, then whatever the chosen template draws.
func Select(c *Catalog, g *galaxy.State, src rng.Source) event.Event {
	applicable := make([]Template, 0, len(c.templates))
	var total uint32
	for _, t := range c.templates {
		if t.Weight() == 0 || !t.Applicable(g) {
			continue
		}
		applicable = append(applicable, t)
		total += t.Weight()
	}
	if len(applicable) == 0 {
		return event.Quiet()
	}

	roll := src.NextU32() % total
	for _, t := range applicable {
		if roll < t.Weight() {
			return generate(t, g, src)
		}
		roll -= t.Weight()
	}
	return generate(applicable[0], g, src)
}

func generate(t Template, g *galaxy.State, src rng.Source) event.Event {
	ev := t.Generate(g, src)
	ev.Template = t.Name()
	return ev
}

type reweighted struct {
	Template
	weight uint32
}

func (r reweighted) Weight() uint32 { return r.weight }

func pick(src rng.Source, pool []string) string {
	return pool[int(src.NextU32()%uint32(len(pool)))]
}

func pickIndex(src rng.Source, n int) int {
	return int(src.NextU32() % uint32(n))
}

func sectorName(src rng.Source, n *catalogs.Names) string {
	prefix := pick(src, n.SectorPrefixes)
	suffix := pick(src, n.SectorSuffixes)
	return prefix + " " + suffix
}

func speciesName(src rng.Source, n *catalogs.Names) string {
	prefix := pick(src, n.SpeciesPrefixes)
	suffix := pick(src, n.SpeciesSuffixes)
	return prefix + suffix
}

func option(desc, outcome string, delta int, changes ...galaxy.StateChange) event.ResponseOption {
	return event.ResponseOption{
		Description: desc,
		Outcome: event.Outcome{
			Description: outcome,
			ScoreDelta:  delta,
			Changes:     changes,
		},
	}
}
