package templates

import (
	"fmt"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
)

const (
	maxActiveThreats       = 3
	resourceShortfallName  = "Resource Shortfall"
	recyclingDiscoveryName = "Closed-Loop Recycling v%d"
)

type threatEmergence struct{ names *catalogs.Names }

func (*threatEmergence) Name() string   { return ThreatEmergenceName }
func (*threatEmergence) Weight() uint32 { return 6 }

func (*threatEmergence) Applicable(g *galaxy.State) bool {
	return len(g.Threats) < maxActiveThreats
}

// Generate draws: threat name, severity, then the military engagement roll.
func (t *threatEmergence) Generate(_ *galaxy.State, src rng.Source) event.Event {
	name := pick(src, t.names.Threats)
	severity := int(src.NextU32()%3) + 1

	var confront event.ResponseOption
	if src.NextU32()%2 == 0 {
		confront = option("Confront the threat with immediate military response",
			fmt.Sprintf("Our forces engage the %s. After a fierce battle, the threat is neutralized!", name), 12)
	} else {
		confront = option("Confront the threat with immediate military response",
			fmt.Sprintf("Our forces engage but cannot fully repel the %s. The threat persists.", name),
			-5, galaxy.AddThreat{Threat: galaxy.Threat{Name: name, Severity: severity/2 + 1}})
	}

	return event.Event{
		Description: fmt.Sprintf("Alert! %s have been detected approaching our territory. Threat assessment: severity level %d.", name, severity),
		Expertise: []event.Expertise{
			{Tag: "military", Weight: 0.5},
			{Tag: "strategy", Weight: 0.3},
			{Tag: "engineering", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			confront,
			option("Fortify defenses and prepare for siege",
				fmt.Sprintf("We strengthen our defenses. The %s probe our perimeter but find no weakness.", name),
				3, galaxy.AddThreat{Threat: galaxy.Threat{Name: name, Severity: severity}}),
			option("Attempt diplomatic resolution",
				fmt.Sprintf("Negotiations with the %s fail. They attack while our guard is down!", name),
				-15, galaxy.AddThreat{Threat: galaxy.Threat{Name: name, Severity: severity + 1}}),
		},
	}
}

type resourceScarcity struct{}

func (resourceScarcity) Name() string                  { return ResourceScarcityName }
func (resourceScarcity) Weight() uint32                { return 5 }
func (resourceScarcity) Applicable(*galaxy.State) bool { return true }

// Generate draws: severity; a trade partner when any species is known; a trade roll only
// when that partner is not hostile; then the engineering roll.
func (resourceScarcity) Generate(g *galaxy.State, src rng.Source) event.Event {
	severity := int(src.NextU32()%3) + 1

	partner := ""
	cur := galaxy.Unknown
	if len(g.Species) > 0 {
		partner = g.Species[pickIndex(src, len(g.Species))].Name
		cur = g.RelationOf(partner)
	}
	tradeOK := partner != "" && cur != galaxy.Hostile && src.NextU32()%4 != 0

	var trade event.ResponseOption
	switch {
	case partner == "":
		trade = option("Seek emergency trade and resupply agreements",
			"We have no established contacts to trade with. The council must rely on internal measures.", -2)
	case tradeOK:
		trade = option("Seek emergency trade and resupply agreements",
			fmt.Sprintf("The %s agree to a resupply deal. Relations improve and the crisis eases.", partner),
			8, galaxy.SetRelation{Species: partner, Relation: galaxy.StepUp(cur)})
	default:
		trade = option("Seek emergency trade and resupply agreements",
			fmt.Sprintf("Negotiations with the %s stall. The shortage worsens and trust erodes.", partner),
			-6, galaxy.SetRelation{Species: partner, Relation: galaxy.StepDown(cur)})
	}

	discovery := fmt.Sprintf(recyclingDiscoveryName, severity)
	var engineer event.ResponseOption
	if src.NextU32()%3 == 0 {
		engineer = option("Attempt a rapid engineering breakthrough to replace the missing resources",
			fmt.Sprintf("A rushed but successful retrofit delivers %s. The supply crunch is largely mitigated.", discovery),
			12, galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: discovery, Category: "engineering"}})
	} else {
		engineer = option("Attempt a rapid engineering breakthrough to replace the missing resources",
			"The retrofit program fails and causes cascading shortages. A long-term crisis is now active.",
			-10, galaxy.AddThreat{Threat: galaxy.Threat{Name: resourceShortfallName, Severity: severity}})
	}

	return event.Event{
		Description: fmt.Sprintf("A critical shortage is developing in fuel and critical materials. Internal forecasts rate it severity %d.", severity),
		Expertise: []event.Expertise{
			{Tag: "engineering", Weight: 0.4},
			{Tag: "strategy", Weight: 0.35},
			{Tag: "diplomacy", Weight: 0.25},
		},
		Options: []event.ResponseOption{
			option("Impose rationing and efficiency measures",
				"Consumption drops and reserves stabilize. Nobody loves it, but it works.", 3),
			trade,
			engineer,
		},
	}
}
