package templates

import (
	"fmt"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
)

const maxExploredSectors = 10

type unknownSignal struct{ names *catalogs.Names }

func (*unknownSignal) Name() string   { return UnknownSignalName }
func (*unknownSignal) Weight() uint32 { return 10 }

func (*unknownSignal) Applicable(g *galaxy.State) bool {
	return len(g.Sectors) < maxExploredSectors
}

// Generate draws: sector prefix, sector suffix, sector kind.
func (t *unknownSignal) Generate(_ *galaxy.State, src rng.Source) event.Event {
	name := sectorName(src, t.names)
	var kind galaxy.SectorKind
	switch src.NextU32() % 4 {
	case 0:
		kind = galaxy.Nebula
	case 1:
		kind = galaxy.AsteroidField
	case 2:
		kind = galaxy.Habitable
	default:
		kind = galaxy.Void
	}

	return event.Event{
		Description: fmt.Sprintf("Long-range sensors detect an unusual signal emanating from an unexplored region. Analysis suggests it originates from the %s.", name),
		Expertise: []event.Expertise{
			{Tag: "science", Weight: 0.4},
			{Tag: "exploration", Weight: 0.4},
			{Tag: "engineering", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			option("Dispatch a crewed expedition to investigate",
				fmt.Sprintf("The expedition successfully charts the %s and returns with valuable data.", name),
				15, galaxy.AddSector{Sector: galaxy.Sector{Name: name, Kind: kind}}),
			option("Send an unmanned probe first",
				"The probe returns preliminary data. The region is noted for future exploration.", 5),
			option("Log the signal but focus on known priorities",
				"The signal is archived. Perhaps another time.", 0),
		},
	}
}

type derelict struct{ names *catalogs.Names }

func (*derelict) Name() string   { return DerelictName }
func (*derelict) Weight() uint32 { return 6 }

func (*derelict) Applicable(g *galaxy.State) bool { return len(g.Sectors) > 0 }

// Generate draws: sector index, salvage, threat name, risk roll, and a fourth severity
// draw only when the salvage is risky.
func (t *derelict) Generate(g *galaxy.State, src rng.Source) event.Event {
	sector := sectorAt(g, pickIndex(src, max(len(g.Sectors), 1)))
	salvage := pick(src, t.names.Artifacts)
	threat := pick(src, t.names.Threats)
	risky := src.NextU32()%5 == 0

	found := galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: salvage, Category: "salvage"}}
	var board event.ResponseOption
	if risky {
		severity := 1 + int(src.NextU32()%3)
		board = option("Board the vessel and salvage anything useful",
			fmt.Sprintf("The boarding team recovers a %s but triggers dormant systems. A new threat emerges: %s.", salvage, threat),
			6, found, galaxy.AddThreat{Threat: galaxy.Threat{Name: threat, Severity: severity}})
	} else {
		board = option("Board the vessel and salvage anything useful",
			fmt.Sprintf("The salvage operation is a success. The council secures a %s from the wreck.", salvage),
			14, found)
	}

	return event.Event{
		Description: fmt.Sprintf("Scanners pick up a derelict vessel drifting within the %s. Its hull markings don't match any known registry.", sector),
		Expertise: []event.Expertise{
			{Tag: "exploration", Weight: 0.35},
			{Tag: "engineering", Weight: 0.35},
			{Tag: "science", Weight: 0.2},
			{Tag: "security", Weight: 0.1},
		},
		Options: []event.ResponseOption{
			board,
			option("Scan it remotely and leave it undisturbed",
				"Long-range scans yield useful telemetry and material analysis. Low risk, modest gain.", 6),
			option("Mark the location and move on",
				"The derelict is logged for future expeditions. The council stays focused on current priorities.", 1),
		},
	}
}

type anomaly struct{}

func (anomaly) Name() string                  { return AnomalyName }
func (anomaly) Weight() uint32                { return 8 }
func (anomaly) Applicable(*galaxy.State) bool { return true }

// Generate draws once, for the close-study breakthrough.
func (anomaly) Generate(_ *galaxy.State, src rng.Source) event.Event {
	var study event.ResponseOption
	if src.NextU32()%3 == 0 {
		study = option("Send a research team to study it closely",
			"The research team makes a breakthrough discovery about spatial physics!", 20,
			galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: "Spatial Dynamics Theory", Category: "science"}})
	} else {
		study = option("Send a research team to study it closely",
			"The team gathers useful data, though the anomaly remains mysterious.", 8)
	}

	return event.Event{
		Description: "A spatial anomaly has been detected nearby. It appears to be a stable wormhole or dimensional rift. Energy readings are off the charts.",
		Expertise: []event.Expertise{
			{Tag: "science", Weight: 0.5},
			{Tag: "engineering", Weight: 0.3},
			{Tag: "exploration", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			study,
			option("Observe from a safe distance with long-range sensors",
				"Remote observations provide some data. Playing it safe.", 3),
			option("Mark as hazardous and establish exclusion zone",
				"The anomaly is marked on charts as a navigation hazard.", 0),
		},
	}
}

type artifact struct{ names *catalogs.Names }

func (*artifact) Name() string   { return ArtifactName }
func (*artifact) Weight() uint32 { return 7 }

func (*artifact) Applicable(g *galaxy.State) bool { return len(g.Sectors) > 1 }

// Generate draws: sector index, artifact name, activation roll.
func (t *artifact) Generate(g *galaxy.State, src rng.Source) event.Event {
	sector := sectorAt(g, pickIndex(src, max(len(g.Sectors), 1)))
	name := pick(src, t.names.Artifacts)
	found := galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: name, Category: "artifact"}}

	var activate event.ResponseOption
	if src.NextU32()%4 == 0 {
		activate = option("Attempt to activate the artifact immediately",
			fmt.Sprintf("The %s activates but overloads, causing damage before failing.", name), -10)
	} else {
		activate = option("Attempt to activate the artifact immediately",
			fmt.Sprintf("The %s activates successfully! Its knowledge is integrated into our systems.", name),
			18, found)
	}

	return event.Event{
		Description: fmt.Sprintf("Survey teams in %s have discovered what appears to be an ancient %s. Initial scans suggest it may still be functional.", sector, name),
		Expertise: []event.Expertise{
			{Tag: "archaeology", Weight: 0.4},
			{Tag: "science", Weight: 0.3},
			{Tag: "engineering", Weight: 0.3},
		},
		Options: []event.ResponseOption{
			activate,
			option("Carefully study it before attempting activation",
				fmt.Sprintf("Careful analysis reveals the %s's secrets safely.", name), 10, found),
			option("Secure the site for later investigation",
				"The artifact is secured. We'll return to it when resources allow.", 2),
		},
	}
}

func sectorAt(g *galaxy.State, i int) string {
	if i < len(g.Sectors) {
		return g.Sectors[i].Name
	}
	return galaxy.HomeSectorName
}
