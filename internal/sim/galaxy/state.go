// Package galaxy holds the mutable facts of the simulated universe and the mutators that
// keep them consistent.
package galaxy

import "fmt"

// ThreatPenaltyPerSeverity is the score lost per severity point of every active threat,
// each round.
const ThreatPenaltyPerSeverity = 3

const HomeSectorName = "Home Sector"

type SectorKind uint8

const (
	Habitable SectorKind = iota
	AsteroidField
	Nebula
	Void
	Anomaly
)

var sectorKindNames = [...]string{
	Habitable:     "Habitable",
	AsteroidField: "AsteroidField",
	Nebula:        "Nebula",
	Void:          "Void",
	Anomaly:       "Anomaly",
}

func (k SectorKind) String() string {
	if int(k) < len(sectorKindNames) {
		return sectorKindNames[k]
	}
	return fmt.Sprintf("SectorKind(%d)", uint8(k))
}

func (k SectorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SectorKind) UnmarshalText(b []byte) error {
	for i, name := range sectorKindNames {
		if name == string(b) {
			*k = SectorKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sector kind %q", string(b))
}

type Sector struct {
	Name string     `json:"name"`
	Kind SectorKind `json:"kind"`
}

type Species struct {
	Name   string   `json:"name"`
	Traits []string `json:"traits"`
}

type Discovery struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Threat struct {
	Name         string `json:"name"`
	Severity     int    `json:"severity"`
	RoundsActive int    `json:"rounds_active"`
}

// State is the galaxy snapshot for one run. It is owned by the driving loop and is not
// safe for concurrent mutation.
type State struct {
	Round       int                 `json:"round"`
	Sectors     []Sector            `json:"sectors"`
	Species     []Species           `json:"species"`
	Relations   map[string]Relation `json:"relations"`
	Discoveries []Discovery         `json:"discoveries"`
	Threats     []Threat            `json:"threats"`
}

// New returns the round-0 galaxy: the home sector and nothing else.
func New() *State {
	return &State{
		Sectors:   []Sector{{Name: HomeSectorName, Kind: Habitable}},
		Relations: map[string]Relation{},
	}
}

// Apply applies changes in order. Duplicate sector and species adds are skipped silently.
func (s *State) Apply(changes ...StateChange) {
	if s.Relations == nil {
		s.Relations = map[string]Relation{}
	}
	for _, c := range changes {
		switch c := c.(type) {
		case AddSector:
			if s.sectorIndex(c.Sector.Name) < 0 {
				s.Sectors = append(s.Sectors, c.Sector)
			}
		case AddSpecies:
			if s.speciesIndex(c.Species.Name) < 0 {
				sp := c.Species
				sp.Traits = append([]string(nil), sp.Traits...)
				s.Species = append(s.Species, sp)
				s.Relations[sp.Name] = Unknown
			}
		case SetRelation:
			s.Relations[c.Species] = c.Relation
		case AddDiscovery:
			s.Discoveries = append(s.Discoveries, c.Discovery)
		case AddThreat:
			if !s.HasThreat(c.Threat.Name) && c.Threat.Severity > 0 {
				s.Threats = append(s.Threats, c.Threat)
			}
		case RemoveThreat:
			s.removeThreat(c.Name)
		case ModifyThreatSeverity:
			i := s.threatIndex(c.Name)
			if i < 0 {
				continue
			}
			sev := s.Threats[i].Severity + c.Delta
			if sev <= 0 {
				s.removeThreat(c.Name)
				continue
			}
			s.Threats[i].Severity = sev
		default:
			panic(fmt.Sprintf("galaxy: unhandled state change %T", c))
		}
	}
}

// ProcessThreats ages every active threat by one round and returns the (negative) score
// penalty they inflict. Threats are never removed here.
func (s *State) ProcessThreats() int {
	penalty := 0
	for i := range s.Threats {
		s.Threats[i].RoundsActive++
		penalty -= s.Threats[i].Severity * ThreatPenaltyPerSeverity
	}
	return penalty
}

func (s *State) AlliedCount() int  { return s.countRelation(Allied) }
func (s *State) HostileCount() int { return s.countRelation(Hostile) }

func (s *State) countRelation(r Relation) int {
	n := 0
	for _, v := range s.Relations {
		if v == r {
			n++
		}
	}
	return n
}

// RelationOf returns the standing with a species, Unknown if none is recorded.
func (s *State) RelationOf(species string) Relation {
	if r, ok := s.Relations[species]; ok {
		return r
	}
	return Unknown
}

func (s *State) HasThreat(name string) bool { return s.threatIndex(name) >= 0 }

// ThreatPressure is the summed severity of all active threats.
func (s *State) ThreatPressure() int {
	total := 0
	for _, t := range s.Threats {
		total += t.Severity
	}
	return total
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := &State{
		Round:       s.Round,
		Sectors:     append([]Sector(nil), s.Sectors...),
		Species:     make([]Species, len(s.Species)),
		Relations:   make(map[string]Relation, len(s.Relations)),
		Discoveries: append([]Discovery(nil), s.Discoveries...),
		Threats:     append([]Threat(nil), s.Threats...),
	}
	for i, sp := range s.Species {
		out.Species[i] = Species{Name: sp.Name, Traits: append([]string(nil), sp.Traits...)}
	}
	for k, v := range s.Relations {
		out.Relations[k] = v
	}
	return out
}

func (s *State) sectorIndex(name string) int {
	for i := range s.Sectors {
		if s.Sectors[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) speciesIndex(name string) int {
	for i := range s.Species {
		if s.Species[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) threatIndex(name string) int {
	for i := range s.Threats {
		if s.Threats[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) removeThreat(name string) {
	out := s.Threats[:0]
	for _, t := range s.Threats {
		if t.Name != name {
			out = append(out, t)
		}
	}
	s.Threats = out
}
