package galaxy

import "fmt"

type ChangeKind string

const (
	ChangeAddSector            ChangeKind = "ADD_SECTOR"
	ChangeAddSpecies           ChangeKind = "ADD_SPECIES"
	ChangeSetRelation          ChangeKind = "SET_RELATION"
	ChangeAddDiscovery         ChangeKind = "ADD_DISCOVERY"
	ChangeAddThreat            ChangeKind = "ADD_THREAT"
	ChangeRemoveThreat         ChangeKind = "REMOVE_THREAT"
	ChangeModifyThreatSeverity ChangeKind = "MODIFY_THREAT_SEVERITY"
)

// StateChange is one mutation carried by an outcome. The set of implementations is closed:
// only the types in this file satisfy it.
type StateChange interface {
	Kind() ChangeKind
	String() string
	stateChange()
}

type AddSector struct{ Sector Sector }

type AddSpecies struct{ Species Species }

type SetRelation struct {
	Species  string
	Relation Relation
}

type AddDiscovery struct{ Discovery Discovery }

// AddThreat is a no-op when a threat with the same name is already active.
type AddThreat struct{ Threat Threat }

type RemoveThreat struct{ Name string }

// ModifyThreatSeverity adds Delta to the named threat's severity, clamping at zero. A
// threat that reaches zero is removed.
type ModifyThreatSeverity struct {
	Name  string
	Delta int
}

func (AddSector) stateChange()            {}
func (AddSpecies) stateChange()           {}
func (SetRelation) stateChange()          {}
func (AddDiscovery) stateChange()         {}
func (AddThreat) stateChange()            {}
func (RemoveThreat) stateChange()         {}
func (ModifyThreatSeverity) stateChange() {}

func (AddSector) Kind() ChangeKind            { return ChangeAddSector }
func (AddSpecies) Kind() ChangeKind           { return ChangeAddSpecies }
func (SetRelation) Kind() ChangeKind          { return ChangeSetRelation }
func (AddDiscovery) Kind() ChangeKind         { return ChangeAddDiscovery }
func (AddThreat) Kind() ChangeKind            { return ChangeAddThreat }
func (RemoveThreat) Kind() ChangeKind         { return ChangeRemoveThreat }
func (ModifyThreatSeverity) Kind() ChangeKind { return ChangeModifyThreatSeverity }

func (c AddSector) String() string {
	return fmt.Sprintf("sector %s (%s)", c.Sector.Name, c.Sector.Kind)
}

func (c AddSpecies) String() string { return "species " + c.Species.Name }

func (c SetRelation) String() string {
	return fmt.Sprintf("relation %s=%s", c.Species, c.Relation)
}

func (c AddDiscovery) String() string {
	return fmt.Sprintf("discovery %s [%s]", c.Discovery.Name, c.Discovery.Category)
}

func (c AddThreat) String() string {
	return fmt.Sprintf("threat %s (sev %d)", c.Threat.Name, c.Threat.Severity)
}

func (c RemoveThreat) String() string { return "resolve threat " + c.Name }

func (c ModifyThreatSeverity) String() string {
	return fmt.Sprintf("threat %s severity %+d", c.Name, c.Delta)
}
