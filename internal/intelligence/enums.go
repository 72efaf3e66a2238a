package intelligence

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

func (t ThreatLevel) Valid() bool {
	switch t {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	}
	return false
}

// Rank orders LOW < MEDIUM < HIGH < CRITICAL; unknown values rank lowest.
func (t ThreatLevel) Rank() int {
	switch t {
	case ThreatCritical:
		return 4
	case ThreatHigh:
		return 3
	case ThreatMedium:
		return 2
	case ThreatLow:
		return 1
	}
	return 0
}

func (t *ThreatLevel) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "threat level", t)
}

type MemberStatus string

const (
	MemberActive       MemberStatus = "ACTIVE"
	MemberInactive     MemberStatus = "INACTIVE"
	MemberWanted       MemberStatus = "WANTED"
	MemberIncarcerated MemberStatus = "INCARCERATED"
	MemberDeceased     MemberStatus = "DECEASED"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case MemberActive, MemberInactive, MemberWanted, MemberIncarcerated, MemberDeceased:
		return true
	}
	return false
}

func (s *MemberStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "member status", s)
}

type IncidentType string

const (
	IncidentAssault          IncidentType = "ASSAULT"
	IncidentRobbery          IncidentType = "ROBBERY"
	IncidentDrugTrafficking  IncidentType = "DRUG_TRAFFICKING"
	IncidentMurder           IncidentType = "MURDER"
	IncidentWeapons          IncidentType = "WEAPONS"
	IncidentTerritoryDispute IncidentType = "TERRITORY_DISPUTE"
	IncidentOther            IncidentType = "OTHER"
)

func (t IncidentType) Valid() bool {
	switch t {
	case IncidentAssault, IncidentRobbery, IncidentDrugTrafficking, IncidentMurder,
		IncidentWeapons, IncidentTerritoryDispute, IncidentOther:
		return true
	}
	return false
}

func (t *IncidentType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "incident type", t)
}

type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "OPEN"
	IncidentInvestigating IncidentStatus = "INVESTIGATING"
	IncidentClosed        IncidentStatus = "CLOSED"
)

func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentOpen, IncidentInvestigating, IncidentClosed:
		return true
	}
	return false
}

func (s *IncidentStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "incident status", s)
}

type RelationshipType string

const (
	RelationshipAllied  RelationshipType = "ALLIED"
	RelationshipNeutral RelationshipType = "NEUTRAL"
	RelationshipRival   RelationshipType = "RIVAL"
	RelationshipWar     RelationshipType = "WAR"
)

func (t RelationshipType) Valid() bool {
	switch t {
	case RelationshipAllied, RelationshipNeutral, RelationshipRival, RelationshipWar:
		return true
	}
	return false
}

func (t *RelationshipType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "relationship type", t)
}

type CasePriority string

const (
	PriorityLow    CasePriority = "LOW"
	PriorityMedium CasePriority = "MEDIUM"
	PriorityHigh   CasePriority = "HIGH"
	PriorityUrgent CasePriority = "URGENT"
)

func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (p CasePriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (p *CasePriority) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "case priority", p)
}

type CaseStatus string

const (
	CaseOpen    CaseStatus = "OPEN"
	CaseActive  CaseStatus = "ACTIVE"
	CasePending CaseStatus = "PENDING"
	CaseClosed  CaseStatus = "CLOSED"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseOpen, CaseActive, CasePending, CaseClosed:
		return true
	}
	return false
}

func (s *CaseStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, "case status", s)
}

type enum interface {
	~string
	Valid() bool
}

// ParseEnum accepts any casing and surrounding whitespace.
func ParseEnum[T enum](kind, raw string) (T, error) {
	v := T(cases.Upper(language.Und).String(strings.TrimSpace(raw)))
	if !v.Valid() {
		return v, fmt.Errorf("%w: invalid %s %q", ErrValidation, kind, raw)
	}
	return v, nil
}

func unmarshalEnum[T enum](data []byte, kind string, dst *T) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s must be a string", ErrValidation, kind)
	}
	v, err := ParseEnum[T](kind, raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// threatRank is ThreatLevel.Rank as a SQL expression.
func threatRank(column string) string {
	return "CASE " + column +
		" WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END"
}

func priorityRank(column string) string {
	return "CASE " + column +
		" WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END"
}
