package intelligence

import (
	"encoding/json"
	"regexp"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
)

// ID is a row id given as a JSON number or a numeric string.
type ID uint

func (id *ID) UnmarshalJSON(data []byte) error {
	v, err := parseID(json.RawMessage(data))
	if err != nil {
		return err
	}
	*id = ID(v)
	return nil
}

// Each input lists exactly the fields a caller may write. Absent fields are
// left alone on update and take the model default on create.

type GangInput struct {
	Name        Optional[string]      `json:"name"`
	Tag         Optional[string]      `json:"tag"`
	Color       Optional[string]      `json:"color"`
	Territory   Optional[string]      `json:"territory"`
	ThreatLevel Optional[ThreatLevel] `json:"threat_level"`
	FoundedDate Optional[Date]        `json:"founded_date"`
	MemberCount Optional[int]         `json:"member_count"`
	Description Optional[string]      `json:"description"`
	IsActive    Optional[bool]        `json:"is_active"`
}

type MemberInput struct {
	GangID         Optional[ID]           `json:"gang_id"`
	Name           Optional[string]       `json:"name"`
	Alias          Optional[string]       `json:"alias"`
	Rank           Optional[string]       `json:"rank"`
	Photo          Optional[string]       `json:"photo"`
	DateOfBirth    Optional[Date]         `json:"date_of_birth"`
	CriminalRecord Optional[string]       `json:"criminal_record"`
	LastSeen       Optional[Timestamp]    `json:"last_seen"`
	Status         Optional[MemberStatus] `json:"status"`
	ThreatLevel    Optional[ThreatLevel]  `json:"threat_level"`
	Notes          Optional[string]       `json:"notes"`
	AssociateIDs   Optional[IDList]       `json:"associate_ids"`
}

type IncidentInput struct {
	Title        Optional[string]         `json:"title"`
	IncidentType Optional[IncidentType]   `json:"incident_type"`
	Location     Optional[string]         `json:"location"`
	DateTime     Optional[Timestamp]      `json:"date_time"`
	Description  Optional[string]         `json:"description"`
	Severity     Optional[ThreatLevel]    `json:"severity"`
	Status       Optional[IncidentStatus] `json:"status"`
	Evidence     Optional[string]         `json:"evidence"`
	GangIDs      Optional[IDList]         `json:"gang_ids"`
	MemberIDs    Optional[IDList]         `json:"member_ids"`
}

// RelationshipInput: the gang pair is fixed at creation.
type RelationshipInput struct {
	Gang1ID          Optional[ID]               `json:"gang_1_id"`
	Gang2ID          Optional[ID]               `json:"gang_2_id"`
	RelationshipType Optional[RelationshipType] `json:"relationship_type"`
	Notes            Optional[string]           `json:"notes"`
}

type CaseFileInput struct {
	CaseNumber    Optional[string]       `json:"case_number"`
	Title         Optional[string]       `json:"title"`
	Description   Optional[string]       `json:"description"`
	Priority      Optional[CasePriority] `json:"priority"`
	Status        Optional[CaseStatus]   `json:"status"`
	OpenedDate    Optional[Timestamp]    `json:"opened_date"`
	ClosedDate    Optional[Timestamp]    `json:"closed_date"`
	Notes         Optional[string]       `json:"notes"`
	Image         Optional[string]       `json:"image"`
	LeadAgentID   Optional[string]       `json:"lead_agent_id"`
	GangIDs       Optional[IDList]       `json:"gang_ids"`
	MemberIDs     Optional[IDList]       `json:"member_ids"`
	TeamMemberIDs Optional[UserIDList]   `json:"team_member_ids"`
}

// changeSet collects the columns an input touched and the first problem
// found while applying it.
type changeSet struct {
	columns []string
	err     error
}

func (cs *changeSet) fail(err error) {
	if cs.err == nil {
		cs.err = err
	}
}

func (cs *changeSet) touched(column string) {
	cs.columns = append(cs.columns, column)
}

// set copies a non-nullable field.
func set[T any](cs *changeSet, column string, o Optional[T], dst *T) {
	if !o.IsSet() {
		return
	}
	if o.IsNull() {
		cs.fail(invalid("%s cannot be null", column))
		return
	}
	*dst = o.Value()
	cs.touched(column)
}

// setText is set plus a length limit in characters.
func setText(cs *changeSet, column string, o Optional[string], dst *string, max int) {
	if o.IsSet() && utf8.RuneCountInString(o.Value()) > max {
		cs.fail(invalid("%s is longer than %d characters", column, max))
		return
	}
	set(cs, column, o, dst)
}

// setNullable copies a nullable field; null clears it.
func setNullable[T, D any](cs *changeSet, column string, o Optional[T], dst **D, conv func(T) *D) {
	if !o.IsSet() {
		return
	}
	if o.IsNull() {
		*dst = nil
	} else {
		*dst = conv(o.Value())
	}
	cs.touched(column)
}

// reference treats "" like null, the way the forms clear an image.
func reference(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func dateColumn(d Date) *datatypes.Date { return d.column() }

func timeColumn(ts Timestamp) *time.Time {
	t := ts.Time
	return &t
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const DefaultGangColor = "#FF0000"

func (in GangInput) apply(g *Gang) ([]string, error) {
	var cs changeSet
	setText(&cs, "name", in.Name, &g.Name, 100)
	setText(&cs, "tag", in.Tag, &g.Tag, 20)
	if in.Color.IsSet() && !in.Color.IsNull() && !colorPattern.MatchString(in.Color.Value()) {
		cs.fail(invalid("color must look like #RRGGBB"))
	}
	set(&cs, "color", in.Color, &g.Color)
	set(&cs, "territory", in.Territory, &g.Territory)
	set(&cs, "threat_level", in.ThreatLevel, &g.ThreatLevel)
	setNullable(&cs, "founded_date", in.FoundedDate, &g.FoundedDate, dateColumn)
	if in.MemberCount.IsSet() && in.MemberCount.Value() < 0 {
		cs.fail(invalid("member_count cannot be negative"))
	}
	set(&cs, "member_count", in.MemberCount, &g.MemberCount)
	set(&cs, "description", in.Description, &g.Description)
	set(&cs, "is_active", in.IsActive, &g.IsActive)
	return cs.columns, cs.err
}

// apply leaves gang_id and associate_ids to the service, which has to resolve
// them against the store.
func (in MemberInput) apply(m *GangMember) ([]string, error) {
	var cs changeSet
	setText(&cs, "name", in.Name, &m.Name, 100)
	setText(&cs, "alias", in.Alias, &m.Alias, 100)
	setText(&cs, "rank", in.Rank, &m.Rank, 50)
	setNullable(&cs, "photo", in.Photo, &m.Photo, reference)
	setNullable(&cs, "date_of_birth", in.DateOfBirth, &m.DateOfBirth, dateColumn)
	set(&cs, "criminal_record", in.CriminalRecord, &m.CriminalRecord)
	setNullable(&cs, "last_seen", in.LastSeen, &m.LastSeen, timeColumn)
	set(&cs, "status", in.Status, &m.Status)
	set(&cs, "threat_level", in.ThreatLevel, &m.ThreatLevel)
	set(&cs, "notes", in.Notes, &m.Notes)
	if in.GangID.IsNull() {
		cs.fail(invalid("gang_id cannot be null"))
	}
	return cs.columns, cs.err
}

func (in IncidentInput) apply(i *Incident) ([]string, error) {
	var cs changeSet
	setText(&cs, "title", in.Title, &i.Title, 200)
	set(&cs, "incident_type", in.IncidentType, &i.IncidentType)
	setText(&cs, "location", in.Location, &i.Location, 200)
	if in.DateTime.IsSet() && !in.DateTime.IsNull() {
		i.DateTime = in.DateTime.Value().Time
		cs.touched("date_time")
	} else if in.DateTime.IsNull() {
		cs.fail(invalid("date_time cannot be null"))
	}
	set(&cs, "description", in.Description, &i.Description)
	set(&cs, "severity", in.Severity, &i.Severity)
	set(&cs, "status", in.Status, &i.Status)
	set(&cs, "evidence", in.Evidence, &i.Evidence)
	return cs.columns, cs.err
}

func (in RelationshipInput) apply(rel *GangRelationship) ([]string, error) {
	var cs changeSet
	set(&cs, "relationship_type", in.RelationshipType, &rel.RelationshipType)
	set(&cs, "notes", in.Notes, &rel.Notes)
	if in.Gang1ID.IsNull() || in.Gang2ID.IsNull() {
		cs.fail(invalid("gang_1_id and gang_2_id cannot be null"))
	}
	return cs.columns, cs.err
}

// apply leaves lead_agent_id and the association sets to the service.
func (in CaseFileInput) apply(c *CaseFile) ([]string, error) {
	var cs changeSet
	if in.CaseNumber.IsSet() && !in.CaseNumber.IsNull() && in.CaseNumber.Value() == "" {
		cs.fail(invalid("case_number cannot be empty"))
	}
	setText(&cs, "case_number", in.CaseNumber, &c.CaseNumber, 50)
	setText(&cs, "title", in.Title, &c.Title, 200)
	set(&cs, "description", in.Description, &c.Description)
	set(&cs, "priority", in.Priority, &c.Priority)
	set(&cs, "status", in.Status, &c.Status)
	if in.OpenedDate.IsSet() && !in.OpenedDate.IsNull() {
		c.OpenedDate = in.OpenedDate.Value().Time
		cs.touched("opened_date")
	} else if in.OpenedDate.IsNull() {
		cs.fail(invalid("opened_date cannot be null"))
	}
	setNullable(&cs, "closed_date", in.ClosedDate, &c.ClosedDate, timeColumn)
	set(&cs, "notes", in.Notes, &c.Notes)
	setNullable(&cs, "image", in.Image, &c.Image, reference)
	return cs.columns, cs.err
}
