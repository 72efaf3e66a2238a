package intelligence

import (
	"time"

	"github.com/sadoj/intel-backend/internal/auth"
	"gorm.io/datatypes"
)

type Gang struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Tag         string          `gorm:"size:20" json:"tag"`
	Color       string          `gorm:"size:7;not null" json:"color"`
	Territory   string          `json:"territory"`
	ThreatLevel ThreatLevel     `gorm:"size:10;not null;index" json:"threat_level"`
	FoundedDate *datatypes.Date `json:"founded_date"`
	MemberCount int             `gorm:"not null" json:"member_count"`
	Description string          `json:"description"`
	IsActive    bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Members belong to exactly one gang and go with it.
	Members []GangMember `gorm:"constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

type GangMember struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	GangID         uint            `gorm:"not null;index" json:"gang_id"`
	Gang           *Gang           `json:"gang,omitempty"`
	Name           string          `gorm:"size:100;not null" json:"name"`
	Alias          string          `gorm:"size:100" json:"alias"`
	Rank           string          `gorm:"size:50" json:"rank"`
	Photo          *string         `json:"photo"`
	DateOfBirth    *datatypes.Date `json:"date_of_birth"`
	CriminalRecord string          `json:"criminal_record"`
	LastSeen       *time.Time      `json:"last_seen"`
	Status         MemberStatus    `gorm:"size:20;not null;index" json:"status"`
	ThreatLevel    ThreatLevel     `gorm:"size:10;not null;index" json:"threat_level"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Associates is filled from member_associations on single-member reads.
	Associates []GangMember `gorm:"-" json:"known_associates,omitempty"`
}

// MemberAssociation is one undirected "known associate" edge. LowID is always
// the smaller member id, so each pair is stored once.
type MemberAssociation struct {
	LowID  uint        `gorm:"primaryKey;autoIncrement:false" json:"low_id"`
	HighID uint        `gorm:"primaryKey;autoIncrement:false;index" json:"high_id"`
	Low    *GangMember `gorm:"foreignKey:LowID;constraint:OnDelete:CASCADE" json:"-"`
	High   *GangMember `gorm:"foreignKey:HighID;constraint:OnDelete:CASCADE" json:"-"`
}

type Incident struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"size:200;not null" json:"title"`
	IncidentType IncidentType   `gorm:"size:30;not null" json:"incident_type"`
	Gangs        []Gang         `gorm:"many2many:incident_gangs;constraint:OnDelete:CASCADE" json:"gangs_involved"`
	Members      []GangMember   `gorm:"many2many:incident_members;constraint:OnDelete:CASCADE" json:"members_involved"`
	Location     string         `gorm:"size:200" json:"location"`
	DateTime     time.Time      `gorm:"not null;index" json:"date_time"`
	Description  string         `json:"description"`
	Severity     ThreatLevel    `gorm:"size:10;not null;index" json:"severity"`
	Status       IncidentStatus `gorm:"size:20;not null;index" json:"status"`
	ReportedByID *string        `gorm:"index" json:"reported_by_id"`
	ReportedBy   *auth.User     `gorm:"foreignKey:ReportedByID;references:UserID;constraint:OnDelete:SET NULL" json:"reported_by,omitempty"`
	Evidence     string         `json:"evidence"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type GangRelationship struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Gang1ID          uint             `gorm:"column:gang_1_id;not null;uniqueIndex:idx_gang_relationships_pair" json:"gang_1_id"`
	Gang1            *Gang            `gorm:"foreignKey:Gang1ID;constraint:OnDelete:CASCADE" json:"gang_1,omitempty"`
	Gang2ID          uint             `gorm:"column:gang_2_id;not null;uniqueIndex:idx_gang_relationships_pair;index" json:"gang_2_id"`
	Gang2            *Gang            `gorm:"foreignKey:Gang2ID;constraint:OnDelete:CASCADE" json:"gang_2,omitempty"`
	RelationshipType RelationshipType `gorm:"size:20;not null" json:"relationship_type"`
	Notes            string           `json:"notes"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type CaseFile struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CaseNumber  string       `gorm:"size:50;not null;uniqueIndex" json:"case_number"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Gangs       []Gang       `gorm:"many2many:case_file_gangs;constraint:OnDelete:CASCADE" json:"gangs"`
	Members     []GangMember `gorm:"many2many:case_file_members;constraint:OnDelete:CASCADE" json:"members"`
	LeadAgentID *string      `gorm:"index" json:"lead_agent_id"`
	LeadAgent   *auth.User   `gorm:"foreignKey:LeadAgentID;references:UserID;constraint:OnDelete:SET NULL" json:"lead_agent,omitempty"`
	TeamMembers []auth.User  `gorm:"many2many:case_file_team_members;joinForeignKey:CaseFileID;joinReferences:UserID;constraint:OnDelete:CASCADE" json:"team_members"`
	Description string       `json:"description"`
	Priority    CasePriority `gorm:"size:10;not null;index" json:"priority"`
	Status      CaseStatus   `gorm:"size:20;not null;index" json:"status"`
	OpenedDate  time.Time    `gorm:"not null" json:"opened_date"`
	ClosedDate  *time.Time   `json:"closed_date"`
	Notes       string       `json:"notes"`
	Image       *string      `json:"image"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Gang) TableName() string              { return "gangs" }
func (GangMember) TableName() string        { return "gang_members" }
func (MemberAssociation) TableName() string { return "member_associations" }
func (Incident) TableName() string          { return "incidents" }
func (GangRelationship) TableName() string  { return "gang_relationships" }
func (CaseFile) TableName() string          { return "case_files" }
