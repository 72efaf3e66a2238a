package intelligence

import (
	"context"
	"sort"

	"gorm.io/gorm"
)

const dashboardListSize = 5

// Default orderings of each table.

func orderGangs(db *gorm.DB) *gorm.DB {
	return db.Order(threatRank("threat_level") + " DESC").Order("name")
}

func orderMembers(db *gorm.DB) *gorm.DB {
	return db.Order("gang_id").Order("name")
}

func orderIncidents(db *gorm.DB) *gorm.DB {
	return db.Order("date_time DESC").Order("id DESC")
}

func orderCases(db *gorm.DB) *gorm.DB {
	return db.Order(priorityRank("priority") + " DESC").Order("opened_date DESC").Order("id DESC")
}

type Dashboard struct {
	TotalGangs      int64      `json:"total_gangs"`
	TotalMembers    int64      `json:"total_members"`
	OpenIncidents   int64      `json:"open_incidents"`
	ActiveCases     int64      `json:"active_cases"`
	RecentIncidents []Incident `json:"recent_incidents"`
	PriorityCases   []CaseFile `json:"priority_cases"`
	CriticalGangs   []Gang     `json:"critical_gangs"`
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	tx := s.db.WithContext(ctx)
	var d Dashboard

	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		dst   *int64
	}{
		{&Gang{}, "is_active = ?", []interface{}{true}, &d.TotalGangs},
		{&GangMember{}, "status = ?", []interface{}{MemberActive}, &d.TotalMembers},
		{&Incident{}, "status IN ?", []interface{}{[]IncidentStatus{IncidentOpen, IncidentInvestigating}}, &d.OpenIncidents},
		{&CaseFile{}, "status IN ?", []interface{}{[]CaseStatus{CaseOpen, CaseActive}}, &d.ActiveCases},
	}
	for _, c := range counts {
		if err := tx.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return Dashboard{}, err
		}
	}

	err := tx.Preload("Gangs", orderGangs).
		Scopes(orderIncidents).
		Limit(dashboardListSize).
		Find(&d.RecentIncidents).Error
	if err != nil {
		return Dashboard{}, err
	}
	err = tx.Preload("LeadAgent").
		Scopes(orderCases).
		Where("priority IN ?", []CasePriority{PriorityHigh, PriorityUrgent}).
		Limit(dashboardListSize).
		Find(&d.PriorityCases).Error
	if err != nil {
		return Dashboard{}, err
	}
	err = tx.Scopes(orderGangs).
		Where("threat_level = ? AND is_active = ?", ThreatCritical, true).
		Limit(dashboardListSize).
		Find(&d.CriticalGangs).Error
	if err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// GangSummary is a roster row: the gang and how many incidents involve it.
type GangSummary struct {
	Gang
	IncidentCount int64 `json:"incident_count"`
}

// GangRoster lists active gangs, most threatening and most active first.
func (s *Service) GangRoster(ctx context.Context) ([]GangSummary, error) {
	tx := s.db.WithContext(ctx)

	var gangs []Gang
	if err := tx.Where("is_active = ?", true).Find(&gangs).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		GangID uint
		Total  int64
	}
	err := tx.Table("incident_gangs").
		Select("gang_id, COUNT(*) AS total").
		Group("gang_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	byGang := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byGang[c.GangID] = c.Total
	}

	roster := make([]GangSummary, 0, len(gangs))
	for _, g := range gangs {
		roster = append(roster, GangSummary{Gang: g, IncidentCount: byGang[g.ID]})
	}
	sort.SliceStable(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]
		if a.ThreatLevel.Rank() != b.ThreatLevel.Rank() {
			return a.ThreatLevel.Rank() > b.ThreatLevel.Rank()
		}
		if a.IncidentCount != b.IncidentCount {
			return a.IncidentCount > b.IncidentCount
		}
		return a.Name < b.Name
	})
	return roster, nil
}

// Territories lists the active gangs for the territory map.
func (s *Service) Territories(ctx context.Context) ([]Gang, error) {
	var gangs []Gang
	err := s.db.WithContext(ctx).Scopes(orderGangs).Where("is_active = ?", true).Find(&gangs).Error
	return gangs, err
}

type MemberFilter struct {
	GangID *uint
	Threat *ThreatLevel
}

// MemberRoster lists active members with their gang.
func (s *Service) MemberRoster(ctx context.Context, f MemberFilter) ([]GangMember, error) {
	q := s.db.WithContext(ctx).Preload("Gang").Scopes(orderMembers).Where("status = ?", MemberActive)
	if f.GangID != nil {
		q = q.Where("gang_id = ?", *f.GangID)
	}
	if f.Threat != nil {
		q = q.Where("threat_level = ?", *f.Threat)
	}

	var members []GangMember
	err := q.Find(&members).Error
	return members, err
}

type IncidentFilter struct {
	Status   *IncidentStatus
	Severity *ThreatLevel
}

func (s *Service) IncidentList(ctx context.Context, f IncidentFilter) ([]Incident, error) {
	q := s.db.WithContext(ctx).
		Preload("Gangs", orderGangs).
		Preload("Members", orderMembers).
		Scopes(orderIncidents)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Severity != nil {
		q = q.Where("severity = ?", *f.Severity)
	}

	var incidents []Incident
	err := q.Find(&incidents).Error
	return incidents, err
}

func (s *Service) RelationshipList(ctx context.Context) ([]GangRelationship, error) {
	var rels []GangRelationship
	err := s.db.WithContext(ctx).Preload("Gang1").Preload("Gang2").Order("id").Find(&rels).Error
	return rels, err
}

type CaseFilter struct {
	Status   *CaseStatus
	Priority *CasePriority
}

func (s *Service) CaseList(ctx context.Context, f CaseFilter) ([]CaseFile, error) {
	q := s.db.WithContext(ctx).Preload("LeadAgent").Scopes(orderCases)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}

	var cases []CaseFile
	err := q.Find(&cases).Error
	return cases, err
}
