package intelligence

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CreateIncident records an incident reported by the acting agent.
func (s *Service) CreateIncident(ctx context.Context, actor Actor, in IncidentInput) (Incident, error) {
	reporter := actor.UserID
	incident := Incident{
		IncidentType: IncidentOther,
		DateTime:     time.Now().UTC(),
		Severity:     ThreatMedium,
		Status:       IncidentOpen,
		ReportedByID: &reporter,
	}

	err := s.mutate(ctx, actor, "incident", func(tx *gorm.DB) error {
		if _, err := in.apply(&incident); err != nil {
			return err
		}
		if err := agentExists(tx, reporter); err != nil {
			return err
		}
		if err := tx.Omit("Gangs", "Members").Create(&incident).Error; err != nil {
			return err
		}
		return setIncidentSets(tx, &incident, in)
	})
	if err != nil {
		return Incident{}, err
	}
	return incident, nil
}

func (s *Service) UpdateIncident(ctx context.Context, actor Actor, id uint, in IncidentInput) (Incident, error) {
	var incident Incident
	err := s.mutate(ctx, actor, "incident", func(tx *gorm.DB) error {
		if err := findByID(tx, &incident, "incident", id); err != nil {
			return err
		}
		columns, err := in.apply(&incident)
		if err != nil {
			return err
		}
		if len(columns) > 0 {
			if err := tx.Model(&incident).Select(columns).Updates(&incident).Error; err != nil {
				return err
			}
		}
		return setIncidentSets(tx, &incident, in)
	})
	if err != nil {
		return Incident{}, err
	}
	return incident, nil
}

// setIncidentSets replaces the involved gangs and members that the input
// names. Either set can be given alone.
func setIncidentSets(tx *gorm.DB, incident *Incident, in IncidentInput) error {
	if in.GangIDs.IsSet() {
		gangs, err := loadGangs(tx, in.GangIDs.Value())
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx, incident, "Gangs", gangs, len(gangs) == 0); err != nil {
			return err
		}
		incident.Gangs = gangs
	}
	if in.MemberIDs.IsSet() {
		members, err := loadMembers(tx, in.MemberIDs.Value())
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx, incident, "Members", members, len(members) == 0); err != nil {
			return err
		}
		incident.Members = members
	}
	return nil
}

func (s *Service) DeleteIncident(ctx context.Context, actor Actor, id uint) error {
	return s.mutate(ctx, actor, "incident", func(tx *gorm.DB) error {
		var incident Incident
		if err := findByID(tx, &incident, "incident", id); err != nil {
			return err
		}
		for _, stmt := range []string{
			"DELETE FROM incident_gangs WHERE incident_id = ?",
			"DELETE FROM incident_members WHERE incident_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&incident).Error
	})
}

func (s *Service) GetIncident(ctx context.Context, id uint) (Incident, error) {
	var incident Incident
	err := s.db.WithContext(ctx).
		Preload("Gangs", orderGangs).
		Preload("Members", orderMembers).
		Preload("ReportedBy").
		First(&incident, id).Error
	if err != nil {
		return Incident{}, translateDBError(err, "incident")
	}
	return incident, nil
}
