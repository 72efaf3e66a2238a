package intelligence

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CreateCase opens a case file. The acting agent leads it unless the input
// names another lead agent (or null for none).
func (s *Service) CreateCase(ctx context.Context, actor Actor, in CaseFileInput) (CaseFile, error) {
	lead := actor.UserID
	c := CaseFile{
		Priority:    PriorityMedium,
		Status:      CaseOpen,
		OpenedDate:  time.Now().UTC(),
		LeadAgentID: &lead,
	}

	err := s.mutate(ctx, actor, "case", func(tx *gorm.DB) error {
		if _, err := in.apply(&c); err != nil {
			return err
		}
		if !in.CaseNumber.IsSet() {
			return invalid("case_number is required")
		}
		if err := checkCaseNumber(tx, c.CaseNumber, 0); err != nil {
			return err
		}
		if err := resolveLeadAgent(tx, &c, in); err != nil {
			return err
		}
		if c.LeadAgentID != nil && !in.LeadAgentID.IsSet() {
			if err := agentExists(tx, *c.LeadAgentID); err != nil {
				return err
			}
		}

		if err := tx.Omit("Gangs", "Members", "TeamMembers").Create(&c).Error; err != nil {
			return err
		}
		return setCaseSets(tx, &c, in)
	})
	if err != nil {
		return CaseFile{}, err
	}
	return c, nil
}

func (s *Service) UpdateCase(ctx context.Context, actor Actor, id uint, in CaseFileInput) (CaseFile, error) {
	var c CaseFile
	err := s.mutate(ctx, actor, "case", func(tx *gorm.DB) error {
		if err := findByID(tx, &c, "case", id); err != nil {
			return err
		}
		columns, err := in.apply(&c)
		if err != nil {
			return err
		}
		if in.CaseNumber.IsSet() {
			if err := checkCaseNumber(tx, c.CaseNumber, c.ID); err != nil {
				return err
			}
		}
		if in.LeadAgentID.IsSet() {
			if err := resolveLeadAgent(tx, &c, in); err != nil {
				return err
			}
			columns = append(columns, "lead_agent_id")
		}

		if len(columns) > 0 {
			if err := tx.Model(&c).Select(columns).Updates(&c).Error; err != nil {
				return err
			}
		}
		return setCaseSets(tx, &c, in)
	})
	if err != nil {
		return CaseFile{}, err
	}
	return c, nil
}

func checkCaseNumber(tx *gorm.DB, number string, self uint) error {
	var count int64
	err := tx.Model(&CaseFile{}).Where("case_number = ? AND id <> ?", number, self).Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return errConflict("case number %q already exists", number)
	}
	return nil
}

// resolveLeadAgent applies lead_agent_id when present; an empty id or null
// leaves the case without a lead.
func resolveLeadAgent(tx *gorm.DB, c *CaseFile, in CaseFileInput) error {
	if !in.LeadAgentID.IsSet() {
		return nil
	}
	if in.LeadAgentID.IsNull() || in.LeadAgentID.Value() == "" {
		c.LeadAgentID = nil
		return nil
	}
	id := in.LeadAgentID.Value()
	if err := agentExists(tx, id); err != nil {
		return err
	}
	c.LeadAgentID = &id
	return nil
}

func setCaseSets(tx *gorm.DB, c *CaseFile, in CaseFileInput) error {
	if in.GangIDs.IsSet() {
		gangs, err := loadGangs(tx, in.GangIDs.Value())
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx, c, "Gangs", gangs, len(gangs) == 0); err != nil {
			return err
		}
		c.Gangs = gangs
	}
	if in.MemberIDs.IsSet() {
		members, err := loadMembers(tx, in.MemberIDs.Value())
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx, c, "Members", members, len(members) == 0); err != nil {
			return err
		}
		c.Members = members
	}
	if in.TeamMemberIDs.IsSet() {
		team, err := loadAgents(tx, in.TeamMemberIDs.Value())
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx, c, "TeamMembers", team, len(team) == 0); err != nil {
			return err
		}
		c.TeamMembers = team
	}
	return nil
}

func (s *Service) DeleteCase(ctx context.Context, actor Actor, id uint) error {
	return s.mutate(ctx, actor, "case", func(tx *gorm.DB) error {
		var c CaseFile
		if err := findByID(tx, &c, "case", id); err != nil {
			return err
		}
		for _, stmt := range []string{
			"DELETE FROM case_file_gangs WHERE case_file_id = ?",
			"DELETE FROM case_file_members WHERE case_file_id = ?",
			"DELETE FROM case_file_team_members WHERE case_file_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&c).Error
	})
}

func (s *Service) GetCase(ctx context.Context, id uint) (CaseFile, error) {
	var c CaseFile
	err := s.db.WithContext(ctx).
		Preload("Gangs", orderGangs).
		Preload("Members", orderMembers).
		Preload("LeadAgent").
		Preload("TeamMembers", func(db *gorm.DB) *gorm.DB { return db.Order("username") }).
		First(&c, id).Error
	if err != nil {
		return CaseFile{}, translateDBError(err, "case")
	}
	return c, nil
}
