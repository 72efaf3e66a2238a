package intelligence

import (
	"context"
	"sort"

	"gorm.io/gorm"
)

func (s *Service) CreateMember(ctx context.Context, actor Actor, in MemberInput) (GangMember, error) {
	member := GangMember{
		Status:      MemberActive,
		ThreatLevel: ThreatLow,
	}

	err := s.mutate(ctx, actor, "member", func(tx *gorm.DB) error {
		if _, err := in.apply(&member); err != nil {
			return err
		}
		if !in.GangID.IsSet() {
			return invalid("gang_id is required")
		}
		if err := findByID(tx, &Gang{}, "gang", uint(in.GangID.Value())); err != nil {
			return err
		}
		member.GangID = uint(in.GangID.Value())

		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		if in.AssociateIDs.IsSet() {
			return replaceAssociates(tx, member.ID, in.AssociateIDs.Value())
		}
		return nil
	})
	if err != nil {
		return GangMember{}, err
	}
	return member, nil
}

func (s *Service) UpdateMember(ctx context.Context, actor Actor, id uint, in MemberInput) (GangMember, error) {
	var member GangMember
	err := s.mutate(ctx, actor, "member", func(tx *gorm.DB) error {
		if err := findByID(tx, &member, "member", id); err != nil {
			return err
		}
		columns, err := in.apply(&member)
		if err != nil {
			return err
		}
		if in.GangID.IsSet() {
			if err := findByID(tx, &Gang{}, "gang", uint(in.GangID.Value())); err != nil {
				return err
			}
			member.GangID = uint(in.GangID.Value())
			columns = append(columns, "gang_id")
		}

		if len(columns) > 0 {
			if err := tx.Model(&member).Select(columns).Updates(&member).Error; err != nil {
				return err
			}
		}
		if in.AssociateIDs.IsSet() {
			return replaceAssociates(tx, member.ID, in.AssociateIDs.Value())
		}
		return nil
	})
	if err != nil {
		return GangMember{}, err
	}
	return member, nil
}

func (s *Service) DeleteMember(ctx context.Context, actor Actor, id uint) error {
	return s.mutate(ctx, actor, "member", func(tx *gorm.DB) error {
		var member GangMember
		if err := findByID(tx, &member, "member", id); err != nil {
			return err
		}
		if err := detachMembers(tx, []uint{id}); err != nil {
			return err
		}
		return tx.Delete(&member).Error
	})
}

// GetMember loads a member with its gang and known associates.
func (s *Service) GetMember(ctx context.Context, id uint) (GangMember, error) {
	tx := s.db.WithContext(ctx)

	var member GangMember
	if err := tx.Preload("Gang").First(&member, id).Error; err != nil {
		return GangMember{}, translateDBError(err, "member")
	}

	associates, err := associatesOf(tx, id)
	if err != nil {
		return GangMember{}, translateDBError(err, "member")
	}
	member.Associates = associates
	return member, nil
}

// detachMembers removes the members from every incident, case and associate
// edge so they can be deleted.
func detachMembers(tx *gorm.DB, ids []uint) error {
	for _, stmt := range []string{
		"DELETE FROM incident_members WHERE gang_member_id IN ?",
		"DELETE FROM case_file_members WHERE gang_member_id IN ?",
	} {
		if err := tx.Exec(stmt, ids).Error; err != nil {
			return err
		}
	}
	return tx.Where("low_id IN ? OR high_id IN ?", ids, ids).Delete(&MemberAssociation{}).Error
}

func edge(a, b uint) MemberAssociation {
	if a > b {
		a, b = b, a
	}
	return MemberAssociation{LowID: a, HighID: b}
}

// replaceAssociates makes ids the complete associate set of the member. The
// edges are undirected, so every listed member sees this one as an associate
// too, and members dropped from the set lose it.
func replaceAssociates(tx *gorm.DB, memberID uint, ids IDList) error {
	ids = ids.Unique()
	for _, id := range ids {
		if id == memberID {
			return invalid("a member cannot be their own associate")
		}
	}
	if _, err := loadMembers(tx, ids); err != nil {
		return err
	}

	if err := tx.Where("low_id = ? OR high_id = ?", memberID, memberID).Delete(&MemberAssociation{}).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	edges := make([]MemberAssociation, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, edge(memberID, id))
	}
	return tx.Create(&edges).Error
}

func associatesOf(tx *gorm.DB, memberID uint) ([]GangMember, error) {
	var edges []MemberAssociation
	if err := tx.Where("low_id = ? OR high_id = ?", memberID, memberID).Find(&edges).Error; err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []GangMember{}, nil
	}

	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		if e.LowID == memberID {
			ids = append(ids, e.HighID)
		} else {
			ids = append(ids, e.LowID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var associates []GangMember
	err := tx.Where("id IN ?", ids).Order("name").Order("id").Find(&associates).Error
	return associates, err
}
