package intelligence

import (
	"context"

	"gorm.io/gorm"
)

func (s *Service) CreateGang(ctx context.Context, actor Actor, in GangInput) (Gang, error) {
	gang := Gang{
		Color:       DefaultGangColor,
		ThreatLevel: ThreatMedium,
		IsActive:    true,
	}

	err := s.mutate(ctx, actor, "gang", func(tx *gorm.DB) error {
		if _, err := in.apply(&gang); err != nil {
			return err
		}
		return tx.Create(&gang).Error
	})
	if err != nil {
		return Gang{}, err
	}
	return gang, nil
}

func (s *Service) UpdateGang(ctx context.Context, actor Actor, id uint, in GangInput) (Gang, error) {
	var gang Gang
	err := s.mutate(ctx, actor, "gang", func(tx *gorm.DB) error {
		if err := findByID(tx, &gang, "gang", id); err != nil {
			return err
		}
		columns, err := in.apply(&gang)
		if err != nil || len(columns) == 0 {
			return err
		}
		return tx.Model(&gang).Select(columns).Updates(&gang).Error
	})
	if err != nil {
		return Gang{}, err
	}
	return gang, nil
}

// DeleteGang removes the gang together with its members. The gang and its
// members drop out of every incident and case, and relationships naming the
// gang are deleted.
func (s *Service) DeleteGang(ctx context.Context, actor Actor, id uint) error {
	return s.mutate(ctx, actor, "gang", func(tx *gorm.DB) error {
		var gang Gang
		if err := findByID(tx, &gang, "gang", id); err != nil {
			return err
		}

		var memberIDs []uint
		if err := tx.Model(&GangMember{}).Where("gang_id = ?", id).Pluck("id", &memberIDs).Error; err != nil {
			return err
		}
		if len(memberIDs) > 0 {
			if err := detachMembers(tx, memberIDs); err != nil {
				return err
			}
			if err := tx.Where("gang_id = ?", id).Delete(&GangMember{}).Error; err != nil {
				return err
			}
		}

		for _, stmt := range []string{
			"DELETE FROM incident_gangs WHERE gang_id = ?",
			"DELETE FROM case_file_gangs WHERE gang_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("gang_1_id = ? OR gang_2_id = ?", id, id).Delete(&GangRelationship{}).Error; err != nil {
			return err
		}

		return tx.Delete(&gang).Error
	})
}

func (s *Service) GetGang(ctx context.Context, id uint) (Gang, error) {
	var gang Gang
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&gang, id).Error
	if err != nil {
		return Gang{}, translateDBError(err, "gang")
	}
	return gang, nil
}
