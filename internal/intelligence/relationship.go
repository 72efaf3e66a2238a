package intelligence

import (
	"context"

	"gorm.io/gorm"
)

// CreateRelationship links two distinct gangs. A pair may be recorded once,
// in either order: (A, B) and (B, A) are the same relationship.
func (s *Service) CreateRelationship(ctx context.Context, actor Actor, in RelationshipInput) (GangRelationship, error) {
	rel := GangRelationship{RelationshipType: RelationshipNeutral}

	err := s.mutate(ctx, actor, "relationship", func(tx *gorm.DB) error {
		if _, err := in.apply(&rel); err != nil {
			return err
		}
		if !in.Gang1ID.IsSet() || !in.Gang2ID.IsSet() {
			return invalid("gang_1_id and gang_2_id are required")
		}
		rel.Gang1ID, rel.Gang2ID = uint(in.Gang1ID.Value()), uint(in.Gang2ID.Value())
		if rel.Gang1ID == rel.Gang2ID {
			return invalid("a gang cannot have a relationship with itself")
		}

		if err := findByID(tx, &Gang{}, "gang", rel.Gang1ID); err != nil {
			return err
		}
		if err := findByID(tx, &Gang{}, "gang", rel.Gang2ID); err != nil {
			return err
		}

		var count int64
		err := tx.Model(&GangRelationship{}).
			Where("(gang_1_id = ? AND gang_2_id = ?) OR (gang_1_id = ? AND gang_2_id = ?)",
				rel.Gang1ID, rel.Gang2ID, rel.Gang2ID, rel.Gang1ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errConflict("relationship between gangs %d and %d already exists", rel.Gang1ID, rel.Gang2ID)
		}

		return tx.Create(&rel).Error
	})
	if err != nil {
		return GangRelationship{}, err
	}
	return rel, nil
}

// UpdateRelationship changes the type and notes. The gang ids may be echoed
// back but not changed.
func (s *Service) UpdateRelationship(ctx context.Context, actor Actor, id uint, in RelationshipInput) (GangRelationship, error) {
	var rel GangRelationship
	err := s.mutate(ctx, actor, "relationship", func(tx *gorm.DB) error {
		if err := findByID(tx, &rel, "relationship", id); err != nil {
			return err
		}
		if (in.Gang1ID.IsSet() && uint(in.Gang1ID.Value()) != rel.Gang1ID) ||
			(in.Gang2ID.IsSet() && uint(in.Gang2ID.Value()) != rel.Gang2ID) {
			return invalid("the gangs of a relationship cannot be changed")
		}
		columns, err := in.apply(&rel)
		if err != nil || len(columns) == 0 {
			return err
		}
		return tx.Model(&rel).Select(columns).Updates(&rel).Error
	})
	if err != nil {
		return GangRelationship{}, err
	}
	return rel, nil
}

func (s *Service) DeleteRelationship(ctx context.Context, actor Actor, id uint) error {
	return s.mutate(ctx, actor, "relationship", func(tx *gorm.DB) error {
		var rel GangRelationship
		if err := findByID(tx, &rel, "relationship", id); err != nil {
			return err
		}
		return tx.Delete(&rel).Error
	})
}

func (s *Service) GetRelationship(ctx context.Context, id uint) (GangRelationship, error) {
	var rel GangRelationship
	err := s.db.WithContext(ctx).Preload("Gang1").Preload("Gang2").First(&rel, id).Error
	if err != nil {
		return GangRelationship{}, translateDBError(err, "relationship")
	}
	return rel, nil
}
