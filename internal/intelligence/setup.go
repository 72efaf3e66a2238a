package intelligence

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the intelligence tables. The agents table has to exist
// first; see auth.Migrate.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Gang{},
		&GangMember{},
		&MemberAssociation{},
		&Incident{},
		&GangRelationship{},
		&CaseFile{},
	)
	if err != nil {
		return err
	}
	return ensureUnorderedPairIndex(db)
}

// ensureUnorderedPairIndex makes (A, B) and (B, A) collide in the database,
// not only in CreateRelationship's lookup.
func ensureUnorderedPairIndex(db *gorm.DB) error {
	low, high := "min", "max"
	if db.Dialector.Name() == "postgres" {
		low, high = "LEAST", "GREATEST"
	}
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_gang_relationships_unordered ON gang_relationships (%s(gang_1_id, gang_2_id), %s(gang_1_id, gang_2_id))",
		low, high)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create relationship pair index: %w", err)
	}
	return nil
}
