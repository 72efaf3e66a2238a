package intelligence

import (
	"context"
	"errors"
	"fmt"

	"github.com/sadoj/intel-backend/internal/auth"
	"gorm.io/gorm"
)

// Actor is the caller of a mutating operation: the agent and the edit-mode
// flag of the session the request came in on.
type Actor struct {
	UserID   string
	EditMode bool
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (a Actor) checkGate() error {
	if a.UserID == "" {
		return fmt.Errorf("%w: no authenticated agent", ErrGateClosed)
	}
	if !a.EditMode {
		return ErrGateClosed
	}
	return nil
}

// mutate runs fn in one transaction once the gate is open. Any error rolls
// the whole write back and comes out as one of the package's error kinds.
func (s *Service) mutate(ctx context.Context, actor Actor, what string, fn func(tx *gorm.DB) error) error {
	if err := actor.checkGate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(fn)
	return translateDBError(err, what)
}

func findByID(tx *gorm.DB, dst interface{}, what string, id uint) error {
	err := tx.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what, id)
	}
	return err
}

// loadGangs returns the gangs with the given ids, or NotFound if any is missing.
func loadGangs(tx *gorm.DB, ids IDList) ([]Gang, error) {
	ids = ids.Unique()
	if len(ids) == 0 {
		return nil, nil
	}
	var gangs []Gang
	if err := tx.Where("id IN ?", []uint(ids)).Find(&gangs).Error; err != nil {
		return nil, err
	}
	if len(gangs) != len(ids) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, missing("gang", ids, func(i int) uint { return gangs[i].ID }, len(gangs)))
	}
	return gangs, nil
}

func loadMembers(tx *gorm.DB, ids IDList) ([]GangMember, error) {
	ids = ids.Unique()
	if len(ids) == 0 {
		return nil, nil
	}
	var members []GangMember
	if err := tx.Where("id IN ?", []uint(ids)).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, missing("member", ids, func(i int) uint { return members[i].ID }, len(members)))
	}
	return members, nil
}

func loadAgents(tx *gorm.DB, ids UserIDList) ([]auth.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var agents []auth.User
	if err := tx.Where("user_id IN ?", []string(ids)).Find(&agents).Error; err != nil {
		return nil, err
	}
	if len(agents) != len(ids) {
		found := make(map[string]bool, len(agents))
		for _, a := range agents {
			found[a.UserID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, fmt.Errorf("%w: agent %s", ErrNotFound, id)
			}
		}
	}
	return agents, nil
}

func agentExists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&auth.User{}).Where("user_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: agent %s", ErrNotFound, id)
	}
	return nil
}

// missing names the first requested id that was not found.
func missing(what string, want IDList, got func(i int) uint, n int) string {
	found := make(map[uint]bool, n)
	for i := 0; i < n; i++ {
		found[got(i)] = true
	}
	for _, id := range want {
		if !found[id] {
			return fmt.Sprintf("%s %d", what, id)
		}
	}
	return what
}

// replaceAssociation swaps a many-to-many set for exactly the given rows.
func replaceAssociation(tx *gorm.DB, model interface{}, name string, rows interface{}, empty bool) error {
	assoc := tx.Model(model).Association(name)
	if assoc.Error != nil {
		return assoc.Error
	}
	if empty {
		return assoc.Clear()
	}
	return assoc.Replace(rows)
}
