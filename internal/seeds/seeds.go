package seeds

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/sadoj/intel-backend/internal/auth"
	"github.com/sadoj/intel-backend/internal/intelligence"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed sample.yaml
var sampleData []byte

type sample struct {
	Gangs []struct {
		Name        string `yaml:"name"`
		Tag         string `yaml:"tag"`
		Color       string `yaml:"color"`
		ThreatLevel string `yaml:"threat_level"`
		Territory   string `yaml:"territory"`
		MemberCount int    `yaml:"member_count"`
		Description string `yaml:"description"`
	} `yaml:"gangs"`
	Members []struct {
		Name        string `yaml:"name"`
		Gang        string `yaml:"gang"`
		Rank        string `yaml:"rank"`
		ThreatLevel string `yaml:"threat_level"`
	} `yaml:"members"`
	Relationships []struct {
		Gang1 string `yaml:"gang_1"`
		Gang2 string `yaml:"gang_2"`
		Type  string `yaml:"type"`
	} `yaml:"relationships"`
	Incidents []struct {
		Title       string   `yaml:"title"`
		Type        string   `yaml:"type"`
		Severity    string   `yaml:"severity"`
		Location    string   `yaml:"location"`
		DaysAgo     int      `yaml:"days_ago"`
		Gangs       []string `yaml:"gangs"`
		Description string   `yaml:"description"`
	} `yaml:"incidents"`
	Cases []struct {
		CaseNumber  string   `yaml:"case_number"`
		Title       string   `yaml:"title"`
		Priority    string   `yaml:"priority"`
		Gangs       []string `yaml:"gangs"`
		Description string   `yaml:"description"`
	} `yaml:"cases"`
}

// Counts reports how many rows a seeding run created.
type Counts struct {
	Gangs, Members, Relationships, Incidents, Cases int
}

type seeder struct {
	db    *gorm.DB
	svc   *intelligence.Service
	actor intelligence.Actor
	gangs map[string]uint
}

// SeedAll loads the sample data set, reported and led by the named agent.
// Rows that already exist are skipped, so running it twice is harmless.
func SeedAll(ctx context.Context, db *gorm.DB, agentUsername string) (Counts, error) {
	var data sample
	if err := yaml.Unmarshal(sampleData, &data); err != nil {
		return Counts{}, fmt.Errorf("failed to parse sample data: %w", err)
	}

	var agent auth.User
	if err := db.WithContext(ctx).Where("username = ?", agentUsername).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Counts{}, fmt.Errorf("agent %q does not exist", agentUsername)
		}
		return Counts{}, err
	}

	s := &seeder{
		db:    db,
		svc:   intelligence.NewService(db),
		actor: intelligence.Actor{UserID: agent.UserID, EditMode: true},
		gangs: make(map[string]uint),
	}

	var counts Counts
	steps := []func(context.Context, sample, *Counts) error{
		s.seedGangs,
		s.seedMembers,
		s.seedRelationships,
		s.seedIncidents,
		s.seedCases,
	}
	for _, step := range steps {
		if err := step(ctx, data, &counts); err != nil {
			return counts, err
		}
	}

	logrus.Infof("Seeded %d gangs, %d members, %d relationships, %d incidents, %d cases",
		counts.Gangs, counts.Members, counts.Relationships, counts.Incidents, counts.Cases)
	return counts, nil
}

func (s *seeder) seedGangs(ctx context.Context, data sample, counts *Counts) error {
	for _, g := range data.Gangs {
		var existing intelligence.Gang
		err := s.db.WithContext(ctx).Where("name = ?", g.Name).First(&existing).Error
		if err == nil {
			logrus.Debugf("Gang exists, skipping: %s", g.Name)
			s.gangs[g.Name] = existing.ID
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("DB error on gang %s: %w", g.Name, err)
		}

		threat, err := intelligence.ParseEnum[intelligence.ThreatLevel]("threat level", g.ThreatLevel)
		if err != nil {
			return fmt.Errorf("gang %s: %w", g.Name, err)
		}
		created, err := s.svc.CreateGang(ctx, s.actor, intelligence.GangInput{
			Name:        intelligence.Some(g.Name),
			Tag:         intelligence.Some(g.Tag),
			Color:       intelligence.Some(g.Color),
			ThreatLevel: intelligence.Some(threat),
			Territory:   intelligence.Some(g.Territory),
			MemberCount: intelligence.Some(g.MemberCount),
			Description: intelligence.Some(g.Description),
		})
		if err != nil {
			return fmt.Errorf("failed to create gang %s: %w", g.Name, err)
		}
		s.gangs[g.Name] = created.ID
		counts.Gangs++
	}
	return nil
}

func (s *seeder) gangID(name string) (uint, error) {
	id, ok := s.gangs[name]
	if !ok {
		return 0, fmt.Errorf("unknown gang %q in sample data", name)
	}
	return id, nil
}

func (s *seeder) gangIDs(names []string) (intelligence.IDList, error) {
	ids := make(intelligence.IDList, 0, len(names))
	for _, name := range names {
		id, err := s.gangID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// alias pulls the nickname out of names written as `First "Alias" Last`.
func alias(name string) string {
	parts := strings.Split(name, `"`)
	if len(parts) == 3 {
		return parts[1]
	}
	return ""
}

func (s *seeder) seedMembers(ctx context.Context, data sample, counts *Counts) error {
	for _, m := range data.Members {
		gangID, err := s.gangID(m.Gang)
		if err != nil {
			return err
		}

		var n int64
		err = s.db.WithContext(ctx).Model(&intelligence.GangMember{}).
			Where("name = ? AND gang_id = ?", m.Name, gangID).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("DB error on member %s: %w", m.Name, err)
		}
		if n > 0 {
			continue
		}

		threat, err := intelligence.ParseEnum[intelligence.ThreatLevel]("threat level", m.ThreatLevel)
		if err != nil {
			return fmt.Errorf("member %s: %w", m.Name, err)
		}
		_, err = s.svc.CreateMember(ctx, s.actor, intelligence.MemberInput{
			GangID:         intelligence.Some(intelligence.ID(gangID)),
			Name:           intelligence.Some(m.Name),
			Alias:          intelligence.Some(alias(m.Name)),
			Rank:           intelligence.Some(m.Rank),
			ThreatLevel:    intelligence.Some(threat),
			CriminalRecord: intelligence.Some("Multiple arrests for gang-related activities"),
		})
		if err != nil {
			return fmt.Errorf("failed to create member %s: %w", m.Name, err)
		}
		counts.Members++
	}
	return nil
}

func (s *seeder) seedRelationships(ctx context.Context, data sample, counts *Counts) error {
	for _, r := range data.Relationships {
		gang1, err := s.gangID(r.Gang1)
		if err != nil {
			return err
		}
		gang2, err := s.gangID(r.Gang2)
		if err != nil {
			return err
		}
		kind, err := intelligence.ParseEnum[intelligence.RelationshipType]("relationship type", r.Type)
		if err != nil {
			return err
		}

		_, err = s.svc.CreateRelationship(ctx, s.actor, intelligence.RelationshipInput{
			Gang1ID:          intelligence.Some(intelligence.ID(gang1)),
			Gang2ID:          intelligence.Some(intelligence.ID(gang2)),
			RelationshipType: intelligence.Some(kind),
			Notes: intelligence.Some(fmt.Sprintf("%s and %s have been %s for several months",
				r.Gang1, r.Gang2, strings.ToLower(string(kind)))),
		})
		if errors.Is(err, intelligence.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create relationship %s - %s: %w", r.Gang1, r.Gang2, err)
		}
		counts.Relationships++
	}
	return nil
}

func (s *seeder) seedIncidents(ctx context.Context, data sample, counts *Counts) error {
	now := time.Now().UTC()
	for _, i := range data.Incidents {
		var n int64
		if err := s.db.WithContext(ctx).Model(&intelligence.Incident{}).Where("title = ?", i.Title).Count(&n).Error; err != nil {
			return fmt.Errorf("DB error on incident %s: %w", i.Title, err)
		}
		if n > 0 {
			continue
		}

		kind, err := intelligence.ParseEnum[intelligence.IncidentType]("incident type", i.Type)
		if err != nil {
			return err
		}
		severity, err := intelligence.ParseEnum[intelligence.ThreatLevel]("severity", i.Severity)
		if err != nil {
			return err
		}
		gangs, err := s.gangIDs(i.Gangs)
		if err != nil {
			return err
		}

		_, err = s.svc.CreateIncident(ctx, s.actor, intelligence.IncidentInput{
			Title:        intelligence.Some(i.Title),
			IncidentType: intelligence.Some(kind),
			Severity:     intelligence.Some(severity),
			Status:       intelligence.Some(intelligence.IncidentInvestigating),
			Location:     intelligence.Some(i.Location),
			Description:  intelligence.Some(i.Description),
			DateTime:     intelligence.Some(intelligence.Timestamp{Time: now.AddDate(0, 0, -i.DaysAgo)}),
			GangIDs:      intelligence.Some(gangs),
		})
		if err != nil {
			return fmt.Errorf("failed to create incident %s: %w", i.Title, err)
		}
		counts.Incidents++
	}
	return nil
}

func (s *seeder) seedCases(ctx context.Context, data sample, counts *Counts) error {
	for _, c := range data.Cases {
		priority, err := intelligence.ParseEnum[intelligence.CasePriority]("case priority", c.Priority)
		if err != nil {
			return err
		}
		gangs, err := s.gangIDs(c.Gangs)
		if err != nil {
			return err
		}

		_, err = s.svc.CreateCase(ctx, s.actor, intelligence.CaseFileInput{
			CaseNumber:  intelligence.Some(c.CaseNumber),
			Title:       intelligence.Some(c.Title),
			Priority:    intelligence.Some(priority),
			Status:      intelligence.Some(intelligence.CaseActive),
			Description: intelligence.Some(c.Description),
			GangIDs:     intelligence.Some(gangs),
		})
		if errors.Is(err, intelligence.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create case %s: %w", c.CaseNumber, err)
		}
		counts.Cases++
	}
	return nil
}
