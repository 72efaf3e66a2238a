package seeds_test

import (
	"context"
	"testing"

	"github.com/sadoj/intel-backend/internal/auth"
	"github.com/sadoj/intel-backend/internal/intelligence"
	"github.com/sadoj/intel-backend/internal/seeds"
	"github.com/sadoj/intel-backend/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAllIsRepeatable(t *testing.T) {
	db := tester.NewDB(t, auth.Migrate, intelligence.Migrate)
	_, err := auth.CreateUser(db, "agent_smith", "TestPass123!", "John Smith", auth.RoleAgent)
	require.NoError(t, err)
	ctx := context.Background()

	counts, err := seeds.SeedAll(ctx, db, "agent_smith")
	require.NoError(t, err)
	assert.Equal(t, seeds.Counts{Gangs: 5, Members: 9, Relationships: 5, Incidents: 3, Cases: 2}, counts)

	again, err := seeds.SeedAll(ctx, db, "agent_smith")
	require.NoError(t, err)
	assert.Equal(t, seeds.Counts{}, again)

	svc := intelligence.NewService(db)
	member, err := svc.MemberRoster(ctx, intelligence.MemberFilter{})
	require.NoError(t, err)
	require.Len(t, member, 9)

	var deshawn intelligence.GangMember
	require.NoError(t, db.Where("name = ?", `DeShawn "Big D" Williams`).First(&deshawn).Error)
	assert.Equal(t, "Big D", deshawn.Alias)
	assert.Equal(t, intelligence.ThreatCritical, deshawn.ThreatLevel)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.OpenIncidents)
	assert.Equal(t, int64(2), d.ActiveCases)
	require.NotEmpty(t, d.CriticalGangs)
	assert.Equal(t, "Ballas", d.CriticalGangs[0].Name)
}

func TestSeedAllNeedsAgent(t *testing.T) {
	db := tester.NewDB(t, auth.Migrate, intelligence.Migrate)

	_, err := seeds.SeedAll(context.Background(), db, "nobody")
	assert.Error(t, err)
}
