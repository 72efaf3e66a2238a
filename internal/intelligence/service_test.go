package intelligence_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sadoj/intel-backend/internal/auth"
	"github.com/sadoj/intel-backend/internal/intelligence"
	"github.com/sadoj/intel-backend/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceEnv struct {
	db     *gorm.DB
	svc    *intelligence.Service
	agent  auth.User
	editor intelligence.Actor
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db := tester.NewDB(t, auth.Migrate, intelligence.Migrate)
	agent, err := auth.CreateUser(db, "vega", "TestPass123!", "Agent Vega", auth.RoleAgent)
	require.NoError(t, err)

	return &serviceEnv{
		db:     db,
		svc:    intelligence.NewService(db),
		agent:  agent,
		editor: intelligence.Actor{UserID: agent.UserID, EditMode: true},
	}
}

// decode builds an input the way a request body would.
func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var in T
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func (e *serviceEnv) gang(t *testing.T, body string) intelligence.Gang {
	t.Helper()
	g, err := e.svc.CreateGang(context.Background(), e.editor, decode[intelligence.GangInput](t, body))
	require.NoError(t, err)
	return g
}

func (e *serviceEnv) member(t *testing.T, body string) intelligence.GangMember {
	t.Helper()
	m, err := e.svc.CreateMember(context.Background(), e.editor, decode[intelligence.MemberInput](t, body))
	require.NoError(t, err)
	return m
}

func count(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestGangLifecycleRemovesMembers(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()

	ballas := e.gang(t, `{"name":"Ballas","tag":"BALLAS","threat_level":"CRITICAL"}`)
	assert.Equal(t, uint(1), ballas.ID)

	deshawn := e.member(t, `{"gang_id":1,"name":"DeShawn Williams","threat_level":"CRITICAL"}`)
	assert.Equal(t, uint(1), deshawn.ID)

	gangID := ballas.ID
	roster, err := e.svc.MemberRoster(ctx, intelligence.MemberFilter{GangID: &gangID})
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "DeShawn Williams", roster[0].Name)
	require.NotNil(t, roster[0].Gang)
	assert.Equal(t, "Ballas", roster[0].Gang.Name)

	require.NoError(t, e.svc.DeleteGang(ctx, e.editor, ballas.ID))

	_, err = e.svc.GetMember(ctx, deshawn.ID)
	assert.ErrorIs(t, err, intelligence.ErrNotFound)
	_, err = e.svc.GetGang(ctx, ballas.ID)
	assert.ErrorIs(t, err, intelligence.ErrNotFound)
}

func TestCreateGangDefaults(t *testing.T) {
	e := newServiceEnv(t)

	g := e.gang(t, `{"name":"Vagos"}`)
	assert.Equal(t, intelligence.DefaultGangColor, g.Color)
	assert.Equal(t, intelligence.ThreatMedium, g.ThreatLevel)
	assert.True(t, g.IsActive)
	assert.Zero(t, g.MemberCount)
	assert.Nil(t, g.FoundedDate)

	stored, err := e.svc.GetGang(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Color, stored.Color)
	assert.True(t, stored.IsActive)
}

func TestCreateGangRejectsBadInput(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		body string
	}{
		{"bad color", `{"name":"A","color":"red"}`},
		{"negative member count", `{"name":"A","member_count":-1}`},
		{"null name", `{"name":null}`},
		{"long tag", `{"name":"A","tag":"ABCDEFGHIJKLMNOPQRSTUVWXYZ"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CreateGang(ctx, e.editor, decode[intelligence.GangInput](t, tt.body))
			assert.ErrorIs(t, err, intelligence.ErrValidation)
		})
	}
	assert.Zero(t, count(t, e.db, "gangs"))
}

func TestMutationsRequireEditMode(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	g := e.gang(t, `{"name":"Families","threat_level":"HIGH"}`)

	viewer := intelligence.Actor{UserID: e.agent.UserID}
	anonymous := intelligence.Actor{EditMode: true}

	for _, actor := range []intelligence.Actor{viewer, anonymous} {
		_, err := e.svc.CreateGang(ctx, actor, decode[intelligence.GangInput](t, `{"name":"Aztecas"}`))
		assert.ErrorIs(t, err, intelligence.ErrGateClosed)

		_, err = e.svc.UpdateGang(ctx, actor, g.ID, decode[intelligence.GangInput](t, `{"name":"Renamed"}`))
		assert.ErrorIs(t, err, intelligence.ErrGateClosed)

		assert.ErrorIs(t, e.svc.DeleteGang(ctx, actor, g.ID), intelligence.ErrGateClosed)
	}

	// The gate is checked before the payload is looked at.
	_, err := e.svc.CreateGang(ctx, viewer, decode[intelligence.GangInput](t, `{"color":"nope"}`))
	assert.ErrorIs(t, err, intelligence.ErrGateClosed)

	stored, err := e.svc.GetGang(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Families", stored.Name)
	assert.Equal(t, int64(1), count(t, e.db, "gangs"))
}

func TestUpdateGangIsPartial(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	g := e.gang(t, `{"name":"Lost MC","tag":"LOST","territory":"Sandy Shores","threat_level":"HIGH","color":"#112233"}`)

	in := decode[intelligence.GangInput](t, `{"territory":"Grapeseed"}`)
	_, err := e.svc.UpdateGang(ctx, e.editor, g.ID, in)
	require.NoError(t, err)
	first, err := e.svc.GetGang(ctx, g.ID)
	require.NoError(t, err)

	assert.Equal(t, "Grapeseed", first.Territory)
	assert.Equal(t, "Lost MC", first.Name)
	assert.Equal(t, "LOST", first.Tag)
	assert.Equal(t, "#112233", first.Color)
	assert.Equal(t, intelligence.ThreatHigh, first.ThreatLevel)

	_, err = e.svc.UpdateGang(ctx, e.editor, g.ID, in)
	require.NoError(t, err)
	second, err := e.svc.GetGang(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Territory, second.Territory)
	assert.Equal(t, first.Name, second.Name)
}

func TestEmptyUpdateChangesNothing(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	g := e.gang(t, `{"name":"Marabunta","threat_level":"LOW"}`)

	_, err := e.svc.UpdateGang(ctx, e.editor, g.ID, intelligence.GangInput{})
	require.NoError(t, err)

	stored, err := e.svc.GetGang(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marabunta", stored.Name)
	assert.Equal(t, intelligence.ThreatLow, stored.ThreatLevel)
}

func TestUpdateMissingRow(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()

	_, err := e.svc.UpdateGang(ctx, e.editor, 42, decode[intelligence.GangInput](t, `{"name":"x"}`))
	assert.ErrorIs(t, err, intelligence.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteMember(ctx, e.editor, 42), intelligence.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteCase(ctx, e.editor, 42), intelligence.ErrNotFound)
}

func TestCreateMemberNeedsExistingGang(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateMember(ctx, e.editor, decode[intelligence.MemberInput](t, `{"name":"Nobody"}`))
	assert.ErrorIs(t, err, intelligence.ErrValidation)

	_, err = e.svc.CreateMember(ctx, e.editor, decode[intelligence.MemberInput](t, `{"gang_id":9,"name":"Nobody"}`))
	assert.ErrorIs(t, err, intelligence.ErrNotFound)
	assert.Zero(t, count(t, e.db, "gang_members"))
}

func TestCreateMemberDefaults(t *testing.T) {
	e := newServiceEnv(t)
	g := e.gang(t, `{"name":"Triads"}`)

	m := e.member(t, `{"gang_id":"1","name":"Wei Cheng","photo":""}`)
	assert.Equal(t, g.ID, m.GangID)
	assert.Equal(t, intelligence.MemberActive, m.Status)
	assert.Equal(t, intelligence.ThreatLow, m.ThreatLevel)
	assert.Nil(t, m.Photo)
}

func TestAssociatesAreSymmetric(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)
	a := e.member(t, `{"gang_id":1,"name":"Alpha"}`)
	b := e.member(t, `{"gang_id":1,"name":"Bravo"}`)
	c := e.member(t, `{"gang_id":1,"name":"Charlie","associate_ids":[1,"2"]}`)

	got, err := e.svc.GetMember(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Associates, 1)
	assert.Equal(t, c.ID, got.Associates[0].ID)

	got, err = e.svc.GetMember(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Associates, 2)
	assert.Equal(t, "Alpha", got.Associates[0].Name)
	assert.Equal(t, "Bravo", got.Associates[1].Name)

	// Replacing Charlie's set drops the edge for Alpha too.
	_, err = e.svc.UpdateMember(ctx, e.editor, c.ID, decode[intelligence.MemberInput](t, `{"associate_ids":[2]}`))
	require.NoError(t, err)
	got, err = e.svc.GetMember(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Associates)
	got, err = e.svc.GetMember(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Associates, 1)
	assert.Equal(t, c.ID, got.Associates[0].ID)

	_, err = e.svc.UpdateMember(ctx, e.editor, c.ID, decode[intelligence.MemberInput](t, `{"associate_ids":[3]}`))
	assert.ErrorIs(t, err, intelligence.ErrValidation)

	require.NoError(t, e.svc.DeleteMember(ctx, e.editor, b.ID))
	assert.Zero(t, count(t, e.db, "member_associations"))
}

func TestMemberRosterFilters(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)
	e.gang(t, `{"name":"Vagos"}`)
	e.member(t, `{"gang_id":1,"name":"Alpha","threat_level":"HIGH"}`)
	e.member(t, `{"gang_id":2,"name":"Bravo","threat_level":"HIGH"}`)
	e.member(t, `{"gang_id":2,"name":"Charlie"}`)
	e.member(t, `{"gang_id":2,"name":"Delta","status":"incarcerated"}`)

	all, err := e.svc.MemberRoster(ctx, intelligence.MemberFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	gangID := uint(2)
	high := intelligence.ThreatHigh
	filtered, err := e.svc.MemberRoster(ctx, intelligence.MemberFilter{GangID: &gangID, Threat: &high})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Bravo", filtered[0].Name)
}

func TestRelationshipCreateAndList(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	a := e.gang(t, `{"name":"A"}`)
	b := e.gang(t, `{"name":"B"}`)

	_, err := e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":1,"gang_2_id":2,"relationship_type":"WAR"}`))
	require.NoError(t, err)

	rels, err := e.svc.RelationshipList(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, a.ID, rels[0].Gang1ID)
	assert.Equal(t, b.ID, rels[0].Gang2ID)
	assert.Equal(t, intelligence.RelationshipWar, rels[0].RelationshipType)
	require.NotNil(t, rels[0].Gang1)
	assert.Equal(t, "A", rels[0].Gang1.Name)
}

// A pair of gangs has at most one relationship whichever way round it is
// given: the mirrored B-A row is refused, not stored as a second direction.
func TestRelationshipMirroredPairConflicts(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"A"}`)
	e.gang(t, `{"name":"B"}`)

	_, err := e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":1,"gang_2_id":2,"relationship_type":"RIVAL"}`))
	require.NoError(t, err)

	_, err = e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":1,"gang_2_id":2}`))
	assert.ErrorIs(t, err, intelligence.ErrConflict)

	_, err = e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":2,"gang_2_id":1,"relationship_type":"ALLIED"}`))
	assert.ErrorIs(t, err, intelligence.ErrConflict)

	assert.Equal(t, int64(1), count(t, e.db, "gang_relationships"))
}

func TestRelationshipValidation(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"A"}`)

	_, err := e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":1,"gang_2_id":1}`))
	assert.ErrorIs(t, err, intelligence.ErrValidation)

	_, err = e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":1,"gang_2_id":7}`))
	assert.ErrorIs(t, err, intelligence.ErrNotFound)

	_, err = e.svc.CreateRelationship(ctx, e.editor,
		decode[intelligence.RelationshipInput](t, `{"gang_1_id":1}`))
	assert.ErrorIs(t, err, intelligence.ErrValidation)
}

func TestCaseNumberIsUnique(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()

	first, err := e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t, `{"case_number":"X"}`))
	require.NoError(t, err)
	assert.Equal(t, intelligence.PriorityMedium, first.Priority)
	assert.Equal(t, intelligence.CaseOpen, first.Status)
	require.NotNil(t, first.LeadAgentID)
	assert.Equal(t, e.agent.UserID, *first.LeadAgentID)

	_, err = e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t, `{"case_number":"X"}`))
	assert.ErrorIs(t, err, intelligence.ErrConflict)

	var n int64
	require.NoError(t, e.db.Model(&intelligence.CaseFile{}).Where("case_number = ?", "X").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCaseSetsAreReplaced(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)
	e.gang(t, `{"name":"Vagos"}`)
	e.member(t, `{"gang_id":1,"name":"Alpha"}`)
	partner, err := auth.CreateUser(e.db, "reyes", "TestPass123!", "Agent Reyes", auth.RoleAgent)
	require.NoError(t, err)

	c, err := e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t,
		`{"case_number":"C-1","title":"Grove St","priority":"urgent","gang_ids":"1,2","member_ids":[1],"team_member_ids":["`+partner.UserID+`"]}`))
	require.NoError(t, err)

	got, err := e.svc.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, intelligence.PriorityUrgent, got.Priority)
	assert.Len(t, got.Gangs, 2)
	assert.Len(t, got.Members, 1)
	require.Len(t, got.TeamMembers, 1)
	assert.Equal(t, "reyes", got.TeamMembers[0].Username)
	require.NotNil(t, got.LeadAgent)
	assert.Equal(t, "vega", got.LeadAgent.Username)

	_, err = e.svc.UpdateCase(ctx, e.editor, c.ID, decode[intelligence.CaseFileInput](t,
		`{"gang_ids":[2],"member_ids":[],"lead_agent_id":null}`))
	require.NoError(t, err)

	got, err = e.svc.GetCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Gangs, 1)
	assert.Equal(t, "Vagos", got.Gangs[0].Name)
	assert.Empty(t, got.Members)
	assert.Len(t, got.TeamMembers, 1)
	assert.Nil(t, got.LeadAgentID)
	assert.Equal(t, "Grove St", got.Title)

	// An unknown gang rolls the whole update back.
	_, err = e.svc.UpdateCase(ctx, e.editor, c.ID, decode[intelligence.CaseFileInput](t,
		`{"title":"Changed","gang_ids":[1,99]}`))
	assert.ErrorIs(t, err, intelligence.ErrNotFound)
	got, err = e.svc.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grove St", got.Title)
	assert.Len(t, got.Gangs, 1)
}

func TestDeleteGangLeavesIncidentsAndCases(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	ballas := e.gang(t, `{"name":"Ballas"}`)
	vagos := e.gang(t, `{"name":"Vagos"}`)
	e.member(t, `{"gang_id":1,"name":"Alpha"}`)
	e.member(t, `{"gang_id":2,"name":"Bravo","associate_ids":[1]}`)

	incident, err := e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t,
		`{"title":"Shootout","incident_type":"ASSAULT","gang_ids":[1,2],"member_ids":[1,2]}`))
	require.NoError(t, err)
	c, err := e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t,
		`{"case_number":"C-7","gang_ids":[1,2],"member_ids":[1,2]}`))
	require.NoError(t, err)
	_, err = e.svc.CreateRelationship(ctx, e.editor, decode[intelligence.RelationshipInput](t,
		`{"gang_1_id":2,"gang_2_id":1,"relationship_type":"WAR"}`))
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteGang(ctx, e.editor, ballas.ID))

	gotIncident, err := e.svc.GetIncident(ctx, incident.ID)
	require.NoError(t, err)
	require.Len(t, gotIncident.Gangs, 1)
	assert.Equal(t, vagos.ID, gotIncident.Gangs[0].ID)
	require.Len(t, gotIncident.Members, 1)
	assert.Equal(t, "Bravo", gotIncident.Members[0].Name)

	gotCase, err := e.svc.GetCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, gotCase.Gangs, 1)
	assert.Len(t, gotCase.Members, 1)

	assert.Zero(t, count(t, e.db, "gang_relationships"))
	assert.Zero(t, count(t, e.db, "member_associations"))
	assert.Equal(t, int64(1), count(t, e.db, "gang_members"))
}

func TestIncidentDefaultsAndUpdate(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)

	i, err := e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t, `{"title":"Robbery at 24/7"}`))
	require.NoError(t, err)
	assert.Equal(t, intelligence.IncidentOther, i.IncidentType)
	assert.Equal(t, intelligence.ThreatMedium, i.Severity)
	assert.Equal(t, intelligence.IncidentOpen, i.Status)
	assert.False(t, i.DateTime.IsZero())
	require.NotNil(t, i.ReportedByID)
	assert.Equal(t, e.agent.UserID, *i.ReportedByID)

	_, err = e.svc.UpdateIncident(ctx, e.editor, i.ID, decode[intelligence.IncidentInput](t,
		`{"status":"closed","date_time":"2024-03-01T20:30:00Z","gang_ids":[1]}`))
	require.NoError(t, err)

	got, err := e.svc.GetIncident(ctx, i.ID)
	require.NoError(t, err)
	assert.Equal(t, intelligence.IncidentClosed, got.Status)
	assert.Equal(t, 2024, got.DateTime.Year())
	assert.Equal(t, "Robbery at 24/7", got.Title)
	assert.Len(t, got.Gangs, 1)
	require.NotNil(t, got.ReportedBy)
	assert.Equal(t, "vega", got.ReportedBy.Username)

	_, err = e.svc.UpdateIncident(ctx, e.editor, i.ID, decode[intelligence.IncidentInput](t, `{"date_time":null}`))
	assert.ErrorIs(t, err, intelligence.ErrValidation)

	require.NoError(t, e.svc.DeleteIncident(ctx, e.editor, i.ID))
	assert.Zero(t, count(t, e.db, "incident_gangs"))
}

func TestDashboard(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas","threat_level":"CRITICAL"}`)
	e.gang(t, `{"name":"Vagos","threat_level":"LOW"}`)
	e.gang(t, `{"name":"Dormant","is_active":false,"threat_level":"CRITICAL"}`)
	e.member(t, `{"gang_id":1,"name":"Alpha"}`)

	_, err := e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t, `{"title":"One","status":"INVESTIGATING"}`))
	require.NoError(t, err)
	_, err = e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t, `{"title":"Two","status":"CLOSED"}`))
	require.NoError(t, err)
	_, err = e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t, `{"case_number":"C-1","priority":"HIGH"}`))
	require.NoError(t, err)
	_, err = e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t, `{"case_number":"C-2","status":"CLOSED"}`))
	require.NoError(t, err)

	d, err := e.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalGangs)
	assert.Equal(t, int64(1), d.TotalMembers)
	assert.Equal(t, int64(1), d.OpenIncidents)
	assert.Equal(t, int64(1), d.ActiveCases)
	assert.Len(t, d.RecentIncidents, 2)
	require.Len(t, d.PriorityCases, 1)
	assert.Equal(t, "C-1", d.PriorityCases[0].CaseNumber)
	require.Len(t, d.CriticalGangs, 1)
	assert.Equal(t, "Ballas", d.CriticalGangs[0].Name)
}

func TestGangRosterOrder(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Quiet","threat_level":"HIGH"}`)
	e.gang(t, `{"name":"Busy","threat_level":"HIGH"}`)
	e.gang(t, `{"name":"Top","threat_level":"CRITICAL"}`)
	e.gang(t, `{"name":"Small","threat_level":"LOW"}`)

	_, err := e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t, `{"title":"x","gang_ids":[2]}`))
	require.NoError(t, err)

	roster, err := e.svc.GangRoster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 4)
	names := make([]string, len(roster))
	for i, g := range roster {
		names[i] = g.Name
	}
	assert.Equal(t, []string{"Top", "Busy", "Quiet", "Small"}, names)
	assert.Equal(t, int64(1), roster[1].IncidentCount)
}

func TestIncidentListFilters(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)

	for _, body := range []string{
		`{"title":"Open low","status":"OPEN","severity":"LOW","date_time":"2024-01-01T10:00:00Z"}`,
		`{"title":"Closed critical","status":"CLOSED","severity":"CRITICAL","date_time":"2024-01-02T10:00:00Z","gang_ids":[1]}`,
		`{"title":"Open critical","status":"OPEN","severity":"CRITICAL","date_time":"2024-01-03T10:00:00Z"}`,
	} {
		_, err := e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t, body))
		require.NoError(t, err)
	}

	titles := func(f intelligence.IncidentFilter) []string {
		t.Helper()
		list, err := e.svc.IncidentList(ctx, f)
		require.NoError(t, err)
		out := make([]string, len(list))
		for i, inc := range list {
			out[i] = inc.Title
		}
		return out
	}

	closed := intelligence.IncidentClosed
	open := intelligence.IncidentOpen
	critical := intelligence.ThreatCritical

	assert.Equal(t, []string{"Open critical", "Closed critical", "Open low"}, titles(intelligence.IncidentFilter{}))
	assert.Equal(t, []string{"Closed critical"}, titles(intelligence.IncidentFilter{Status: &closed}))
	assert.Equal(t, []string{"Open critical", "Closed critical"}, titles(intelligence.IncidentFilter{Severity: &critical}))
	assert.Equal(t, []string{"Open critical"}, titles(intelligence.IncidentFilter{Status: &open, Severity: &critical}))

	list, err := e.svc.IncidentList(ctx, intelligence.IncidentFilter{Status: &closed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Gangs, 1)
	assert.Equal(t, "Ballas", list[0].Gangs[0].Name)
}

func TestCaseListFiltersAndOrder(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()

	for _, body := range []string{
		`{"case_number":"C-1","priority":"HIGH","opened_date":"2024-01-01T00:00:00Z"}`,
		`{"case_number":"C-2","priority":"URGENT","opened_date":"2023-06-01T00:00:00Z"}`,
		`{"case_number":"C-3","priority":"HIGH","opened_date":"2024-06-01T00:00:00Z"}`,
		`{"case_number":"C-4","priority":"LOW","status":"CLOSED","opened_date":"2024-07-01T00:00:00Z","lead_agent_id":null}`,
	} {
		_, err := e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t, body))
		require.NoError(t, err)
	}

	numbers := func(f intelligence.CaseFilter) []string {
		t.Helper()
		list, err := e.svc.CaseList(ctx, f)
		require.NoError(t, err)
		out := make([]string, len(list))
		for i, c := range list {
			out[i] = c.CaseNumber
		}
		return out
	}

	high := intelligence.PriorityHigh
	closed := intelligence.CaseClosed
	open := intelligence.CaseOpen

	assert.Equal(t, []string{"C-2", "C-3", "C-1", "C-4"}, numbers(intelligence.CaseFilter{}))
	assert.Equal(t, []string{"C-3", "C-1"}, numbers(intelligence.CaseFilter{Priority: &high}))
	assert.Equal(t, []string{"C-4"}, numbers(intelligence.CaseFilter{Status: &closed}))
	assert.Equal(t, []string{"C-3", "C-1"}, numbers(intelligence.CaseFilter{Status: &open, Priority: &high}))

	list, err := e.svc.CaseList(ctx, intelligence.CaseFilter{})
	require.NoError(t, err)
	require.Len(t, list, 4)
	require.NotNil(t, list[0].LeadAgent)
	assert.Equal(t, "vega", list[0].LeadAgent.Username)
	assert.Nil(t, list[3].LeadAgent)
}

func TestUpdateMemberToMissingGangRollsBack(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)
	m := e.member(t, `{"gang_id":1,"name":"orig","rank":"Soldier"}`)

	_, err := e.svc.UpdateMember(ctx, e.editor, m.ID, decode[intelligence.MemberInput](t,
		`{"gang_id":99,"name":"renamed","rank":"Boss"}`))
	require.ErrorIs(t, err, intelligence.ErrNotFound)
	assert.Contains(t, err.Error(), "gang 99")

	got, err := e.svc.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "orig", got.Name)
	assert.Equal(t, "Soldier", got.Rank)
	assert.Equal(t, uint(1), got.GangID)
}

func TestIncidentMembersSetAlone(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)
	e.member(t, `{"gang_id":1,"name":"Alpha"}`)
	e.member(t, `{"gang_id":1,"name":"Bravo"}`)

	i, err := e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t,
		`{"title":"Drive-by","member_ids":[2]}`))
	require.NoError(t, err)

	got, err := e.svc.GetIncident(ctx, i.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Gangs)
	require.Len(t, got.Members, 1)
	assert.Equal(t, "Bravo", got.Members[0].Name)

	_, err = e.svc.UpdateIncident(ctx, e.editor, i.ID, decode[intelligence.IncidentInput](t, `{"gang_ids":[1]}`))
	require.NoError(t, err)
	_, err = e.svc.UpdateIncident(ctx, e.editor, i.ID, decode[intelligence.IncidentInput](t, `{"member_ids":"1,2"}`))
	require.NoError(t, err)

	got, err = e.svc.GetIncident(ctx, i.ID)
	require.NoError(t, err)
	assert.Len(t, got.Gangs, 1)
	assert.Len(t, got.Members, 2)
	assert.Equal(t, "Drive-by", got.Title)

	_, err = e.svc.UpdateIncident(ctx, e.editor, i.ID, decode[intelligence.IncidentInput](t, `{"member_ids":[]}`))
	require.NoError(t, err)

	got, err = e.svc.GetIncident(ctx, i.ID)
	require.NoError(t, err)
	assert.Len(t, got.Gangs, 1)
	assert.Empty(t, got.Members)
}

func TestRelationshipPairIsUniqueInDatabase(t *testing.T) {
	e := newServiceEnv(t)
	e.gang(t, `{"name":"A"}`)
	e.gang(t, `{"name":"B"}`)

	require.NoError(t, e.db.Create(&intelligence.GangRelationship{
		Gang1ID: 1, Gang2ID: 2, RelationshipType: intelligence.RelationshipRival,
	}).Error)

	err := e.db.Create(&intelligence.GangRelationship{
		Gang1ID: 2, Gang2ID: 1, RelationshipType: intelligence.RelationshipAllied,
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, int64(1), count(t, e.db, "gang_relationships"))
}

func TestJoinRowsCascadeInDatabase(t *testing.T) {
	e := newServiceEnv(t)
	ctx := context.Background()
	e.gang(t, `{"name":"Ballas"}`)
	e.gang(t, `{"name":"Vagos"}`)
	e.member(t, `{"gang_id":1,"name":"Alpha"}`)
	e.member(t, `{"gang_id":2,"name":"Bravo"}`)
	partner, err := auth.CreateUser(e.db, "reyes", "TestPass123!", "Agent Reyes", auth.RoleAgent)
	require.NoError(t, err)

	_, err = e.svc.CreateIncident(ctx, e.editor, decode[intelligence.IncidentInput](t,
		`{"title":"Shootout","gang_ids":[1,2],"member_ids":[1,2]}`))
	require.NoError(t, err)
	_, err = e.svc.CreateCase(ctx, e.editor, decode[intelligence.CaseFileInput](t,
		`{"case_number":"C-9","gang_ids":[1,2],"member_ids":[1,2],"team_member_ids":["`+partner.UserID+`"]}`))
	require.NoError(t, err)

	// Bypass the service: the foreign keys alone must clean up.
	require.NoError(t, e.db.Exec("DELETE FROM gangs WHERE id = ?", 1).Error)
	require.NoError(t, e.db.Exec("DELETE FROM agents WHERE user_id = ?", partner.UserID).Error)

	assert.Equal(t, int64(1), count(t, e.db, "incident_gangs"))
	assert.Equal(t, int64(1), count(t, e.db, "incident_members"))
	assert.Equal(t, int64(1), count(t, e.db, "case_file_gangs"))
	assert.Equal(t, int64(1), count(t, e.db, "case_file_members"))
	assert.Zero(t, count(t, e.db, "case_file_team_members"))
}
