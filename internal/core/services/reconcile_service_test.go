package services

import (
	"context"
	"testing"

	"assotessera/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconcileFixtures() (*fakeProfileRepo, *fakeNameRepo) {
	consistent := "RSSMRA85M01H501Q"
	compound := "BNCMLS90T48F205D" // Maria Luisa Bianchi, stored as Maria
	badCheck := "RSSMRA85M01H501A"

	profiles := []*models.Profile{
		{ID: 1, UserID: 1, FirstName: "Mario", LastName: "Rossi", FiscalCode: &consistent},
		{ID: 2, UserID: 2, FirstName: "Maria", LastName: "Bianchi", FiscalCode: &compound},
		{ID: 3, UserID: 3, FirstName: "Mario", LastName: "Rossi", FiscalCode: &badCheck},
	}

	profileRepo := &fakeProfileRepo{profiles: map[uint]*models.Profile{}}
	for _, p := range profiles {
		profileRepo.profiles[p.UserID] = p
	}

	nameRepo := &fakeNameRepo{names: []*models.NameDictionary{
		{ID: 1, Name: "LUISA", Gender: "F"},
		{ID: 2, Name: "GIUSEPPE", Gender: "M"},
	}}

	return profileRepo, nameRepo
}

func TestReconcileService_Run_DryRun(t *testing.T) {
	profileRepo, nameRepo := reconcileFixtures()
	svc := NewReconcileService(profileRepo, nameRepo)

	report, err := svc.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Consistent)
	assert.Equal(t, 0, report.Fixed)
	require.Len(t, report.Issues, 2)

	byProfile := map[uint]ReconcileIssue{}
	for _, issue := range report.Issues {
		byProfile[issue.ProfileID] = issue
	}

	compound := byProfile[2]
	assert.Equal(t, "nome non corrispondente", compound.Problem)
	assert.Equal(t, "Maria Luisa", compound.SuggestedName)
	assert.False(t, compound.Fixed)

	badCheck := byProfile[3]
	assert.Equal(t, "carattere di controllo non valido", badCheck.Problem)

	// dry run leaves the data untouched
	assert.Equal(t, 0, profileRepo.updates)
	assert.Equal(t, "Maria", profileRepo.profiles[2].FirstName)
}

func TestReconcileService_Run_Fix(t *testing.T) {
	profileRepo, nameRepo := reconcileFixtures()
	svc := NewReconcileService(profileRepo, nameRepo)

	report, err := svc.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Fixed)
	assert.Equal(t, "Maria Luisa", profileRepo.profiles[2].FirstName)

	// the unfixable check-character issue is reported, never touched
	assert.Equal(t, "Mario", profileRepo.profiles[3].FirstName)

	// a second run finds nothing left to fix
	again, err := svc.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Fixed)
	assert.Equal(t, 2, again.Consistent)
}
