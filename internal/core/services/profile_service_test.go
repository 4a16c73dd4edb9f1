package services

import (
	"context"
	"testing"
	"time"

	"assotessera/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ProfileInput {
	return &ProfileInput{
		FirstName:      "Mario",
		LastName:       "Rossi",
		FiscalCode:     "RSSMRA85M01H501Q",
		Street:         "Via Garibaldi 1",
		City:           "Roma",
		Province:       "RM",
		PostalCode:     "00100",
		StatuteConsent: true,
		PrivacyConsent: true,
		Newsletter:     true,
	}
}

func newProfileService() (*ProfileService, *fakeProfileRepo, *fakeUserRepo, *fakeNewsletter) {
	profileRepo := newFakeProfileRepo()
	userRepo := newFakeUserRepo(&models.User{ID: 5, Email: "mario@example.org"})
	comuneRepo := &fakeComuneRepo{comuni: []models.Comune{
		{ID: 1, Name: "Roma", Province: "RM", CadastralCode: "H501"},
		{ID: 2, Name: "Milano", Province: "MI", CadastralCode: "F205"},
	}}
	newsletter := &fakeNewsletter{}
	return NewProfileService(profileRepo, userRepo, comuneRepo, newsletter), profileRepo, userRepo, newsletter
}

func TestProfileService_Upsert_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *ProfileInput)
		wantField string
	}{
		{
			name:      "missing first name",
			mutate:    func(in *ProfileInput) { in.FirstName = "" },
			wantField: "first_name",
		},
		{
			name:      "missing last name",
			mutate:    func(in *ProfileInput) { in.LastName = "" },
			wantField: "last_name",
		},
		{
			name:      "missing fiscal code",
			mutate:    func(in *ProfileInput) { in.FiscalCode = "" },
			wantField: "fiscal_code",
		},
		{
			name:      "malformed fiscal code",
			mutate:    func(in *ProfileInput) { in.FiscalCode = "NOTACODE" },
			wantField: "fiscal_code",
		},
		{
			name:      "wrong check character",
			mutate:    func(in *ProfileInput) { in.FiscalCode = "RSSMRA85M01H501Z" },
			wantField: "fiscal_code",
		},
		{
			name:      "surname disagrees with the code",
			mutate:    func(in *ProfileInput) { in.LastName = "Bianchi" },
			wantField: "last_name",
		},
		{
			name:      "name disagrees with the code",
			mutate:    func(in *ProfileInput) { in.FirstName = "Giulio" },
			wantField: "first_name",
		},
		{
			name:      "bad postal code",
			mutate:    func(in *ProfileInput) { in.PostalCode = "ABCDE" },
			wantField: "postal_code",
		},
		{
			name:      "missing statute consent",
			mutate:    func(in *ProfileInput) { in.StatuteConsent = false },
			wantField: "statute_consent",
		},
		{
			name:      "missing privacy consent",
			mutate:    func(in *ProfileInput) { in.PrivacyConsent = false },
			wantField: "privacy_consent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newProfileService()
			input := validInput()
			tt.mutate(input)

			_, err := svc.Upsert(context.Background(), 5, input)
			require.Error(t, err)

			var fieldErrs FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Contains(t, fieldErrs, tt.wantField)
		})
	}
}

func TestProfileService_Upsert_DerivesFromFiscalCode(t *testing.T) {
	svc, profileRepo, userRepo, newsletter := newProfileService()

	profile, err := svc.Upsert(context.Background(), 5, validInput())
	require.NoError(t, err)

	require.NotNil(t, profile.Gender)
	assert.Equal(t, "M", *profile.Gender)
	assert.Equal(t, time.Date(1985, time.August, 1, 0, 0, 0, 0, time.UTC), profile.BirthDate)
	require.NotNil(t, profile.BirthCity)
	assert.Equal(t, "Roma", *profile.BirthCity)
	require.NotNil(t, profile.BirthProvince)
	assert.Equal(t, "RM", *profile.BirthProvince)
	assert.True(t, profile.ProfileComplete)

	stored, err := profileRepo.GetByUserID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, profile, stored)

	user, err := userRepo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, user.Newsletter)
	assert.Equal(t, []string{"mario@example.org"}, newsletter.synced)
}

func TestProfileService_Upsert_ForeignBirthplace(t *testing.T) {
	svc, _, _, _ := newProfileService()

	input := validInput()
	input.FiscalCode = "RSSMRA85M01Z404N"

	profile, err := svc.Upsert(context.Background(), 5, input)
	require.NoError(t, err)
	require.NotNil(t, profile.BirthCity)
	assert.Equal(t, "ESTERO", *profile.BirthCity)
	require.NotNil(t, profile.BirthProvince)
	assert.Equal(t, "EE", *profile.BirthProvince)
}

func TestProfileService_Upsert_UpdatesExisting(t *testing.T) {
	svc, profileRepo, _, _ := newProfileService()

	first, err := svc.Upsert(context.Background(), 5, validInput())
	require.NoError(t, err)

	input := validInput()
	input.Street = "Via Nuova 2"
	second, err := svc.Upsert(context.Background(), 5, input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Via Nuova 2", second.Street)
	assert.Equal(t, 1, profileRepo.updates)
}

func TestProfileService_Upsert_OmocodiaVariant(t *testing.T) {
	svc, _, _, _ := newProfileService()

	input := validInput()
	input.FiscalCode = "RSSMRA85M01H50MI"

	profile, err := svc.Upsert(context.Background(), 5, input)
	require.NoError(t, err)

	// the variant is stored as-is but derivations read through it
	require.NotNil(t, profile.FiscalCode)
	assert.Equal(t, "RSSMRA85M01H50MI", *profile.FiscalCode)
	assert.Equal(t, time.Date(1985, time.August, 1, 0, 0, 0, 0, time.UTC), profile.BirthDate)
	require.NotNil(t, profile.BirthCity)
	assert.Equal(t, "Roma", *profile.BirthCity)
}
