package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/pkg/fiscalcode"

	"gorm.io/gorm"
)

// FieldErrors maps a field name to its validation message. It is returned as
// the error of Upsert so the handler can render a 422 with per-field detail.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	return "invalid profile fields: " + strings.Join(fields, ", ")
}

var postalCodeRegexp = regexp.MustCompile(`^[0-9]{5}$`)

// ProfileService manages member profiles
type ProfileService struct {
	profileRepo repositories.ProfileRepository
	userRepo    repositories.UserRepository
	comuneRepo  repositories.ComuneRepository
	newsletter  NewsletterSyncer
}

// NewProfileService creates a new profile service
func NewProfileService(
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	comuneRepo repositories.ComuneRepository,
	newsletter NewsletterSyncer,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		comuneRepo:  comuneRepo,
		newsletter:  newsletter,
	}
}

// ProfileInput is the profile create/update request
type ProfileInput struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	FiscalCode     string  `json:"fiscal_code"`
	Street         string  `json:"street"`
	City           string  `json:"city"`
	Province       string  `json:"province"`
	PostalCode     string  `json:"postal_code"`
	Country        string  `json:"country"`
	Phone          *string `json:"phone"`
	DocumentType   *string `json:"document_type"`
	DocumentNumber *string `json:"document_number"`
	StatuteConsent bool    `json:"statute_consent"`
	PrivacyConsent bool    `json:"privacy_consent"`
	Newsletter     bool    `json:"newsletter"`
}

// Get returns the user's profile
func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return profile, nil
}

// Upsert validates and stores the profile. Gender, birth date and birthplace
// are never taken from the client: they are derived from the fiscal code.
func (s *ProfileService) Upsert(ctx context.Context, userID uint, input *ProfileInput) (*models.Profile, error) {
	fieldErrs := FieldErrors{}

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.FiscalCode = strings.ToUpper(strings.TrimSpace(input.FiscalCode))

	if input.FirstName == "" {
		fieldErrs["first_name"] = "Il nome è obbligatorio"
	}
	if input.LastName == "" {
		fieldErrs["last_name"] = "Il cognome è obbligatorio"
	}
	if strings.TrimSpace(input.Street) == "" {
		fieldErrs["street"] = "L'indirizzo è obbligatorio"
	}
	if strings.TrimSpace(input.City) == "" {
		fieldErrs["city"] = "La città è obbligatoria"
	}
	if len(strings.TrimSpace(input.Province)) != 2 {
		fieldErrs["province"] = "La provincia deve essere di 2 lettere"
	}
	if !postalCodeRegexp.MatchString(input.PostalCode) {
		fieldErrs["postal_code"] = "Il CAP deve essere di 5 cifre"
	}
	if !input.StatuteConsent {
		fieldErrs["statute_consent"] = "L'accettazione dello statuto è obbligatoria"
	}
	if !input.PrivacyConsent {
		fieldErrs["privacy_consent"] = "Il consenso privacy è obbligatorio"
	}

	norm := s.validateFiscalCode(input, fieldErrs)
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	gender, err := fiscalcode.ExtractGender(norm)
	if err != nil {
		fieldErrs["fiscal_code"] = "Il codice fiscale non è valido"
		return nil, fieldErrs
	}
	birth, err := fiscalcode.ExtractBirthDate(norm)
	if err != nil {
		fieldErrs["fiscal_code"] = "Il codice fiscale non è valido"
		return nil, fieldErrs
	}

	birthCity, birthProvince := s.resolveBirthplace(ctx, norm)

	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = "IT"
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	isNew := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		profile = &models.Profile{UserID: userID}
		isNew = true
	}

	genderStr := string(gender)
	// the code is stored as entered: an omocodia variant is the member's
	// official code and its check character only verifies unnormalized
	storedCode := input.FiscalCode
	profile.FirstName = input.FirstName
	profile.LastName = input.LastName
	profile.BirthDate = time.Date(birth.Year, birth.Month, birth.Day, 0, 0, 0, 0, time.UTC)
	profile.Gender = &genderStr
	profile.FiscalCode = &storedCode
	profile.BirthCity = birthCity
	profile.BirthProvince = birthProvince
	profile.Street = strings.TrimSpace(input.Street)
	profile.City = strings.TrimSpace(input.City)
	profile.Province = strings.ToUpper(strings.TrimSpace(input.Province))
	profile.PostalCode = input.PostalCode
	profile.Country = country
	profile.DocumentType = input.DocumentType
	profile.DocumentNumber = input.DocumentNumber
	profile.StatuteConsent = input.StatuteConsent
	profile.PrivacyConsent = input.PrivacyConsent
	profile.ProfileComplete = profile.IsComplete()

	if isNew {
		err = s.profileRepo.Create(ctx, profile)
	} else {
		err = s.profileRepo.Update(ctx, profile)
	}
	if err != nil {
		return nil, err
	}

	if err := s.syncUser(ctx, userID, input); err != nil {
		// the profile is saved; audience sync is best effort
		log.Printf("⚠️ Newsletter sync for user %d failed: %v", userID, err)
	}

	return profile, nil
}

// validateFiscalCode runs the structural and consistency checks and returns
// the normalized code when they pass.
func (s *ProfileService) validateFiscalCode(input *ProfileInput, fieldErrs FieldErrors) string {
	if input.FiscalCode == "" {
		fieldErrs["fiscal_code"] = "Il codice fiscale è obbligatorio"
		return ""
	}
	if !fiscalcode.ValidateFormat(input.FiscalCode) {
		fieldErrs["fiscal_code"] = "Il formato del codice fiscale non è valido"
		return ""
	}
	if !fiscalcode.ValidateChecksum(input.FiscalCode) {
		fieldErrs["fiscal_code"] = "Il carattere di controllo del codice fiscale non è valido"
		return ""
	}

	norm, err := fiscalcode.NormalizeOmocodia(input.FiscalCode)
	if err != nil {
		fieldErrs["fiscal_code"] = "Il formato del codice fiscale non è valido"
		return ""
	}

	if input.LastName != "" && fiscalcode.GenerateSurnameCode(input.LastName) != norm[0:3] {
		fieldErrs["last_name"] = "Il cognome non corrisponde al codice fiscale"
	}
	// A mismatching name code is often a dropped second given name
	// (Maria Luisa registered as Maria), so the hint points at the name.
	if input.FirstName != "" && fiscalcode.GenerateNameCode(input.FirstName) != norm[3:6] {
		fieldErrs["first_name"] = "Il nome non corrisponde al codice fiscale: se hai un secondo nome inseriscilo"
	}

	return norm
}

// resolveBirthplace maps the embedded cadastral code to a municipality.
// Foreign codes resolve to the country-level placeholder; unknown codes
// leave the birthplace empty rather than failing the save.
func (s *ProfileService) resolveBirthplace(ctx context.Context, norm string) (*string, *string) {
	cadastral, err := fiscalcode.ExtractCadastralCode(norm)
	if err != nil {
		if errors.Is(err, fiscalcode.ErrForeignBirthplace) {
			city := "ESTERO"
			province := "EE"
			return &city, &province
		}
		return nil, nil
	}

	comune, err := s.comuneRepo.GetByCadastralCode(ctx, cadastral)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Birthplace lookup failed for %s: %v", cadastral, err)
		}
		return nil, nil
	}
	return &comune.Name, &comune.Province
}

// syncUser persists the newsletter flag and pushes the member to the audience
func (s *ProfileService) syncUser(ctx context.Context, userID uint, input *ProfileInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Newsletter != input.Newsletter || !ptrEqual(user.Phone, input.Phone) {
		user.Newsletter = input.Newsletter
		user.Phone = input.Phone
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
	}

	return s.newsletter.SyncMember(ctx, user.Email, input.FirstName, input.LastName, input.Newsletter)
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
