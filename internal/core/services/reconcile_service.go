package services

import (
	"context"
	"log"

	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/pkg/fiscalcode"
)

// ReconcileService audits stored profiles against their fiscal codes. Its
// main target is the dropped-second-name case: "Maria Luisa" registered as
// "Maria", leaving a name code the stored name cannot reproduce.
type ReconcileService struct {
	profileRepo repositories.ProfileRepository
	nameRepo    repositories.NameRepository
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	profileRepo repositories.ProfileRepository,
	nameRepo repositories.NameRepository,
) *ReconcileService {
	return &ReconcileService{
		profileRepo: profileRepo,
		nameRepo:    nameRepo,
	}
}

// ReconcileIssue is one profile whose fiscal code disagrees with its data
type ReconcileIssue struct {
	ProfileID     uint   `json:"profile_id"`
	UserID        uint   `json:"user_id"`
	FiscalCode    string `json:"fiscal_code"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Problem       string `json:"problem"`
	SuggestedName string `json:"suggested_name,omitempty"`
	Fixed         bool   `json:"fixed"`
}

// ReconcileReport is the batch outcome: consistent rows, issues and fixes
type ReconcileReport struct {
	Scanned    int              `json:"scanned"`
	Consistent int              `json:"consistent"`
	Fixed      int              `json:"fixed"`
	Issues     []ReconcileIssue `json:"issues"`
}

// Run scans every profile carrying a fiscal code. With fix enabled, profiles
// whose name code resolves to a compound name get the second name appended;
// everything else is only reported.
func (s *ReconcileService) Run(ctx context.Context, fix bool) (*ReconcileReport, error) {
	profiles, err := s.profileRepo.ListWithFiscalCode(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.nameRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	dictionary := make([]fiscalcode.NameEntry, 0, len(rows))
	for _, row := range rows {
		dictionary = append(dictionary, fiscalcode.NameEntry{
			Name:   row.Name,
			Gender: fiscalcode.Gender(row.Gender),
		})
	}

	report := &ReconcileReport{Issues: []ReconcileIssue{}}
	for _, profile := range profiles {
		report.Scanned++
		cf := *profile.FiscalCode

		issue := ReconcileIssue{
			ProfileID:  profile.ID,
			UserID:     profile.UserID,
			FiscalCode: cf,
			FirstName:  profile.FirstName,
			LastName:   profile.LastName,
		}

		norm, err := fiscalcode.NormalizeOmocodia(cf)
		if err != nil {
			issue.Problem = "codice fiscale malformato"
			report.Issues = append(report.Issues, issue)
			continue
		}
		if !fiscalcode.ValidateChecksum(cf) {
			issue.Problem = "carattere di controllo non valido"
			report.Issues = append(report.Issues, issue)
			continue
		}

		if fiscalcode.GenerateSurnameCode(profile.LastName) != norm[0:3] {
			issue.Problem = "cognome non corrispondente"
			report.Issues = append(report.Issues, issue)
			continue
		}

		if fiscalcode.GenerateNameCode(profile.FirstName) == norm[3:6] {
			report.Consistent++
			continue
		}

		issue.Problem = "nome non corrispondente"
		second, ok := fiscalcode.SuggestCompoundName(norm, profile.FirstName, dictionary)
		if ok {
			issue.SuggestedName = profile.FirstName + " " + second
			if fix {
				profile.FirstName = issue.SuggestedName
				if err := s.profileRepo.Update(ctx, profile); err != nil {
					return nil, err
				}
				issue.Fixed = true
				report.Fixed++
			}
		}
		report.Issues = append(report.Issues, issue)
	}

	log.Printf("✅ Reconciliation: %d scanned, %d consistent, %d issues, %d fixed",
		report.Scanned, report.Consistent, len(report.Issues), report.Fixed)
	return report, nil
}
