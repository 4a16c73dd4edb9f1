package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/core/domain"
	"assotessera/internal/pkg/fiscalcode"

	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the output file layout
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatAICS ExportFormat = "aics"
)

// ErrUnknownFormat is returned for format values outside csv/xlsx/aics
var ErrUnknownFormat = errors.New("unknown export format")

// ExportFile is a generated download
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportService turns the member dataset into downloadable files
type ExportService struct {
	membershipRepo repositories.MembershipRepository
	comuneRepo     repositories.ComuneRepository
}

// NewExportService creates a new export service
func NewExportService(
	membershipRepo repositories.MembershipRepository,
	comuneRepo repositories.ComuneRepository,
) *ExportService {
	return &ExportService{
		membershipRepo: membershipRepo,
		comuneRepo:     comuneRepo,
	}
}

// Export generates the requested file for the filtered dataset
func (s *ExportService) Export(ctx context.Context, format ExportFormat, filter *repositories.ExportFilter) (*ExportFile, error) {
	memberships, err := s.membershipRepo.ListForExport(ctx, filter)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().Format("20060102_150405")

	switch format {
	case FormatCSV:
		data, err := s.genericCSV(memberships)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("soci_%s.csv", stamp),
			ContentType: contentTypeCSV,
			Data:        data,
		}, nil

	case FormatXLSX:
		data, err := s.genericXLSX(memberships)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("soci_%s.xlsx", stamp),
			ContentType: contentTypeXLSX,
			Data:        data,
		}, nil

	case FormatAICS:
		data, err := s.aicsXLSX(ctx, memberships)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("aics_%s.xlsx", stamp),
			ContentType: contentTypeXLSX,
			Data:        data,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

var genericHeader = []string{
	"Email", "Cognome", "Nome", "Codice fiscale", "Data di nascita", "Sesso",
	"Comune di nascita", "Prov. nascita", "Indirizzo", "Città", "Prov.", "CAP",
	"Numero tessera", "Stato", "Stato pagamento", "Inizio validità", "Fine validità",
}

// genericRow renders the stored values as-is; no fiscal-code derivation
func genericRow(m *models.Membership) []string {
	p := m.User.Profile
	if p == nil {
		p = &models.Profile{}
	}
	return []string{
		m.User.Email,
		p.LastName,
		p.FirstName,
		deref(p.FiscalCode),
		formatDate(&p.BirthDate),
		deref(p.Gender),
		deref(p.BirthCity),
		deref(p.BirthProvince),
		p.Street,
		p.City,
		p.Province,
		p.PostalCode,
		deref(m.MembershipNumber),
		string(m.Status),
		string(m.PaymentStatus),
		formatDate(m.StartDate),
		formatDate(m.EndDate),
	}
}

func (s *ExportService) genericCSV(memberships []*models.Membership) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(genericHeader); err != nil {
		return nil, err
	}
	for _, m := range memberships {
		if err := w.Write(genericRow(m)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ExportService) genericXLSX(memberships []*models.Membership) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Soci"
	f.SetSheetName("Sheet1", sheet)

	if err := setStringRow(f, sheet, 1, genericHeader); err != nil {
		return nil, err
	}
	for i, m := range memberships {
		if err := setStringRow(f, sheet, i+2, genericRow(m)); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// aicsHeader matches the registry's import spreadsheet column for column
var aicsHeader = []string{
	"Tessera", "Cognome", "Nome", "Sesso", "Data nascita",
	"Comune nascita", "Prov. nascita", "Codice fiscale",
	"Indirizzo", "Comune residenza", "Prov. residenza", "CAP",
	"Email", "Telefono", "Data tesseramento",
}

var exclusionHeader = []string{"Email", "Cognome", "Nome", "Motivo"}

// aicsXLSX builds the registry workbook: the "Soci" sheet with the importable
// rows and the "Escluse" sheet listing every rejected row with its reason.
// Residence clearing and row exclusion are independent: a row with an
// unvalidated residence still exports (with the residence block empty) as
// long as its membership is in an exportable state.
func (s *ExportService) aicsXLSX(ctx context.Context, memberships []*models.Membership) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Soci"
	const excludedSheet = "Escluse"
	f.SetSheetName("Sheet1", sheet)
	if _, err := f.NewSheet(excludedSheet); err != nil {
		return nil, err
	}

	if err := setStringRow(f, sheet, 1, aicsHeader); err != nil {
		return nil, err
	}
	if err := setStringRow(f, excludedSheet, 1, exclusionHeader); err != nil {
		return nil, err
	}

	includedRow := 2
	excludedRow := 2
	for _, m := range memberships {
		p := m.User.Profile
		if p == nil {
			p = &models.Profile{}
		}

		if reason := exclusionReason(m); reason != "" {
			row := []string{m.User.Email, p.LastName, p.FirstName, reason}
			if err := setStringRow(f, excludedSheet, excludedRow, row); err != nil {
				return nil, err
			}
			excludedRow++
			continue
		}

		if err := setStringRow(f, sheet, includedRow, s.aicsRow(ctx, m, p)); err != nil {
			return nil, err
		}
		includedRow++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// exclusionReason returns the operator-facing reason a membership cannot be
// imported by the registry, or "" when it is exportable.
func exclusionReason(m *models.Membership) string {
	if m.MembershipNumber == nil || *m.MembershipNumber == "" {
		return "Numero tessera non assegnato"
	}
	if m.Status != domain.MembershipActive {
		return fmt.Sprintf("Tessera non attiva (stato %s)", m.Status)
	}
	return ""
}

// aicsRow renders one registry row. Gender, birth date and birthplace come
// from the fiscal code when present: the code is authoritative, stored values
// may have been entered inconsistently.
func (s *ExportService) aicsRow(ctx context.Context, m *models.Membership, p *models.Profile) []string {
	gender := deref(p.Gender)
	birthDate := formatDate(&p.BirthDate)
	birthCity := deref(p.BirthCity)
	birthProvince := deref(p.BirthProvince)

	if p.FiscalCode != nil && *p.FiscalCode != "" {
		cf := *p.FiscalCode
		if g, err := fiscalcode.ExtractGender(cf); err == nil {
			gender = string(g)
		}
		if bd, err := fiscalcode.ExtractBirthDate(cf); err == nil {
			birthDate = fmt.Sprintf("%02d/%02d/%04d", bd.Day, bd.Month, bd.Year)
		}
		if city, province, ok := s.birthplaceFromCode(ctx, cf); ok {
			birthCity, birthProvince = city, province
		}
	}

	street, city, province, postalCode := s.normalizeResidence(ctx, p)

	return []string{
		deref(m.MembershipNumber),
		p.LastName,
		p.FirstName,
		gender,
		birthDate,
		birthCity,
		birthProvince,
		deref(p.FiscalCode),
		street,
		city,
		province,
		postalCode,
		m.User.Email,
		deref(m.User.Phone),
		formatDate(m.StartDate),
	}
}

// birthplaceFromCode resolves the embedded cadastral code to a municipality
func (s *ExportService) birthplaceFromCode(ctx context.Context, cf string) (string, string, bool) {
	cadastral, err := fiscalcode.ExtractCadastralCode(cf)
	if err != nil {
		if errors.Is(err, fiscalcode.ErrForeignBirthplace) {
			return "ESTERO", "EE", true
		}
		return "", "", false
	}
	comune, err := s.comuneRepo.GetByCadastralCode(ctx, cadastral)
	if err != nil {
		return "", "", false
	}
	return comune.Name, comune.Province, true
}

// normalizeResidence validates the stored city/province pair against the
// municipality table. On failure the whole residence block is cleared: the
// registry rejects rows with partially filled or unrecognized geography.
func (s *ExportService) normalizeResidence(ctx context.Context, p *models.Profile) (string, string, string, string) {
	if p.City == "" || p.Province == "" {
		return "", "", "", ""
	}

	// lookup failure clears the block too: better an empty residence than
	// unvalidated geography in the registry
	comune, err := s.comuneRepo.GetByNameProvince(ctx, p.City, p.Province)
	if err != nil {
		return "", "", "", ""
	}

	return p.Street, comune.Name, comune.Province, p.PostalCode
}

func setStringRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
