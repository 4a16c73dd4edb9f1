package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// fakeMembershipRepo is an in-memory MembershipRepository
type fakeMembershipRepo struct {
	memberships map[uint]*models.Membership
	updates     int
	updateErr   error
}

func newFakeMembershipRepo(memberships ...*models.Membership) *fakeMembershipRepo {
	repo := &fakeMembershipRepo{memberships: map[uint]*models.Membership{}}
	for _, m := range memberships {
		repo.memberships[m.ID] = m
	}
	return repo
}

func (r *fakeMembershipRepo) Create(ctx context.Context, m *models.Membership) error {
	if m.ID == 0 {
		m.ID = uint(len(r.memberships) + 1)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.memberships[m.ID] = m
	return nil
}

func (r *fakeMembershipRepo) GetByID(ctx context.Context, id uint) (*models.Membership, error) {
	m, ok := r.memberships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (r *fakeMembershipRepo) GetLatestByUserID(ctx context.Context, userID uint) (*models.Membership, error) {
	var latest *models.Membership
	for _, m := range r.memberships {
		if m.UserID != userID {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *fakeMembershipRepo) GetByProviderOrderID(ctx context.Context, orderID string) (*models.Membership, error) {
	for _, m := range r.memberships {
		if m.ProviderOrderID != nil && *m.ProviderOrderID == orderID {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMembershipRepo) Update(ctx context.Context, m *models.Membership) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	r.memberships[m.ID] = m
	return nil
}

func (r *fakeMembershipRepo) ListForExport(ctx context.Context, filter *repositories.ExportFilter) ([]*models.Membership, error) {
	var out []*models.Membership
	for _, m := range r.memberships {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMembershipRepo) ListAwaitingNumber(ctx context.Context, userIDs []uint) ([]*models.Membership, error) {
	wanted := map[uint]bool{}
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []*models.Membership
	for _, m := range r.memberships {
		if !wanted[m.UserID] {
			continue
		}
		if m.PaymentStatus != "SUCCEEDED" {
			continue
		}
		if m.MembershipNumber != nil && *m.MembershipNumber != "" {
			continue
		}
		if m.Status == "CANCELED" || m.Status == "EXPIRED" {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMembershipRepo) ListAssignedNumbersByYear(ctx context.Context, yearID uint) ([]int, error) {
	var out []int
	for _, m := range r.memberships {
		if m.YearID != yearID || m.MembershipNumber == nil || *m.MembershipNumber == "" {
			continue
		}
		n := 0
		fmt.Sscanf(*m.MembershipNumber, "%d", &n)
		if n > 0 {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (r *fakeMembershipRepo) CountAssignedByYear(ctx context.Context, yearID uint) (int64, error) {
	ns, _ := r.ListAssignedNumbersByYear(ctx, yearID)
	return int64(len(ns)), nil
}

func (r *fakeMembershipRepo) ExpireActiveEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, m := range r.memberships {
		if m.Status == "ACTIVE" && m.EndDate != nil && m.EndDate.Before(cutoff) {
			m.Status = "EXPIRED"
			n++
		}
	}
	return n, nil
}

// fakePaymentLogRepo enforces the (membership, event) uniqueness in memory
type fakePaymentLogRepo struct {
	entries map[string]bool
	created int
}

func newFakePaymentLogRepo() *fakePaymentLogRepo {
	return &fakePaymentLogRepo{entries: map[string]bool{}}
}

func (r *fakePaymentLogRepo) Create(ctx context.Context, entry *models.PaymentLog) error {
	key := fmt.Sprintf("%d|%s", entry.MembershipID, entry.EventType)
	if r.entries[key] {
		return gorm.ErrDuplicatedKey
	}
	r.entries[key] = true
	r.created++
	return nil
}

// fakeProvider is a scriptable PaymentProvider
type fakeProvider struct {
	signatureValid bool
	signatureErr   error
	captured       []string
	captureErr     error
	order          *PayPalOrder
	orderErr       error
}

func (p *fakeProvider) CreateOrder(ctx context.Context, amountCents int, description, customID, returnURL, cancelURL string) (*PayPalOrder, error) {
	if p.orderErr != nil {
		return nil, p.orderErr
	}
	if p.order != nil {
		return p.order, nil
	}
	return &PayPalOrder{ID: "ORDER-" + customID, ApprovalURL: "https://paypal.test/approve"}, nil
}

func (p *fakeProvider) CaptureOrder(ctx context.Context, orderID string) error {
	if p.captureErr != nil {
		return p.captureErr
	}
	p.captured = append(p.captured, orderID)
	return nil
}

func (p *fakeProvider) VerifyWebhookSignature(ctx context.Context, headers WebhookSignatureHeaders, rawBody []byte) (bool, error) {
	return p.signatureValid, p.signatureErr
}

// fakeMail records outgoing mail
type fakeMail struct {
	magicLinks    []string
	lastLink      string
	confirmations []string
	cardMails     []string
}

func (m *fakeMail) SendMagicLink(ctx context.Context, to, link string) error {
	m.magicLinks = append(m.magicLinks, to)
	m.lastLink = link
	return nil
}

func (m *fakeMail) SendMembershipConfirmation(ctx context.Context, to, yearName string) error {
	m.confirmations = append(m.confirmations, to)
	return nil
}

func (m *fakeMail) SendCardAssigned(ctx context.Context, to, number string) error {
	m.cardMails = append(m.cardMails, to+"|"+number)
	return nil
}

// fakeRangeRepo is an in-memory CardRangeRepository
type fakeRangeRepo struct {
	ranges map[uint]*models.CardNumberRange
	nextID uint
}

func newFakeRangeRepo(ranges ...*models.CardNumberRange) *fakeRangeRepo {
	repo := &fakeRangeRepo{ranges: map[uint]*models.CardNumberRange{}}
	for _, r := range ranges {
		repo.ranges[r.ID] = r
		if r.ID > repo.nextID {
			repo.nextID = r.ID
		}
	}
	return repo
}

func (r *fakeRangeRepo) Create(ctx context.Context, row *models.CardNumberRange) error {
	r.nextID++
	row.ID = r.nextID
	r.ranges[row.ID] = row
	return nil
}

func (r *fakeRangeRepo) GetByID(ctx context.Context, id uint) (*models.CardNumberRange, error) {
	row, ok := r.ranges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (r *fakeRangeRepo) ListByYear(ctx context.Context, yearID uint) ([]*models.CardNumberRange, error) {
	var out []*models.CardNumberRange
	for _, row := range r.ranges {
		if row.YearID == yearID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *fakeRangeRepo) Delete(ctx context.Context, id uint) error {
	delete(r.ranges, id)
	return nil
}

// fakeYearRepo is an in-memory YearRepository
type fakeYearRepo struct {
	years map[uint]*models.AssociationYear
}

func newFakeYearRepo(years ...*models.AssociationYear) *fakeYearRepo {
	repo := &fakeYearRepo{years: map[uint]*models.AssociationYear{}}
	for _, y := range years {
		repo.years[y.ID] = y
	}
	return repo
}

func (r *fakeYearRepo) Create(ctx context.Context, y *models.AssociationYear) error {
	if y.ID == 0 {
		y.ID = uint(len(r.years) + 1)
	}
	r.years[y.ID] = y
	return nil
}

func (r *fakeYearRepo) GetByID(ctx context.Context, id uint) (*models.AssociationYear, error) {
	y, ok := r.years[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return y, nil
}

func (r *fakeYearRepo) GetActive(ctx context.Context) (*models.AssociationYear, error) {
	for _, y := range r.years {
		if y.IsActive {
			return y, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeYearRepo) List(ctx context.Context) ([]*models.AssociationYear, error) {
	var out []*models.AssociationYear
	for _, y := range r.years {
		out = append(out, y)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeYearRepo) ActivateExclusive(ctx context.Context, id uint) error {
	if _, ok := r.years[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, y := range r.years {
		y.IsActive = y.ID == id
	}
	return nil
}

// fakeProfileRepo is an in-memory ProfileRepository
type fakeProfileRepo struct {
	profiles map[uint]*models.Profile
	updates  int
}

func newFakeProfileRepo(profiles ...*models.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{profiles: map[uint]*models.Profile{}}
	for _, p := range profiles {
		repo.profiles[p.UserID] = p
	}
	return repo
}

func (r *fakeProfileRepo) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *models.Profile) error {
	if p.ID == 0 {
		p.ID = uint(len(r.profiles) + 1)
	}
	r.profiles[p.UserID] = p
	return nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, p *models.Profile) error {
	r.updates++
	r.profiles[p.UserID] = p
	return nil
}

func (r *fakeProfileRepo) ListWithFiscalCode(ctx context.Context) ([]*models.Profile, error) {
	var out []*models.Profile
	for _, p := range r.profiles {
		if p.FiscalCode != nil && *p.FiscalCode != "" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	users map[uint]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[uint]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == 0 {
		u.ID = uint(len(r.users) + 1)
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, u *models.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// fakeComuneRepo is an in-memory ComuneRepository
type fakeComuneRepo struct {
	comuni []models.Comune
}

func (r *fakeComuneRepo) GetByCadastralCode(ctx context.Context, code string) (*models.Comune, error) {
	for i := range r.comuni {
		if r.comuni[i].CadastralCode == code {
			return &r.comuni[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeComuneRepo) GetByNameProvince(ctx context.Context, name, province string) (*models.Comune, error) {
	for i := range r.comuni {
		if r.comuni[i].Name == name && r.comuni[i].Province == province {
			return &r.comuni[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeComuneRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.comuni)), nil
}

func (r *fakeComuneRepo) BulkInsert(ctx context.Context, comuni []models.Comune) error {
	r.comuni = append(r.comuni, comuni...)
	return nil
}

// fakeNameRepo is an in-memory NameRepository
type fakeNameRepo struct {
	names []*models.NameDictionary
}

func (r *fakeNameRepo) ListAll(ctx context.Context) ([]*models.NameDictionary, error) {
	return r.names, nil
}

// fakeLoginTokenRepo is an in-memory LoginTokenRepository
type fakeLoginTokenRepo struct {
	tokens map[uint]*models.LoginToken
	nextID uint
	users  *fakeUserRepo
}

func newFakeLoginTokenRepo(users *fakeUserRepo) *fakeLoginTokenRepo {
	return &fakeLoginTokenRepo{tokens: map[uint]*models.LoginToken{}, users: users}
}

func (r *fakeLoginTokenRepo) Create(ctx context.Context, token *models.LoginToken) error {
	r.nextID++
	token.ID = r.nextID
	if r.users != nil {
		if u, err := r.users.GetByID(ctx, token.UserID); err == nil {
			token.User = *u
		}
	}
	r.tokens[token.ID] = token
	return nil
}

func (r *fakeLoginTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.LoginToken, error) {
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLoginTokenRepo) MarkUsed(ctx context.Context, id uint) error {
	t, ok := r.tokens[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	t.UsedAt = &now
	return nil
}

func (r *fakeLoginTokenRepo) RevokeActiveByUserID(ctx context.Context, userID uint) error {
	now := time.Now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.UsedAt == nil && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeLoginTokenRepo) DeleteExpired(ctx context.Context) error {
	for id, t := range r.tokens {
		if time.Now().After(t.ExpiresAt) {
			delete(r.tokens, id)
		}
	}
	return nil
}

// fakeAdminRepo is an in-memory AdminRepository
type fakeAdminRepo struct {
	admins map[uint]*models.Admin
}

func newFakeAdminRepo(admins ...*models.Admin) *fakeAdminRepo {
	repo := &fakeAdminRepo{admins: map[uint]*models.Admin{}}
	for _, a := range admins {
		repo.admins[a.ID] = a
	}
	return repo
}

func (r *fakeAdminRepo) Create(ctx context.Context, a *models.Admin) error {
	if a.ID == 0 {
		a.ID = uint(len(r.admins) + 1)
	}
	r.admins[a.ID] = a
	return nil
}

func (r *fakeAdminRepo) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	for _, a := range r.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAdminRepo) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	a, ok := r.admins[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.Password = passwordHash
	return nil
}

func (r *fakeAdminRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

// fakeNewsletter records sync calls
type fakeNewsletter struct {
	synced []string
}

func (n *fakeNewsletter) SyncMember(ctx context.Context, email, firstName, lastName string, subscribed bool) error {
	n.synced = append(n.synced, email)
	return nil
}
