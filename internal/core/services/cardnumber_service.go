package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"assotessera/internal/adapters/persistence/models"
	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/core/domain"

	"gorm.io/gorm"
)

// CardNumberService manages card number ranges and assignment
type CardNumberService struct {
	rangeRepo      repositories.CardRangeRepository
	membershipRepo repositories.MembershipRepository
	yearRepo       repositories.YearRepository
	mail           MailSender
}

// NewCardNumberService creates a new card number service
func NewCardNumberService(
	rangeRepo repositories.CardRangeRepository,
	membershipRepo repositories.MembershipRepository,
	yearRepo repositories.YearRepository,
	mail MailSender,
) *CardNumberService {
	return &CardNumberService{
		rangeRepo:      rangeRepo,
		membershipRepo: membershipRepo,
		yearRepo:       yearRepo,
		mail:           mail,
	}
}

// RangeConflictError lists every number of the new interval that is already
// covered by a range or held by a membership, so the operator knows exactly
// what to resolve.
type RangeConflictError struct {
	Numbers []int
}

func (e *RangeConflictError) Error() string {
	return fmt.Sprintf("%d number(s) already covered or assigned", len(e.Numbers))
}

// AddRange registers a new inclusive interval for a year. Every number of the
// interval must be free: not covered by an existing interval of the same year
// and not already assigned to a membership.
func (s *CardNumberService) AddRange(ctx context.Context, adminID, yearID uint, start, end int) (*domain.CardNumberRange, error) {
	if start <= 0 || end < start {
		return nil, domain.ErrInvalidRange
	}

	if _, err := s.yearRepo.GetByID(ctx, yearID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	existing, err := s.rangeRepo.ListByYear(ctx, yearID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.membershipRepo.ListAssignedNumbersByYear(ctx, yearID)
	if err != nil {
		return nil, err
	}

	held := make(map[int]bool, len(assigned))
	for _, n := range assigned {
		held[n] = true
	}

	var conflicts []int
	for n := start; n <= end; n++ {
		covered := held[n]
		if !covered {
			for _, r := range existing {
				if n >= r.Start && n <= r.End {
					covered = true
					break
				}
			}
		}
		if covered {
			conflicts = append(conflicts, n)
		}
	}
	if len(conflicts) > 0 {
		return nil, &RangeConflictError{Numbers: conflicts}
	}

	row := &models.CardNumberRange{
		Start:     start,
		End:       end,
		YearID:    yearID,
		CreatedBy: adminID,
	}
	if err := s.rangeRepo.Create(ctx, row); err != nil {
		return nil, err
	}

	log.Printf("✅ Card range %d-%d added for year %d", start, end, yearID)
	created := row.ToDomain()
	return &created, nil
}

// DeleteRange removes an interval. Intervals containing an already assigned
// number are locked in place.
func (s *CardNumberService) DeleteRange(ctx context.Context, id uint) error {
	row, err := s.rangeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRangeNotFound
		}
		return err
	}

	assigned, err := s.membershipRepo.ListAssignedNumbersByYear(ctx, row.YearID)
	if err != nil {
		return err
	}

	r := row.ToDomain()
	for _, n := range assigned {
		if r.Contains(n) {
			return domain.ErrRangeInUse
		}
	}

	return s.rangeRepo.Delete(ctx, id)
}

// RangeOverview is a range annotated with its usage
type RangeOverview struct {
	domain.CardNumberRange
	Assigned  int `json:"assigned"`
	Available int `json:"available"`
}

// ListRanges returns the year's ranges with per-range usage counters
func (s *CardNumberService) ListRanges(ctx context.Context, yearID uint) ([]RangeOverview, error) {
	rows, err := s.rangeRepo.ListByYear(ctx, yearID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.membershipRepo.ListAssignedNumbersByYear(ctx, yearID)
	if err != nil {
		return nil, err
	}

	overview := make([]RangeOverview, 0, len(rows))
	for _, row := range rows {
		r := row.ToDomain()
		used := 0
		for _, n := range assigned {
			if r.Contains(n) {
				used++
			}
		}
		overview = append(overview, RangeOverview{
			CardNumberRange: r,
			Assigned:        used,
			Available:       r.Size() - used,
		})
	}
	return overview, nil
}

// AvailableCount returns how many unassigned numbers the year's ranges cover
func (s *CardNumberService) AvailableCount(ctx context.Context, yearID uint) (int, error) {
	free, err := s.freeNumbers(ctx, yearID)
	if err != nil {
		return 0, err
	}
	return len(free), nil
}

// freeNumbers returns the year's unassigned numbers sorted ascending
func (s *CardNumberService) freeNumbers(ctx context.Context, yearID uint) ([]int, error) {
	rows, err := s.rangeRepo.ListByYear(ctx, yearID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.membershipRepo.ListAssignedNumbersByYear(ctx, yearID)
	if err != nil {
		return nil, err
	}

	used := make(map[int]bool, len(assigned))
	for _, n := range assigned {
		used[n] = true
	}

	var free []int
	for _, row := range rows {
		for n := row.Start; n <= row.End; n++ {
			if !used[n] {
				free = append(free, n)
			}
		}
	}
	sort.Ints(free)
	return free, nil
}

// Assignment pairs a member with the card number it received
type Assignment struct {
	MembershipID uint   `json:"membership_id"`
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Number       string `json:"number"`
}

// AssignResult is the possibly-partial outcome of an auto assignment run
type AssignResult struct {
	Assigned         []Assignment `json:"assigned"`
	UsersWithoutCard []uint       `json:"users_without_card"`
}

// AutoAssign hands out the lowest free numbers to the selected users' paid
// memberships, walking the users in the order they were submitted. When
// numbers run out the remaining users are reported instead of failing the
// whole batch.
func (s *CardNumberService) AutoAssign(ctx context.Context, yearID uint, userIDs []uint) (*AssignResult, error) {
	pending, err := s.membershipRepo.ListAwaitingNumber(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	// keep only memberships of the requested year, in caller order
	position := make(map[uint]int, len(userIDs))
	for i, id := range userIDs {
		position[id] = i
	}
	var eligible []*models.Membership
	for _, m := range pending {
		if m.YearID == yearID {
			eligible = append(eligible, m)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return position[eligible[i].UserID] < position[eligible[j].UserID]
	})

	free, err := s.freeNumbers(ctx, yearID)
	if err != nil {
		return nil, err
	}

	result := &AssignResult{Assigned: []Assignment{}, UsersWithoutCard: []uint{}}
	for i, m := range eligible {
		if i >= len(free) {
			result.UsersWithoutCard = append(result.UsersWithoutCard, m.UserID)
			continue
		}
		assignment, err := s.assign(ctx, m, free[i])
		if err != nil {
			return nil, err
		}
		result.Assigned = append(result.Assigned, *assignment)
	}

	log.Printf("✅ Auto assignment: %d assigned, %d left without a number",
		len(result.Assigned), len(result.UsersWithoutCard))
	return result, nil
}

// AssignNumber manually assigns a specific number to a membership. The number
// must fall inside one of the year's ranges and be free.
func (s *CardNumberService) AssignNumber(ctx context.Context, membershipID uint, number int) (*Assignment, error) {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, err
	}

	if membership.PaymentStatus != domain.PaymentSucceeded {
		return nil, domain.ErrMembershipNotPending
	}
	if membership.MembershipNumber != nil && *membership.MembershipNumber != "" {
		return nil, domain.ErrDuplicateEntry
	}

	rows, err := s.rangeRepo.ListByYear(ctx, membership.YearID)
	if err != nil {
		return nil, err
	}
	covered := false
	for _, row := range rows {
		if row.ToDomain().Contains(number) {
			covered = true
			break
		}
	}
	if !covered {
		return nil, domain.ErrInvalidRange
	}

	assigned, err := s.membershipRepo.ListAssignedNumbersByYear(ctx, membership.YearID)
	if err != nil {
		return nil, err
	}
	for _, n := range assigned {
		if n == number {
			return nil, domain.ErrDuplicateEntry
		}
	}

	return s.assign(ctx, membership, number)
}

// assign stamps the number, activates the membership for one year from now
// and notifies the member. Mail failure does not roll back the assignment.
func (s *CardNumberService) assign(ctx context.Context, membership *models.Membership, number int) (*Assignment, error) {
	numberStr := strconv.Itoa(number)
	now := time.Now()
	end := now.AddDate(1, 0, 0)

	membership.MembershipNumber = &numberStr
	membership.Status = domain.MembershipActive
	membership.StartDate = &now
	membership.EndDate = &end

	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, err
	}

	if err := s.mail.SendCardAssigned(ctx, membership.User.Email, numberStr); err != nil {
		log.Printf("❌ Card assigned email for membership %d failed: %v", membership.ID, err)
	}

	return &Assignment{
		MembershipID: membership.ID,
		UserID:       membership.UserID,
		Email:        membership.User.Email,
		Number:       numberStr,
	}, nil
}
