package entitlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partner-portal/internal/model/user"
	"partner-portal/internal/refdata"
	"partner-portal/pkg/logger"
)

// ErrInvalidCodes flags an admin request naming codes that cannot be acted
// on; the wrapped message enumerates them and nothing is applied.
var ErrInvalidCodes = errors.New("invalid codes in request")

// Store is the slice of the entitlement repository this service needs.
type Store interface {
	ListUsers(ctx context.Context) ([]*user.User, error)
	GrantAuthorities(ctx context.Context, userID uuid.UUID, codes []string) error
	RevokeAuthorities(ctx context.Context, userID uuid.UUID, codes []string) error
	GrantConsortium(ctx context.Context, userID uuid.UUID, code string) error
	PromoteToConsortia(ctx context.Context, userID uuid.UUID, promotions map[string][]string) error
}

// Service resolves effective access and reconciles consortium ownership.
type Service struct {
	tables refdata.Tables
	store  Store
}

func New(tables refdata.Tables, store Store) *Service {
	return &Service{tables: tables, store: store}
}

// ResolveAccessibleAuthorityCodes returns the union of the user's directly
// owned custodian codes and every member code of the consortia the user
// owns. An owned consortium missing from the reference tables is a data
// error and fails the whole resolution.
func (s *Service) ResolveAccessibleAuthorityCodes(u *user.User) (map[string]struct{}, error) {
	codes := make(map[string]struct{}, len(u.AuthorityCodes))
	for _, code := range u.AuthorityCodes {
		codes[code] = struct{}{}
	}
	for _, consortium := range u.ConsortiumCodes {
		members, err := s.tables.Members(consortium)
		if err != nil {
			return nil, fmt.Errorf("resolving consortium %q for user %s: %w", consortium, u.ID, err)
		}
		for _, member := range members {
			codes[member] = struct{}{}
		}
	}
	return codes, nil
}

// ConsortiumCodesUserShouldOwn returns the consortia not yet owned by the
// user whose member authorities are all directly owned. Owning every member
// individually is the signal that the grant should be at consortium level.
func (s *Service) ConsortiumCodesUserShouldOwn(u *user.User) ([]string, error) {
	owned := make(map[string]struct{}, len(u.AuthorityCodes))
	for _, code := range u.AuthorityCodes {
		owned[code] = struct{}{}
	}

	var qualifying []string
	for _, consortium := range s.tables.ConsortiumCodes() {
		if u.OwnsConsortium(consortium) {
			continue
		}
		members, err := s.tables.Members(consortium)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			continue
		}
		covered := true
		for _, member := range members {
			if _, ok := owned[member]; !ok {
				covered = false
				break
			}
		}
		if covered {
			qualifying = append(qualifying, consortium)
		}
	}
	sort.Strings(qualifying)
	return qualifying, nil
}

// PlanPromotion computes the full add/remove set for one user without
// touching the store: consortium code to grant mapped to the member codes
// whose direct grants become redundant.
func (s *Service) PlanPromotion(u *user.User) (map[string][]string, error) {
	qualifying, err := s.ConsortiumCodesUserShouldOwn(u)
	if err != nil {
		return nil, err
	}
	plan := make(map[string][]string, len(qualifying))
	for _, consortium := range qualifying {
		members, err := s.tables.Members(consortium)
		if err != nil {
			return nil, err
		}
		plan[consortium] = members
	}
	return plan, nil
}

// FixUserOwnedConsortia applies the promotion plan for one user as a single
// atomic unit and returns what was applied. An empty plan is a no-op.
func (s *Service) FixUserOwnedConsortia(ctx context.Context, u *user.User) (map[string][]string, error) {
	plan, err := s.PlanPromotion(u)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return plan, nil
	}
	if err := s.store.PromoteToConsortia(ctx, u.ID, plan); err != nil {
		return nil, fmt.Errorf("promoting user %s: %w", u.ID, err)
	}
	return plan, nil
}

// FixAllUsers runs reconciliation across every user. A failure for one user
// is logged and does not abort the batch; the count of users changed and the
// count of failures are returned.
func (s *Service) FixAllUsers(ctx context.Context) (fixed, failed int, err error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("listing users: %w", err)
	}
	log := logger.GetLogger(ctx)
	for _, u := range users {
		plan, planErr := s.FixUserOwnedConsortia(ctx, u)
		if planErr != nil {
			failed++
			log.Error("consortium reconciliation failed",
				zap.String("user", u.Email),
				zap.Error(planErr))
			continue
		}
		if len(plan) > 0 {
			fixed++
			log.Info("consortium reconciliation applied",
				zap.String("user", u.Email),
				zap.Int("consortia", len(plan)))
		}
	}
	return fixed, failed, nil
}

// GrantAuthorities validates every code against the reference tables before
// granting; unknown codes are enumerated and nothing is applied.
func (s *Service) GrantAuthorities(ctx context.Context, u *user.User, codes []string) error {
	var unknown []string
	for _, code := range codes {
		if _, err := s.tables.AuthorityName(code); err != nil {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown authority codes %s", ErrInvalidCodes, strings.Join(unknown, ", "))
	}
	return s.store.GrantAuthorities(ctx, u.ID, codes)
}

// RevokeAuthorities rejects the whole request when any code is not directly
// owned by the user, listing the offending codes.
func (s *Service) RevokeAuthorities(ctx context.Context, u *user.User, codes []string) error {
	var notOwned []string
	for _, code := range codes {
		if !u.OwnsAuthority(code) {
			notOwned = append(notOwned, code)
		}
	}
	if len(notOwned) > 0 {
		return fmt.Errorf("%w: codes not owned by %s: %s", ErrInvalidCodes, u.Email, strings.Join(notOwned, ", "))
	}
	return s.store.RevokeAuthorities(ctx, u.ID, codes)
}

// GrantConsortium validates the consortium code before granting.
func (s *Service) GrantConsortium(ctx context.Context, u *user.User, code string) error {
	if _, err := s.tables.ConsortiumName(code); err != nil {
		return fmt.Errorf("%w: unknown consortium code %s", ErrInvalidCodes, code)
	}
	return s.store.GrantConsortium(ctx, u.ID, code)
}
