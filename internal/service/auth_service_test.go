// FILE: internal/service/auth_service_test.go
package service

import (
	"context"
	"testing"

	"agent-chat-be/internal/dto"
	"agent-chat-be/internal/entity"
	"agent-chat-be/internal/repository/contract"
	"agent-chat-be/internal/repository/specification"
	"agent-chat-be/internal/repository/unitofwork"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memProfileRepo struct {
	profiles []*entity.Profile
}

func (r *memProfileRepo) Create(_ context.Context, profile *entity.Profile) error {
	cp := *profile
	r.profiles = append(r.profiles, &cp)
	return nil
}

func (r *memProfileRepo) Update(_ context.Context, profile *entity.Profile) error {
	for i, p := range r.profiles {
		if p.Id == profile.Id {
			cp := *profile
			r.profiles[i] = &cp
		}
	}
	return nil
}

func (r *memProfileRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Profile, error) {
	for _, p := range r.profiles {
		match := true
		for _, spec := range specs {
			if byEmail, ok := spec.(specification.ByEmail); ok && p.Email != byEmail.Email {
				match = false
			}
		}
		if match {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

type profileOnlyUow struct {
	profiles *memProfileRepo
}

func (u *profileOnlyUow) Begin(context.Context) error { return nil }
func (u *profileOnlyUow) Commit() error               { return nil }
func (u *profileOnlyUow) Rollback() error             { return nil }

func (u *profileOnlyUow) ProfileRepository() contract.ProfileRepository { return u.profiles }
func (u *profileOnlyUow) ThreadRepository() contract.ThreadRepository   { return nil }
func (u *profileOnlyUow) AgentRepository() contract.AgentRepository     { return nil }
func (u *profileOnlyUow) JobRepository() contract.JobRepository         { return nil }
func (u *profileOnlyUow) StepRepository() contract.StepRepository       { return nil }

type profileOnlyFactory struct {
	uow *profileOnlyUow
}

func (f *profileOnlyFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }

func newAuthFixture() (IAuthService, *memProfileRepo) {
	profiles := &memProfileRepo{}
	factory := &profileOnlyFactory{uow: &profileOnlyUow{profiles: profiles}}
	return NewAuthService(factory), profiles
}

func TestRegisterProfileReturnsRawKeyOnce(t *testing.T) {
	svc, profiles := newAuthFixture()

	res, err := svc.RegisterProfile(context.Background(), &dto.RegisterProfileRequest{Email: "a@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ApiKey)

	require.Len(t, profiles.profiles, 1)
	assert.NotEqual(t, res.ApiKey, profiles.profiles[0].ApiKeyHash, "raw key must never be stored")
}

func TestRegisterProfileDuplicateEmailIsEmailTaken(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.RegisterProfile(context.Background(), &dto.RegisterProfileRequest{Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.RegisterProfile(context.Background(), &dto.RegisterProfileRequest{Email: "a@example.com"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestIssueAndVerifyTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture()

	reg, err := svc.RegisterProfile(context.Background(), &dto.RegisterProfileRequest{Email: "a@example.com"})
	require.NoError(t, err)

	tok, err := svc.IssueToken(context.Background(), &dto.TokenRequest{Email: "a@example.com", ApiKey: reg.ApiKey})
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)

	profileID, err := svc.VerifyToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.ProfileId, profileID.String())
}

func TestIssueTokenRejectsWrongKey(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.RegisterProfile(context.Background(), &dto.RegisterProfileRequest{Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.IssueToken(context.Background(), &dto.TokenRequest{Email: "a@example.com", ApiKey: "not-the-key"})
	assert.Error(t, err)
}
