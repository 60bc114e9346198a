package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/model"
)

type recordingUserRepo struct {
	fakeUserRepo
	ensuredID string
	listPage  int
	listLimit int
	rolesID   string
	admin     bool
	audit     bool
	deletedID string
	patchedID string
	patch     model.ProfilePatch
}

func (r *recordingUserRepo) Ensure(_ context.Context, id string) (*model.User, error) {
	r.ensuredID = id
	return &model.User{ID: id, NickName: "user_" + id}, nil
}

func (r *recordingUserRepo) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	r.listPage = page
	r.listLimit = limit
	return []model.User{{ID: "u1"}}, 11, nil
}

func (r *recordingUserRepo) UpdateProfile(_ context.Context, id string, p model.ProfilePatch) error {
	r.patchedID = id
	r.patch = p
	return nil
}

func (r *recordingUserRepo) SetRoles(_ context.Context, id string, isAdmin, isAudit bool) error {
	r.rolesID = id
	r.admin = isAdmin
	r.audit = isAudit
	return nil
}

func (r *recordingUserRepo) SoftDelete(_ context.Context, id string) error {
	r.deletedID = id
	return nil
}

func TestUserService_Ensure(t *testing.T) {
	repo := &recordingUserRepo{}
	svc := NewUserService(repo)

	u, err := svc.Ensure(context.Background(), "openid-1")
	require.NoError(t, err)
	require.Equal(t, "openid-1", repo.ensuredID)
	require.Equal(t, "openid-1", u.ID)

	_, err = svc.Ensure(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestUserService_List_Defaults(t *testing.T) {
	repo := &recordingUserRepo{}
	svc := NewUserService(repo)

	page, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Equal(t, 1, repo.listPage)
	require.Equal(t, 10, repo.listLimit)
	require.Equal(t, int64(11), page.Total)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 10, page.Limit)
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := &recordingUserRepo{}
	svc := NewUserService(repo)

	nick := "new"
	require.NoError(t, svc.UpdateProfile(context.Background(), "u1", model.ProfilePatch{NickName: &nick}))
	require.Equal(t, "u1", repo.patchedID)
	require.Equal(t, &nick, repo.patch.NickName)

	require.ErrorIs(t, svc.UpdateProfile(context.Background(), "", model.ProfilePatch{}), errs.ErrValidation)
}

func TestUserService_SetRoles(t *testing.T) {
	repo := &recordingUserRepo{}
	svc := NewUserService(repo)

	require.NoError(t, svc.SetRoles(context.Background(), "u1", false, true))
	require.Equal(t, "u1", repo.rolesID)
	require.False(t, repo.admin)
	require.True(t, repo.audit)
}

func TestUserService_Delete(t *testing.T) {
	repo := &recordingUserRepo{}
	svc := NewUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "u1"))
	require.Equal(t, "u1", repo.deletedID)
	require.ErrorIs(t, svc.Delete(context.Background(), ""), errs.ErrValidation)
}

func TestUserService_Create_RequiresID(t *testing.T) {
	svc := NewUserService(&recordingUserRepo{})
	require.ErrorIs(t, svc.Create(context.Background(), &model.User{}), errs.ErrValidation)
}
