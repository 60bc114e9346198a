package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/junceapp/caseflow/internal/errs"
	"github.com/junceapp/caseflow/internal/model"
	"github.com/junceapp/caseflow/internal/status"
)

type fakeCaseRepo struct {
	createID  string
	createErr error
	created   *model.NewCase

	transitionErr error
	lastReq       model.TransitionRequest
	lastTo        status.Status

	searchPage  *model.CasePage
	searchErr   error
	lastFilters []model.Filter
	lastPage    model.PageRequest

	markReadN   int64
	lastMarked  []string
	deletedID   string
	updatedID   string
	gotByID     string
	counts      model.StatusCounts
	unreadUser  string
	auditCalled bool
}

func (f *fakeCaseRepo) Create(_ context.Context, nc *model.NewCase) (string, error) {
	f.created = nc
	return f.createID, f.createErr
}

func (f *fakeCaseRepo) GetByID(_ context.Context, id string) (*model.CaseAggregate, error) {
	f.gotByID = id
	return &model.CaseAggregate{Case: model.Case{ID: id}}, nil
}

func (f *fakeCaseRepo) Search(_ context.Context, filters []model.Filter, page model.PageRequest) (*model.CasePage, error) {
	f.lastFilters = filters
	f.lastPage = page
	if f.searchPage != nil {
		return f.searchPage, f.searchErr
	}
	return &model.CasePage{PageNum: page.PageNum, PageSize: page.PageSize}, f.searchErr
}

func (f *fakeCaseRepo) Transition(_ context.Context, req model.TransitionRequest, to status.Status) error {
	f.lastReq = req
	f.lastTo = to
	return f.transitionErr
}

func (f *fakeCaseRepo) Update(_ context.Context, id string, nc *model.NewCase) error {
	f.updatedID = id
	f.created = nc
	return nil
}

func (f *fakeCaseRepo) SoftDelete(_ context.Context, id string) error {
	f.deletedID = id
	return nil
}

func (f *fakeCaseRepo) MarkRead(_ context.Context, userID string, caseIDs []string) (int64, error) {
	f.lastMarked = caseIDs
	return f.markReadN, nil
}

func (f *fakeCaseRepo) UnreadCounts(_ context.Context, userID string) (model.StatusCounts, error) {
	f.unreadUser = userID
	return f.counts, nil
}

func (f *fakeCaseRepo) AuditCounts(context.Context) (model.StatusCounts, error) {
	f.auditCalled = true
	return f.counts, nil
}

type fakeUserRepo struct {
	touched      bool
	touchedPhone string
	touchErr     error
}

func (f *fakeUserRepo) Ensure(context.Context, string) (*model.User, error)      { return nil, nil }
func (f *fakeUserRepo) Create(context.Context, *model.User) error                { return nil }
func (f *fakeUserRepo) GetByID(context.Context, string) (*model.User, error)     { return nil, nil }
func (f *fakeUserRepo) List(context.Context, int, int) ([]model.User, int64, error) {
	return nil, 0, nil
}
func (f *fakeUserRepo) UpdateProfile(context.Context, string, model.ProfilePatch) error { return nil }
func (f *fakeUserRepo) SetRoles(context.Context, string, bool, bool) error              { return nil }
func (f *fakeUserRepo) SoftDelete(context.Context, string) error                        { return nil }

func (f *fakeUserRepo) TouchContact(_ context.Context, _, phone, _ string) error {
	f.touched = true
	f.touchedPhone = phone
	return f.touchErr
}

type fakeLimiter struct {
	allowed    bool
	retryAfter time.Duration
	noteErr    error
	noteCalls  int
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return f.allowed, f.retryAfter, nil
}

func (f *fakeLimiter) Note(context.Context, string) (bool, time.Duration, error) {
	f.noteCalls++
	return false, 0, f.noteErr
}

func validNewCase() *model.NewCase {
	return &model.NewCase{
		UserID:      "u1",
		GoodsName:   "Widget",
		ProblemDesc: json.RawMessage(`{"text":"broken"}`),
		Phone:       "555",
	}
}

func TestCaseService_Create_OK(t *testing.T) {
	cases := &fakeCaseRepo{createID: "case_1"}
	users := &fakeUserRepo{}
	lim := &fakeLimiter{allowed: true}
	svc := NewCaseService(cases, users, lim, nil)

	id, err := svc.Create(context.Background(), validNewCase())
	require.NoError(t, err)
	require.Equal(t, "case_1", id)
	require.Equal(t, 1, lim.noteCalls)
	require.True(t, users.touched)
	require.Equal(t, "555", users.touchedPhone)
}

func TestCaseService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.NewCase)
	}{
		{"empty user id", func(nc *model.NewCase) { nc.UserID = "" }},
		{"empty goods name", func(nc *model.NewCase) { nc.GoodsName = "" }},
		{"sub without primary", func(nc *model.NewCase) { nc.IsSub = true }},
		{"primary on non-sub", func(nc *model.NewCase) { nc.PrimaryID = "case_p" }},
		{"media without url", func(nc *model.NewCase) { nc.GoodsPics = []model.NewMedia{{}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cases := &fakeCaseRepo{}
			svc := NewCaseService(cases, &fakeUserRepo{}, &fakeLimiter{allowed: true}, nil)
			nc := validNewCase()
			tt.mutate(nc)
			_, err := svc.Create(context.Background(), nc)
			require.ErrorIs(t, err, errs.ErrValidation)
			require.Nil(t, cases.created)
		})
	}
}

func TestCaseService_Create_RateLimited(t *testing.T) {
	cases := &fakeCaseRepo{}
	svc := NewCaseService(cases, &fakeUserRepo{}, &fakeLimiter{allowed: false, retryAfter: time.Minute}, nil)

	_, err := svc.Create(context.Background(), validNewCase())
	require.ErrorIs(t, err, errs.ErrRateLimited)
	require.Nil(t, cases.created)
}

func TestCaseService_Create_BestEffortSideEffects(t *testing.T) {
	cases := &fakeCaseRepo{createID: "case_1"}
	users := &fakeUserRepo{touchErr: errors.New("users down")}
	lim := &fakeLimiter{allowed: true, noteErr: errors.New("limiter down")}
	svc := NewCaseService(cases, users, lim, nil)

	id, err := svc.Create(context.Background(), validNewCase())
	require.NoError(t, err)
	require.Equal(t, "case_1", id)
}

func TestCaseService_Transition_ResolvesDestination(t *testing.T) {
	cases := &fakeCaseRepo{}
	svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)

	req := model.TransitionRequest{
		CaseID:     "c1",
		ApproverID: "aud1",
		Status:     status.PendingReview,
		Operation:  status.OpAccept,
	}
	to, err := svc.Transition(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, status.Reviewed, to)
	require.Equal(t, status.Reviewed, cases.lastTo)
	require.Equal(t, req, cases.lastReq)
}

func TestCaseService_Transition_InvalidPair(t *testing.T) {
	cases := &fakeCaseRepo{}
	svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)

	_, err := svc.Transition(context.Background(), model.TransitionRequest{
		CaseID:     "c1",
		ApproverID: "aud1",
		Status:     status.Success,
		Operation:  status.OpAccept,
	})
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.Empty(t, cases.lastTo)
}

func TestCaseService_Transition_EmptyIDs(t *testing.T) {
	svc := NewCaseService(&fakeCaseRepo{}, &fakeUserRepo{}, nil, nil)
	_, err := svc.Transition(context.Background(), model.TransitionRequest{
		Status: status.PendingReview, Operation: status.OpAccept,
	})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestCaseService_WishCases_KeywordAppendsContains(t *testing.T) {
	cases := &fakeCaseRepo{}
	svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)

	_, err := svc.WishCases(context.Background(), "widget", model.PageRequest{PageNum: 1, PageSize: 10})
	require.NoError(t, err)
	last := cases.lastFilters[len(cases.lastFilters)-1]
	require.Equal(t, "goods_name", last.Field)
	require.Equal(t, "contains", last.Condition)
	require.Equal(t, []any{"widget"}, last.Values)

	_, err = svc.WishCases(context.Background(), "", model.PageRequest{PageNum: 1, PageSize: 10})
	require.NoError(t, err)
	for _, f := range cases.lastFilters {
		require.NotEqual(t, "goods_name", f.Field)
	}
}

func TestCaseService_MyCases_StatusTokens(t *testing.T) {
	page := model.PageRequest{PageNum: 1, PageSize: 10}

	t.Run("all means no status predicate", func(t *testing.T) {
		cases := &fakeCaseRepo{}
		svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)
		_, err := svc.MyCases(context.Background(), "u1", FilterAll, page)
		require.NoError(t, err)
		for _, f := range cases.lastFilters {
			require.NotEqual(t, "status", f.Field)
		}
	})

	t.Run("closed expands to terminal trio", func(t *testing.T) {
		cases := &fakeCaseRepo{}
		svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)
		_, err := svc.MyCases(context.Background(), "u1", FilterFinished, page)
		require.NoError(t, err)
		last := cases.lastFilters[len(cases.lastFilters)-1]
		require.Equal(t, "status", last.Field)
		require.Equal(t, "in", last.Condition)
		require.Equal(t, finishedStatuses, last.Values)
	})

	t.Run("plain status", func(t *testing.T) {
		cases := &fakeCaseRepo{}
		svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)
		_, err := svc.MyCases(context.Background(), "u1", string(status.InProgress), page)
		require.NoError(t, err)
		last := cases.lastFilters[len(cases.lastFilters)-1]
		require.Equal(t, "eq", last.Condition)
		require.Equal(t, []any{string(status.InProgress)}, last.Values)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		cases := &fakeCaseRepo{}
		svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)
		_, err := svc.MyCases(context.Background(), "u1", "mystery", page)
		require.ErrorIs(t, err, errs.ErrInvalidState)
		require.Nil(t, cases.lastFilters)
	})

	t.Run("empty user rejected", func(t *testing.T) {
		svc := NewCaseService(&fakeCaseRepo{}, &fakeUserRepo{}, nil, nil)
		_, err := svc.MyCases(context.Background(), "", FilterAll, page)
		require.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestCaseService_LastChosen_SingleRowPage(t *testing.T) {
	cases := &fakeCaseRepo{}
	svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)

	_, err := svc.LastChosen(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.PageRequest{PageNum: 1, PageSize: 1}, cases.lastPage)
	first := cases.lastFilters[0]
	require.Equal(t, "status", first.Field)
	require.Equal(t, "neq", first.Condition)
	require.Equal(t, []any{status.PendingReview}, first.Values)
}

func TestCaseService_SuccessResults_FixedWindow(t *testing.T) {
	cases := &fakeCaseRepo{}
	svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)

	_, err := svc.SuccessResults(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.PageRequest{PageNum: 1, PageSize: 50}, cases.lastPage)
}

func TestCaseService_MarkRead_EmptyUser(t *testing.T) {
	svc := NewCaseService(&fakeCaseRepo{}, &fakeUserRepo{}, nil, nil)
	_, err := svc.MarkRead(context.Background(), "", []string{"c1"})
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestCaseService_UnreadCounts(t *testing.T) {
	cases := &fakeCaseRepo{counts: model.StatusCounts{PendingReview: 2}}
	svc := NewCaseService(cases, &fakeUserRepo{}, nil, nil)

	counts, err := svc.UnreadCounts(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", cases.unreadUser)
	require.Equal(t, int64(2), counts.PendingReview)

	_, err = svc.UnreadCounts(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrValidation)
}
