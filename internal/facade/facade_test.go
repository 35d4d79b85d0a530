package facade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/netmon"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/store/storetest"
	"github.com/verdantlabs/verdant/internal/transform"
	"github.com/verdantlabs/verdant/internal/ulid"
)

type harness struct {
	mem     *storetest.Memory
	monitor *netmon.Monitor
	facades *Facades
}

func newHarness(t *testing.T, baseURL string, online bool) *harness {
	t.Helper()

	logger := loggy.NewNoopLogger()
	mem := storetest.NewMemory()
	monitor := netmon.New(nil, time.Second, 0, logger)
	monitor.SetOnline(online)

	client := remote.NewClient(baseURL, remote.StaticTokenSource("test-token"), 2*time.Second, 1, logger)
	ic := interceptor.New(mem, monitor, logger)

	return &harness{
		mem:     mem,
		monitor: monitor,
		facades: New(mem, ic, client, monitor, 3, logger),
	}
}

func TestCreateCategoryOfflineQueues(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)

	var got *entity.Category
	h.facades.Categories.Create(context.Background(), &entity.Category{
		TemplateID: "tpl_1",
		Name:       "Water",
	}, Callbacks[*entity.Category]{
		OnSuccess: func(c *entity.Category) { got = c },
		OnError:   func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	require.NotNil(t, got)
	assert.True(t, ulid.IsTempID(got.ID))

	recs, err := h.mem.ListPending(context.Background(), store.TableCategories)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].LocalChanges)
	assert.NotEmpty(t, recs[0].IdempotencyKey)
}

func TestDeleteCategoryOfflineQueues(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	c := &entity.Category{ID: "cat_1", TemplateID: "tpl_1", Name: "Water"}
	rec, err := transform.FromRemoteCategory(c)
	require.NoError(t, err)
	require.NoError(t, h.mem.Put(ctx, store.TableCategories, rec))

	var deleted *entity.Category
	h.facades.Categories.Delete(ctx, c, Callbacks[*entity.Category]{
		OnSuccess: func(c *entity.Category) { deleted = c },
		OnError:   func(err error) { t.Fatalf("unexpected error: %v", err) },
	})
	require.NotNil(t, deleted)

	// The delete is queued for the sweep, not silently dropped
	pending, err := h.mem.ListPending(ctx, store.TableCategories)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Deleted)
	assert.Equal(t, "cat_1", pending[0].ID)
}

func TestCreateAssessmentEnforcesSingleDraft(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	first := &entity.Assessment{OrganizationID: "org_1", TemplateID: "tpl_1"}
	h.facades.Assessments.Create(ctx, first, Callbacks[*entity.Assessment]{})

	second := &entity.Assessment{OrganizationID: "org_1", TemplateID: "tpl_1"}
	var got *entity.Assessment
	h.facades.Assessments.Create(ctx, second, Callbacks[*entity.Assessment]{
		OnSuccess: func(a *entity.Assessment) { got = a },
	})
	require.NotNil(t, got)

	recs, err := h.mem.List(ctx, store.TableAssessments)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, got.ID, recs[0].ID)
}

func TestSingleDraftKeepsSubmittedAssessments(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	submitted := &entity.Assessment{
		ID:             "asm_done",
		OrganizationID: "org_1",
		Status:         entity.AssessmentStatusSubmitted,
	}
	rec, err := transform.FromRemoteAssessment(submitted)
	require.NoError(t, err)
	require.NoError(t, h.mem.Put(ctx, store.TableAssessments, rec))

	h.facades.Assessments.Create(ctx, &entity.Assessment{OrganizationID: "org_1"}, Callbacks[*entity.Assessment]{})

	recs, err := h.mem.List(ctx, store.TableAssessments)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSubmitSnapshotsResponses(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	draft := &entity.Assessment{ID: "asm_1", OrganizationID: "org_1", Status: entity.AssessmentStatusDraft}
	rec, err := transform.FromRemoteAssessment(draft)
	require.NoError(t, err)
	require.NoError(t, h.mem.Put(ctx, store.TableAssessments, rec))

	for _, qr := range []string{"qrev_1", "qrev_2"} {
		resp := &entity.Response{
			ID:                 "resp_" + qr,
			AssessmentID:       "asm_1",
			QuestionRevisionID: qr,
			Answer:             json.RawMessage(`{"value":3}`),
		}
		rr, err := transform.FromRemoteResponse(resp)
		require.NoError(t, err)
		require.NoError(t, h.mem.Put(ctx, store.TableResponses, rr))
	}

	var got *entity.Submission
	h.facades.Assessments.Submit(ctx, "asm_1", Callbacks[*entity.Submission]{
		OnSuccess: func(s *entity.Submission) { got = s },
		OnError:   func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	require.NotNil(t, got)
	assert.Equal(t, "asm_1", got.AssessmentID)
	assert.Len(t, got.Responses, 2)
	assert.Equal(t, entity.ReviewStatusUnderReview, got.ReviewStatus)
	assert.Equal(t, entity.AssessmentStatusSubmitted, got.Assessment.Status)

	// The assessment itself left the draft state
	arec, err := h.mem.Get(ctx, store.TableAssessments, "asm_1")
	require.NoError(t, err)
	a, err := transform.ToAssessment(arec)
	require.NoError(t, err)
	assert.False(t, a.IsDraft())
}

func TestSubmitRejectsNonDraft(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	done := &entity.Assessment{ID: "asm_2", Status: entity.AssessmentStatusCompleted}
	rec, err := transform.FromRemoteAssessment(done)
	require.NoError(t, err)
	require.NoError(t, h.mem.Put(ctx, store.TableAssessments, rec))

	var gotErr error
	h.facades.Assessments.Submit(ctx, "asm_2", Callbacks[*entity.Submission]{
		OnError: func(err error) { gotErr = err },
	})
	assert.ErrorIs(t, gotErr, ErrNotDraft)
}

func TestCreateRetriesExhaustOnPersistentTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL, true)

	var gotErr error
	h.facades.Categories.Create(context.Background(), &entity.Category{
		TemplateID: "tpl_1",
		Name:       "Energy",
	}, Callbacks[*entity.Category]{
		OnSuccess: func(*entity.Category) { t.Fatal("expected error callback") },
		OnError:   func(err error) { gotErr = err },
	})

	assert.ErrorIs(t, gotErr, ErrRetryExhausted)
	assert.GreaterOrEqual(t, calls, 3)

	// The record stays pending for the background sweep
	recs, err := h.mem.ListPending(context.Background(), store.TableCategories)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCreateRejectionStopsImmediately(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "name taken"})
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL, true)

	var gotErr error
	h.facades.Categories.Create(context.Background(), &entity.Category{
		TemplateID: "tpl_1",
		Name:       "Energy",
	}, Callbacks[*entity.Category]{
		OnError: func(err error) { gotErr = err },
	})

	require.Error(t, gotErr)
	var apiErr remote.APIError
	assert.True(t, errors.As(gotErr, &apiErr))
	assert.Equal(t, 1, calls)

	recs, err := h.mem.List(context.Background(), store.TableCategories)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, store.SyncStatusFailed, recs[0].SyncStatus)
}

func TestCreateConfirmedOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c entity.Category
		json.NewDecoder(r.Body).Decode(&c)
		c.ID = "cat_real"
		json.NewEncoder(w).Encode(&c)
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL, true)
	ctx := context.Background()

	var got *entity.Category
	h.facades.Categories.Create(ctx, &entity.Category{
		TemplateID: "tpl_1",
		Name:       "Waste",
	}, Callbacks[*entity.Category]{
		OnSuccess: func(c *entity.Category) { got = c },
		OnError:   func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	require.NotNil(t, got)
	assert.Equal(t, "cat_real", got.ID)

	recs, err := h.mem.List(ctx, store.TableCategories)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "cat_real", recs[0].ID)
	assert.Equal(t, store.SyncStatusSynced, recs[0].SyncStatus)
}

func TestListQuestionsLocalFirst(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	q := &entity.Question{ID: "q_1", CategoryName: "Water"}
	rec, err := transform.FromRemoteQuestion(q)
	require.NoError(t, err)
	require.NoError(t, h.mem.Put(ctx, store.TableQuestions, rec))

	query := h.facades.Questions.List(ctx)
	require.NoError(t, query.Err())
	require.Len(t, query.Data(), 1)
	assert.Equal(t, "q_1", query.Data()[0].ID)
	assert.False(t, query.Loading())
}

func TestGetOfflineMissReportsError(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)

	query := h.facades.Questions.Get(context.Background(), "q_missing")
	assert.ErrorIs(t, query.Err(), interceptor.ErrOfflineNoData)
}

func TestResponseSaveBumpsVersionOnUpdate(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1", false)
	ctx := context.Background()

	r := &entity.Response{
		ID:                 "resp_1",
		AssessmentID:       "asm_1",
		QuestionRevisionID: "qrev_1",
		Answer:             json.RawMessage(`{"value":1}`),
		Version:            1,
	}

	var got *entity.Response
	h.facades.Responses.Save(ctx, r, Callbacks[*entity.Response]{
		OnSuccess: func(r *entity.Response) { got = r },
		OnError:   func(err error) { t.Fatalf("unexpected error: %v", err) },
	})

	require.NotNil(t, got)
	assert.Equal(t, 2, got.Version)
}
