package adsapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:    srv.URL + "/",
		APIKey:     "secret",
		Headers:    map[string]string{"X-Client": "housing"},
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
}

func TestListAdsSendsHeadersAndUnwrapsBody(t *testing.T) {
	var gotKey, gotClient, gotTrace string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotClient = r.Header.Get("X-Client")
		gotTrace = r.Header.Get("X-Trace-ID")
		assert.Equal(t, "/ads", r.URL.Path)
		_, _ = io.WriteString(w, `{"statusCode":200,"body":"[{\"FundaId\":1,\"Address\":\"A\"},{\"Address\":\"no id\"}]"}`)
	}))

	ctx := logging.WithTraceID(context.Background(), "trace-1")
	listings, err := c.ListAds(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "1", listings[0].ID)
	assert.False(t, listings[0].FetchedAt.IsZero())

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "housing", gotClient)
	assert.Equal(t, "trace-1", gotTrace)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))

	listings, err := c.ListAds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"missing"}`)
	}))

	_, err := c.GetAd(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "/ads/42", apiErr.Path)
	assert.Contains(t, apiErr.Error(), "missing")

	assert.Equal(t, apperr.NotFound, apperr.KindOf(Classify("GetAd", "Failed to load property", err)))
}

func TestDoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.AddComment(context.Background(), "42", models.NewComment{CreatedBy: "Ana", Description: "hi"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
}

func TestClassifyNotFoundNamesTheResource(t *testing.T) {
	err := &APIError{Method: http.MethodGet, Path: "/ads/42/comments", StatusCode: http.StatusNotFound}

	got := Classify("ListComments", "Failed to load comments", err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(got))
	assert.Equal(t, "Failed to load comments: not found", apperr.Message(got))

	got = ClassifyAd("GetAd", "Failed to load property", err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(got))
	assert.Equal(t, MsgPropertyNotFound, apperr.Message(got))

	assert.Equal(t, apperr.Remote, apperr.KindOf(Classify("ListAds", "Failed to load listings", errors.New("boom"))))
}

func TestGetAdPicksFromCollection(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"FundaId":1,"Address":"A"},{"FundaId":2,"Address":"B"}]`)
	}))

	l, err := c.GetAd(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "B", l.Name)

	_, err = c.GetAd(context.Background(), "3")
	assert.True(t, IsNotFound(err))
}

func TestCircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:          srv.URL,
		MaxRetries:       1,
		RetryDelay:       time.Millisecond,
		BreakerThreshold: 2,
		BreakerReset:     time.Hour,
	}, zerolog.Nop())

	_, err := c.ListAds(context.Background())
	require.Error(t, err)
	assert.True(t, c.BreakerStatus().Open)

	_, err = c.ListAds(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, apperr.Remote, apperr.KindOf(Classify("ListAds", "Failed to load listings", err)))
}

func TestUpdateAdSendsBothStatusCasings(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/ads/7", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.UpdateAd(context.Background(), "7", AdUpdate{Status: ""}))
	assert.Equal(t, "", got["Status"])
	assert.Equal(t, "", got["status"])
	v, ok := got["viewDate"]
	assert.True(t, ok, "viewDate must be sent even when cleared")
	assert.Nil(t, v)

	date := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	require.NoError(t, c.UpdateAd(context.Background(), "7", AdUpdate{Status: models.StatusViewBooked, ViewDate: &date}))
	assert.Equal(t, "View booked", got["status"])
	assert.Equal(t, "2024-03-01T14:00:00Z", got["viewDate"])
}

func TestCreateAd(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, c.CreateAd(context.Background(), "43123456", nil))
	assert.Equal(t, "43123456", got["FundaId"])
	assert.Nil(t, got["viewDate"])
}

func TestAddComment(t *testing.T) {
	var got models.NewComment
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ads/9/comments", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))

	err := c.AddComment(context.Background(), "9", models.NewComment{
		CreatedBy:       "Ana",
		Description:     "nice garden",
		ParentCommentID: "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "9", got.AdID)
	assert.Equal(t, "c1", got.ParentCommentID)
}

func TestDeletePictureRejectsPrimary(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	err := c.DeletePicture(context.Background(), "1", models.PrimaryPictureID)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Zero(t, calls.Load())
}

func TestDeleteAllPicturesReportsPartialFailure(t *testing.T) {
	var (
		mu      sync.Mutex
		deleted []string
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `[
				{"PictureId":"first","PictureUrl":"https://x/0.jpg","isFirstPhoto":true},
				{"PictureId":"a","PictureUrl":"https://x/1.jpg"},
				{"PictureId":"b","PictureUrl":"https://x/2.jpg"},
				{"PictureId":"c","PictureUrl":"https://x/3.jpg"}
			]`)
		case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/b"):
			w.WriteHeader(http.StatusBadRequest)
		default:
			mu.Lock()
			deleted = append(deleted, r.URL.Path)
			mu.Unlock()
		}
	}))

	n, err := c.DeleteAllPictures(context.Background(), "5")
	assert.Equal(t, 2, n)

	var bulk *BulkDeleteError
	require.True(t, errors.As(err, &bulk))
	assert.Len(t, bulk.Failed, 1)
	assert.Contains(t, bulk.Failed, "b")
	assert.ElementsMatch(t, []string{"/ads/5/pictures/a", "/ads/5/pictures/c"}, deleted)
}

func TestContextCancelStopsRetries(t *testing.T) {
	c := NewClient(Config{
		BaseURL:    "http://127.0.0.1:1",
		MaxRetries: 5,
		RetryDelay: time.Hour,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.ListAds(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
