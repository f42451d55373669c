package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchids/queue-dashboard/internal/domain"
)

func TestListAllJobsSortedAcrossQueues(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t1.Add(2 * time.Hour)

	eng := newFakeEngine()
	eng.queues = []domain.Queue{{ID: "q1", Name: "One"}, {ID: "q2", Name: "Two"}, {ID: "q3", Name: "Three"}}
	eng.items["q1"] = []domain.Job{{ID: "j1", QueueID: "q1", CreatedAt: t1}}
	eng.items["q2"] = []domain.Job{{ID: "j2", QueueID: "q2", CreatedAt: t2}}
	eng.items["q3"] = []domain.Job{{ID: "j3", QueueID: "q3", CreatedAt: t3}}

	router := newRouter(eng)
	rec := doJSON(t, router, http.MethodGet, "/api/jobs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "j3", jobs[0].ID)
	assert.Equal(t, "j2", jobs[1].ID)
	assert.Equal(t, "Two", jobs[1].QueueName)
}

func TestListAllJobsDegraded(t *testing.T) {
	router := newRouter(nil)

	rec := doJSON(t, router, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecentActivitySurvivesQueueFailure(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	eng := newFakeEngine()
	for i, id := range []string{"q1", "q2", "q3", "q4", "q5"} {
		eng.queues = append(eng.queues, domain.Queue{ID: id, Name: id})
		eng.items[id] = []domain.Job{{
			ID:        "j-" + id,
			QueueID:   id,
			Status:    domain.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}}
	}
	eng.itemsErr["q2"] = errors.New("connection reset")

	router := newRouter(eng)
	rec := doJSON(t, router, http.MethodGet, "/api/activity/recent", "")
	require.Equal(t, http.StatusOK, rec.Code, "a single queue failure is never surfaced")

	var activity []domain.ActivityItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activity))
	require.Len(t, activity, 4)
	for i := 1; i < len(activity); i++ {
		assert.False(t, activity[i].Timestamp.After(activity[i-1].Timestamp))
	}
}

func TestRecentActivityDegraded(t *testing.T) {
	router := newRouter(nil)

	rec := doJSON(t, router, http.MethodGet, "/api/activity/recent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
