// File: internal/services/tools/tools_test.go
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyra-app/calyra/internal/domain"
)

func TestRegistry_LookupAndOrder(t *testing.T) {
	registry := NewRegistry(
		NewWeatherTool(""),
		Descriptor{Name: "custom", SideEffectFree: true},
	)

	d, err := registry.Get("getWeather")
	require.NoError(t, err)
	assert.True(t, d.SideEffectFree)

	_, err = registry.Get("nope")
	assert.ErrorIs(t, err, ErrToolNotFound)

	descriptors := registry.Descriptors()
	require.Len(t, descriptors, 2)
	assert.Equal(t, "getWeather", descriptors[0].Name)
	assert.Equal(t, "custom", descriptors[1].Name)
}

func TestWeatherTool_QueriesUpstream(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current": {"temperature_2m": 21.5}}`))
	}))
	defer server.Close()

	tool := NewWeatherTool(server.URL)
	out, err := tool.Execute(context.Background(), Invocation{
		UserID: 1,
		Input:  json.RawMessage(`{"latitude": 48.8566, "longitude": 2.3522}`),
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "temperature_2m")
	assert.Contains(t, gotQuery, "latitude=48.8566")
	assert.Contains(t, gotQuery, "longitude=2.3522")
}

func TestWeatherTool_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tool := NewWeatherTool(server.URL)
	_, err := tool.Execute(context.Background(), Invocation{Input: json.RawMessage(`{"latitude": 1, "longitude": 2}`)})
	require.Error(t, err)
}

type fakeGoalRepo struct {
	created []*domain.Goal
	err     error
}

func (r *fakeGoalRepo) Create(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	if r.err != nil {
		return nil, r.err
	}
	g.ID = uint(len(r.created) + 1)
	r.created = append(r.created, g)
	return g, nil
}

func TestCreateGoalTool_WritesThroughRepository(t *testing.T) {
	repo := &fakeGoalRepo{}
	tool := NewCreateGoalTool(repo)
	assert.False(t, tool.SideEffectFree)

	out, err := tool.Execute(context.Background(), Invocation{
		UserID: 7,
		Input:  json.RawMessage(`{"title": "Run a marathon", "targetDate": "2026-12-01"}`),
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, uint(7), repo.created[0].UserID)
	assert.Equal(t, "Run a marathon", repo.created[0].Title)
	assert.Contains(t, string(out), "Run a marathon")
}

func TestCreateGoalTool_RequiresTitle(t *testing.T) {
	tool := NewCreateGoalTool(&fakeGoalRepo{})

	_, err := tool.Execute(context.Background(), Invocation{Input: json.RawMessage(`{"title": "  "}`)})
	require.Error(t, err)

	_, err = tool.Execute(context.Background(), Invocation{Input: json.RawMessage(`not json`)})
	require.Error(t, err)
}
