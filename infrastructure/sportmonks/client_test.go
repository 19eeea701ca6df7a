package sportmonks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"betledger/domain/entities"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const finishedFixture = `{
	"data": {
		"id": 77,
		"status": "Finished",
		"localteam_id": 1,
		"visitorteam_id": 2,
		"toss_won_team_id": 2,
		"winner_team_id": 1,
		"runs": [
			{"team_id": 1, "inning": 1, "score": 180, "wickets": 6, "overs": 20},
			{"team_id": 2, "inning": 2, "score": 150, "wickets": 10, "overs": 18.4}
		],
		"batting": [
			{"player_id": 10, "team_id": 1, "score": 64, "ball": 40, "four_x": 6, "six_x": 2, "result": {"name": "Catch Out"}, "batsman": {"fullname": "Top Order"}, "team": {"name": "Lions"}},
			{"player_id": 11, "team_id": 1, "score": 12, "ball": 7, "four_x": 1, "six_x": 0, "result": "not out", "batsman": {"fullname": "Finisher"}, "team": {"name": "Lions"}}
		],
		"bowling": null
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Options)) (*Client, *prometheus.Registry) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reg := prometheus.NewRegistry()
	opts := Options{
		BaseURL:        server.URL,
		APIToken:       "secret-token",
		Timeout:        time.Second,
		RatePerMinute:  6000,
		MaxConcurrency: 4,
		Registerer:     reg,
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewClient(opts), reg
}

func TestClient_FetchMatchFacts(t *testing.T) {
	t.Parallel()

	t.Run("normalises requested sections", func(t *testing.T) {
		t.Parallel()

		var gotQuery string
		client, reg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/fixtures/77", r.URL.Path)
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(finishedFixture))
		})

		facts, err := client.FetchMatchFacts(context.Background(), 77, entities.FamilyMatchResult.Includes())
		require.NoError(t, err)

		assert.Contains(t, gotQuery, "api_token=secret-token")
		assert.Contains(t, gotQuery, "include=runs%2Cbatting.batsman%2Cbatting.team")

		assert.True(t, facts.IsFinal())
		require.NotNil(t, facts.TossWinnerID)
		assert.Equal(t, int64(2), *facts.TossWinnerID)
		require.NotNil(t, facts.WinnerTeamID)
		assert.Equal(t, int64(1), *facts.WinnerTeamID)

		require.Len(t, facts.Runs, 2)
		require.Len(t, facts.Batting, 2)
		assert.Equal(t, "Catch Out", facts.Batting[0].Result)
		assert.Equal(t, "Top Order", facts.Batting[0].PlayerName)
		assert.Equal(t, "Lions", facts.Batting[0].TeamName)
		assert.False(t, facts.Batting[1].IsOut())
		assert.Nil(t, facts.Bowling, "bowling was not requested")

		assert.Equal(t, 1.0, testutil.ToFloat64(client.metrics.requests.WithLabelValues(outcomeOK)))
		count, err := testutil.GatherAndCount(reg, "betledger_provider_requests_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("missing section stays nil", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(finishedFixture))
		})

		facts, err := client.FetchMatchFacts(context.Background(), 77, entities.FamilyBowling.Includes())
		require.NoError(t, err)
		assert.Nil(t, facts.Bowling)
		assert.Nil(t, facts.Batting)
	})

	t.Run("empty section is known and empty", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data": {"id": 5, "status": "1st Innings", "toss_won_team_id": 0, "bowling": []}}`))
		})

		facts, err := client.FetchMatchFacts(context.Background(), 5, entities.FamilyBowling.Includes())
		require.NoError(t, err)
		assert.NotNil(t, facts.Bowling)
		assert.Empty(t, facts.Bowling)
		assert.Nil(t, facts.TossWinnerID, "zero team id means unknown")
	})

	t.Run("status codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status    int
			temporary bool
		}{
			{http.StatusNotFound, false},
			{http.StatusUnauthorized, false},
			{http.StatusTooManyRequests, true},
			{http.StatusBadGateway, true},
		}
		for _, tt := range tests {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := client.FetchMatchFacts(context.Background(), 9, entities.FamilyBatting.Includes())
			var providerErr *entities.ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.ErrorIs(t, err, entities.ErrExternalProvider)
			assert.Equal(t, tt.status, providerErr.StatusCode)
			assert.Equal(t, tt.temporary, providerErr.Temporary, "status %d", tt.status)
		}
	})

	t.Run("null data", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data": null}`))
		})

		_, err := client.FetchMatchFacts(context.Background(), 9, nil)
		assert.ErrorIs(t, err, entities.ErrExternalProvider)
		assert.False(t, entities.IsTemporary(err))
	})

	t.Run("timeout is temporary and hides the token", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, func(o *Options) { o.Timeout = 50 * time.Millisecond })
		defer close(release)

		_, err := client.FetchMatchFacts(context.Background(), 9, nil)
		require.Error(t, err)
		assert.True(t, entities.IsTemporary(err))
		assert.NotContains(t, err.Error(), "secret-token")
	})

	t.Run("identical concurrent requests are coalesced", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		gate := make(chan struct{})
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			<-gate
			_, _ = w.Write([]byte(finishedFixture))
		})

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := client.FetchMatchFacts(context.Background(), 77, entities.FamilyBatting.Includes())
				assert.NoError(t, err)
			}()
		}
		time.Sleep(100 * time.Millisecond)
		close(gate)
		wg.Wait()

		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, 4.0, testutil.ToFloat64(client.metrics.coalesced))
	})

	t.Run("a lone request is not counted as coalesced", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(finishedFixture))
		})

		for i := 0; i < 2; i++ {
			_, err := client.FetchMatchFacts(context.Background(), 77, entities.FamilyBatting.Includes())
			require.NoError(t, err)
		}
		assert.Zero(t, testutil.ToFloat64(client.metrics.coalesced))
	})
}

func TestIncludeParam(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "runs,batting.batsman,batting.team", includeParam([]entities.FactCategory{entities.FactRuns, entities.FactBatting, entities.FactBatting}))
	assert.Equal(t, "bowling.bowler,bowling.team", includeParam(entities.FamilyBowling.Includes()))
	assert.Empty(t, includeParam(nil))
	assert.False(t, strings.Contains(includeParam(nil), ","))
}
