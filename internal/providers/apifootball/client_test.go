package apifootball

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/cache"
	"github.com/gregleo12/spooky-football-engine/internal/providers/guard"
)

const fixturesBody = `{
	"get": "fixtures",
	"results": 2,
	"paging": {"current": 1, "total": 1},
	"response": [
		{
			"fixture": {"id": 1035037, "date": "2024-08-16T19:00:00+00:00", "status": {"short": "FT", "elapsed": 90}},
			"teams": {"home": {"id": 33, "name": "Manchester United"}, "away": {"id": 36, "name": "Fulham"}},
			"goals": {"home": 1, "away": 0}
		},
		{
			"fixture": {"id": 1035380, "date": "2025-05-25T15:00:00+00:00", "status": {"short": "NS", "elapsed": null}},
			"teams": {"home": {"id": 40, "name": "Liverpool"}, "away": {"id": 42, "name": "Arsenal"}},
			"goals": {"home": null, "away": null}
		}
	]
}`

const standingsBody = `{
	"get": "standings",
	"results": 1,
	"paging": {"current": 1, "total": 1},
	"response": [
		{
			"league": {
				"id": 39,
				"name": "Premier League",
				"season": 2024,
				"standings": [[
					{
						"rank": 1,
						"team": {"id": 40, "name": "Liverpool"},
						"points": 84,
						"goalsDiff": 45,
						"form": "WWDWW",
						"all": {"played": 38, "win": 25, "draw": 9, "lose": 4, "goals": {"for": 86, "against": 41}},
						"home": {"played": 19, "win": 14, "draw": 4, "lose": 1, "goals": {"for": 49, "against": 20}},
						"away": {"played": 19, "win": 11, "draw": 5, "lose": 3, "goals": {"for": 37, "against": 21}}
					},
					{
						"rank": 2,
						"team": {"id": 42, "name": "Arsenal"},
						"points": 74,
						"goalsDiff": 35,
						"form": "DWWDL",
						"all": {"played": 38, "win": 20, "draw": 14, "lose": 4, "goals": {"for": 69, "against": 34}},
						"home": {"played": 19, "win": 11, "draw": 6, "lose": 2, "goals": {"for": 35, "against": 16}},
						"away": {"played": 19, "win": 9, "draw": 8, "lose": 2, "goals": {"for": 34, "against": 18}}
					}
				]]
			}
		}
	]
}`

const playersPage1 = `{
	"get": "players",
	"results": 1,
	"paging": {"current": 1, "total": 2},
	"response": [
		{
			"player": {"id": 306, "name": "Mohamed Salah", "age": 32},
			"statistics": [{"games": {"appearences": 36, "minutes": 3112, "position": "Attacker"}, "goals": {"total": 28, "assists": 18}}]
		}
	]
}`

const playersPage2 = `{
	"get": "players",
	"results": 1,
	"paging": {"current": 2, "total": 2},
	"response": [
		{
			"player": {"id": 1100, "name": "Alexis Mac Allister", "age": 26},
			"statistics": [{"games": {"appearences": 33, "minutes": 2541, "position": "Midfielder"}, "goals": {"total": 5, "assists": 4}}]
		}
	]
}`

const injuriesBody = `{
	"get": "injuries",
	"results": 1,
	"paging": {"current": 1, "total": 1},
	"response": [
		{
			"player": {"id": 2489, "name": "Tyrick Mitchell", "type": "Missing Fixture", "reason": "Knee Injury"},
			"team": {"id": 52, "name": "Crystal Palace"}
		}
	]
}`

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Host:        "test.local",
		RPS:         1000,
		Burst:       1000,
		DailyBudget: 1000,
		TTLSecs:     60,
		MaxRetries:  0,
		BackoffMS:   config.BackoffConfig{Base: 1, Max: 5},
		Circuit:     config.CircuitConfig{FailureThreshold: 100, SuccessThreshold: 1, TimeoutMS: 2000},
		Enabled:     true,
		BaseURL:     baseURL,
		APIKeyEnv:   "TEST_FOOTBALL_KEY",
		AuthHeader:  "x-apisports-key",
		MaxPerPage:  50,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	t.Setenv("TEST_FOOTBALL_KEY", "test-key-123")

	cfg := testProviderConfig(baseURL)
	global := config.GlobalConfig{MaxConcurrentPerHost: 5, UserAgent: "spooky-football-engine/1.0"}
	g := guard.New(Name, cfg, config.BudgetConfig{WarnThreshold: 0.8, ResetHour: 0}, cache.NewMemory())

	client, err := New(cfg, global, g)
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_FOOTBALL_KEY", "")

	cfg := testProviderConfig("http://test.local")
	_, err := New(cfg, config.GlobalConfig{}, nil)

	require.Error(t, err)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	assert.Contains(t, err.Error(), "TEST_FOOTBALL_KEY")
}

func TestFixturesDecodesResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, "39", r.URL.Query().Get("league"))
		assert.Equal(t, "2024", r.URL.Query().Get("season"))
		w.Write([]byte(fixturesBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	fixtures, err := client.Fixtures(context.Background(), 39, "2024")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	finished := fixtures[0]
	assert.Equal(t, int64(1035037), finished.Fixture.ID)
	assert.True(t, finished.Finished())
	assert.Equal(t, "Manchester United", finished.Teams.Home.Name)
	assert.Equal(t, int64(36), finished.Teams.Away.ID)
	require.NotNil(t, finished.Goals.Home)
	assert.Equal(t, 1, *finished.Goals.Home)
	assert.Equal(t, 2024, finished.Fixture.Date.Year())

	upcoming := fixtures[1]
	assert.False(t, upcoming.Finished())
	assert.Nil(t, upcoming.Goals.Home)
	assert.Nil(t, upcoming.Goals.Away)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFixturesServedFromCacheOnRepeat(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(fixturesBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Fixtures(context.Background(), 39, "2024")
	require.NoError(t, err)

	again, err := client.Fixtures(context.Background(), 39, "2024")
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientSendsAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key-123", r.Header.Get("x-apisports-key"))
		assert.Equal(t, "spooky-football-engine/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(fixturesBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Fixtures(context.Background(), 39, "2024")
	require.NoError(t, err)
}

func TestStandingsUnwrapsTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/standings", r.URL.Path)
		w.Write([]byte(standingsBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	table, err := client.Standings(context.Background(), 39, "2024")
	require.NoError(t, err)
	require.Len(t, table, 2)

	leader := table[0]
	assert.Equal(t, 1, leader.Rank)
	assert.Equal(t, "Liverpool", leader.Team.Name)
	assert.Equal(t, 84, leader.Points)
	assert.Equal(t, 38, leader.All.Played)
	assert.Equal(t, 86, leader.All.Goals.For)
	assert.Equal(t, 41, leader.All.Goals.Against)
	assert.Equal(t, 2, table[1].Rank)
}

func TestStandingsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"get": "standings", "results": 0, "paging": {"current": 1, "total": 1}, "response": []}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	table, err := client.Standings(context.Background(), 999, "2024")
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestTeamsDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams", r.URL.Path)
		w.Write([]byte(`{
			"get": "teams",
			"results": 1,
			"paging": {"current": 1, "total": 1},
			"response": [
				{
					"team": {"id": 40, "name": "Liverpool", "code": "LIV", "country": "England", "founded": 1892, "logo": "https://media.api-sports.io/football/teams/40.png"},
					"venue": {"name": "Anfield", "city": "Liverpool", "capacity": 55212}
				}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	teams, err := client.Teams(context.Background(), 39, "2024")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Liverpool", teams[0].Team.Name)
	assert.Equal(t, "England", teams[0].Team.Country)
	assert.Equal(t, 1892, teams[0].Team.Founded)
	assert.Equal(t, "Anfield", teams[0].Venue.Name)
	assert.Equal(t, 55212, teams[0].Venue.Capacity)
}

func TestPlayersFollowsPaging(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/players", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(playersPage2))
			return
		}
		w.Write([]byte(playersPage1))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	players, err := client.Players(context.Background(), 40, "2024")
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Mohamed Salah", players[0].Player.Name)
	assert.Equal(t, 36, players[0].Statistics[0].Games.Appearances)
	assert.Equal(t, 28, players[0].Statistics[0].Goals.Total)
	assert.Equal(t, 18, players[0].Statistics[0].Goals.Assists)
	assert.Equal(t, "Alexis Mac Allister", players[1].Player.Name)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestInjuriesDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/injuries", r.URL.Path)
		assert.Equal(t, "52", r.URL.Query().Get("team"))
		w.Write([]byte(injuriesBody))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	injuries, err := client.Injuries(context.Background(), 52, "2024")
	require.NoError(t, err)
	require.Len(t, injuries, 1)
	assert.Equal(t, "Tyrick Mitchell", injuries[0].Player.Name)
	assert.Equal(t, "Missing Fixture", injuries[0].Player.Type)
	assert.Equal(t, "Knee Injury", injuries[0].Player.Reason)
}

func TestEnvelopeAuthErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"get": "fixtures", "errors": {"token": "Error/Missing application key."}, "results": 0, "response": []}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Fixtures(context.Background(), 39, "2024")
	require.Error(t, err)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(err))
	assert.Contains(t, err.Error(), "token")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Error bodies must not poison the cache.
	_, err = client.Fixtures(context.Background(), 39, "2024")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEnvelopeQuotaErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"get": "fixtures", "errors": {"requests": "You have reached the request limit for the day."}, "results": 0, "response": []}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.Fixtures(context.Background(), 39, "2024")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEnvelopeError(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "empty array errors",
			body:       `{"errors": [], "response": []}`,
			wantStatus: 0,
		},
		{
			name:       "missing errors field",
			body:       `{"response": []}`,
			wantStatus: 0,
		},
		{
			name:       "auth error",
			body:       `{"errors": {"token": "Error/Missing application key."}}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "rate limit error",
			body:       `{"errors": {"rateLimit": "Too many requests per minute."}}`,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "daily quota error",
			body:       `{"errors": {"requests": "Request limit reached."}}`,
			wantStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := envelopeError([]byte(tt.body))
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var httpErr *guard.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.wantStatus, httpErr.Status)
		})
	}
}

func TestPageCap(t *testing.T) {
	client := &Client{cfg: config.ProviderConfig{MaxPerPage: 50}}
	assert.Equal(t, 5, client.pageCap())

	client.cfg.MaxPerPage = 0
	assert.Equal(t, 1, client.pageCap())
}
