package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/http/api"
	service "github.com/wrsmith108/love-rank-pulse-sub001/internal/app"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var testSecret = []byte("test-secret")

// newTestServer wires a fully in-memory service behind the API routes and
// seeds a small ranked population.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	svc := service.New()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	t.Cleanup(svc.Stop)

	for _, p := range []model.Player{
		{ID: "alice", Country: "SE"},
		{ID: "bob", Country: "SE"},
		{ID: "carol", Country: "DE"},
	} {
		if err := svc.RegisterPlayer(ctx, p); err != nil {
			t.Fatalf("registering %s: %v", p.ID, err)
		}
	}
	for _, m := range []model.MatchSubmission{
		{MatchID: "seed-1", PlayerA: "alice", ScoreA: 2, PlayerB: "bob", ScoreB: 0},
		{MatchID: "seed-2", PlayerA: "alice", ScoreA: 2, PlayerB: "carol", ScoreB: 0},
		{MatchID: "seed-3", PlayerA: "bob", ScoreA: 2, PlayerB: "carol", ScoreB: 0},
	} {
		if _, err := svc.SubmitMatch(ctx, m); err != nil {
			t.Fatalf("seeding match %s: %v", m.MatchID, err)
		}
	}
	if err := svc.RecalculateRanks(ctx, model.ScopeGlobal, ""); err != nil {
		t.Fatalf("seeding ranking: %v", err)
	}

	mux := http.NewServeMux()
	api.NewServer(svc, api.WithIdentitySecret(testSecret)).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return resp, buf
}

func TestLeaderboardEndpoints(t *testing.T) {
	srv := newTestServer(t)

	Convey("GET /leaderboard", t, func() {
		Convey("Returns the ranked page", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/leaderboard?page=1&limit=10", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var page model.Page
			So(json.Unmarshal(body, &page), ShouldBeNil)
			So(page.TotalPlayers, ShouldEqual, 3)
			So(page.Entries[0].PlayerID, ShouldEqual, "alice")
			So(page.Entries[0].Rank, ShouldEqual, 1)
		})

		Convey("Defaults page and limit when omitted", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/leaderboard", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var page model.Page
			So(json.Unmarshal(body, &page), ShouldBeNil)
			So(page.Page, ShouldEqual, 1)
			So(page.Limit, ShouldEqual, 20)
		})

		Convey("Rejects malformed parameters", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/leaderboard?page=abc", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard?limit=0", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard?limit=101", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard?scope=galaxy", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard?scope=country", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("GET /leaderboard/top", t, func() {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/leaderboard/top?count=2", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		var entries []model.LeaderboardEntry
		So(json.Unmarshal(body, &entries), ShouldBeNil)
		So(entries, ShouldHaveLength, 2)
		So(entries[0].PlayerID, ShouldEqual, "alice")

		resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard/top?count=0", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
	})

	Convey("GET /leaderboard/range", t, func() {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/leaderboard/range?from=2&to=3", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		var entries []model.LeaderboardEntry
		So(json.Unmarshal(body, &entries), ShouldBeNil)
		So(entries, ShouldHaveLength, 2)
		So(entries[0].Rank, ShouldEqual, 2)

		resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard/range?from=3&to=2", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

		resp, _ = doJSON(t, http.MethodGet, srv.URL+"/leaderboard/range?from=1", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
	})
}

func TestRankEndpoints(t *testing.T) {
	srv := newTestServer(t)

	Convey("GET /rank/{player_id}", t, func() {
		Convey("Returns the rank summary", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/rank/alice", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var summary model.PlayerRankSummary
			So(json.Unmarshal(body, &summary), ShouldBeNil)
			So(summary.Rank, ShouldEqual, 1)
			So(summary.TotalPlayers, ShouldEqual, 3)
		})

		Convey("An unranked player is 404", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/rank/ghost", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("GET /me/rank", t, func() {
		Convey("A valid bearer token resolves the caller", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "bob",
			}).SignedString(testSecret)
			So(err, ShouldBeNil)

			header := http.Header{}
			header.Set("Authorization", "Bearer "+token)
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/me/rank", "", header)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var summary model.PlayerRankSummary
			So(json.Unmarshal(body, &summary), ShouldBeNil)
			So(summary.PlayerID, ShouldEqual, "bob")
			So(summary.Rank, ShouldEqual, 2)
		})

		Convey("A missing token is 401", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/me/rank", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("A token signed with the wrong key is 401", func() {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": "bob",
			}).SignedString([]byte("other-secret"))
			So(err, ShouldBeNil)

			header := http.Header{}
			header.Set("Authorization", "Bearer "+token)
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/me/rank", "", header)
			So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestMatchEndpoints(t *testing.T) {
	srv := newTestServer(t)

	Convey("POST /matches", t, func() {
		Convey("Applies the result synchronously", func() {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/matches",
				`{"match_id":"m-sync","player_a":"alice","score_a":3,"player_b":"bob","score_b":1}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var result map[string]any
			So(json.Unmarshal(body, &result), ShouldBeNil)
			So(result["match_id"], ShouldEqual, "m-sync")
			So(result["outcome_a"], ShouldEqual, "win")
		})

		Convey("A replayed match id is 409", func() {
			first, _ := doJSON(t, http.MethodPost, srv.URL+"/matches",
				`{"match_id":"m-dup","player_a":"alice","score_a":3,"player_b":"bob","score_b":1}`, nil)
			So(first.StatusCode, ShouldEqual, http.StatusOK)

			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/matches",
				`{"match_id":"m-dup","player_a":"alice","score_a":0,"player_b":"bob","score_b":2}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("Invalid submissions are 400", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/matches",
				`{"match_id":"m-x","player_a":"alice","score_a":3,"player_b":"alice","score_b":1}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)

			resp, _ = doJSON(t, http.MethodPost, srv.URL+"/matches", `not json`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown player is 404", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/matches",
				`{"match_id":"m-y","player_a":"alice","score_a":3,"player_b":"ghost","score_b":1}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("POST /matches/bulk", t, func() {
		Convey("Queues a batch and reports counts", func() {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/matches/bulk",
				`[{"match_id":"b1","player_a":"alice","score_a":2,"player_b":"bob","score_b":0},
				  {"match_id":"","player_a":"alice","score_a":2,"player_b":"bob","score_b":0}]`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			var out map[string]int
			So(json.Unmarshal(body, &out), ShouldBeNil)
			So(out["accepted"], ShouldEqual, 1)
			So(out["rejected"], ShouldEqual, 1)
		})

		Convey("An empty batch is 400", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/matches/bulk", `[]`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPlayerAndAdminEndpoints(t *testing.T) {
	srv := newTestServer(t)

	Convey("POST /players", t, func() {
		Convey("Creates a player", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/players",
				`{"id":"dave","name":"Dave","country":"NO"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)
		})

		Convey("A duplicate id is 409", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/players", `{"id":"erin"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			resp, _ = doJSON(t, http.MethodPost, srv.URL+"/players", `{"id":"erin"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("A missing id is 400", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/players", `{"name":"nobody"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("DELETE /players/{id}", t, func() {
		resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/players/carol", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		Convey("An unknown player is 404", func() {
			resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/players/ghost", "", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("POST /admin/recalculate", t, func() {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/admin/recalculate", `{"scope":"global"}`, nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		Convey("A keyed scope without a key is 400", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/admin/recalculate", `{"scope":"country"}`, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMonitoringEndpoints(t *testing.T) {
	srv := newTestServer(t)

	Convey("GET /stats returns service statistics", t, func() {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/stats", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		var stats map[string]any
		So(json.Unmarshal(body, &stats), ShouldBeNil)
		So(stats["started"], ShouldEqual, true)
	})

	Convey("GET /healthz?format=json reports the cache state", t, func() {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz?format=json", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		var health map[string]any
		So(json.Unmarshal(body, &health), ShouldBeNil)
		So(health["status"], ShouldEqual, "ok")
		So(health["cacheHealthy"], ShouldEqual, true)
	})

	Convey("GET /healthz serves the metrics registry", t, func() {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", nil)
		So(resp.StatusCode, ShouldEqual, http.StatusOK)
		So(string(body), ShouldContainSubstring, "rankpulse")
	})
}
