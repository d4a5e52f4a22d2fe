package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/markandre0425/Main-Page-sub000/internal/adapters/http/api"
	repository "github.com/markandre0425/Main-Page-sub000/internal/adapters/repository"
	service "github.com/markandre0425/Main-Page-sub000/internal/app"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/model"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
	"github.com/markandre0425/Main-Page-sub000/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records calls and returns canned results.
type mockDependencies struct {
	submitted   []model.Submission
	gameKey     string
	limit       int
	entry       types.Entry
	entries     []types.Entry
	personal    types.PersonalStats
	player      model.Player
	err         error
	pingErr     error
	backendName string
}

func (m *mockDependencies) Submit(_ context.Context, gameKey string, sub model.Submission) (types.Entry, error) {
	m.gameKey = gameKey
	m.submitted = append(m.submitted, sub)
	if m.err != nil {
		return types.Entry{}, m.err
	}
	return m.entry, nil
}

func (m *mockDependencies) Leaderboard(_ context.Context, gameKey string, limit int) ([]types.Entry, error) {
	m.gameKey = gameKey
	m.limit = limit
	return m.entries, m.err
}

func (m *mockDependencies) Personal(_ context.Context, gameKey string, p model.Player) (types.PersonalStats, error) {
	m.gameKey = gameKey
	m.player = p
	return m.personal, m.err
}

func (m *mockDependencies) Ping(context.Context) error { return m.pingErr }
func (m *mockDependencies) Backend() string            { return m.backendName }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies, opts ...api.ServerOption) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// httpRequestCount reads firesafe_leaderboard_http_requests_total for one endpoint and status.
func httpRequestCount(endpoint, status string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, f := range families {
		if f.GetName() != "firesafe_leaderboard_http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["endpoint"] == endpoint && labels["status_code"] == status {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{backendName: "memory"}
		mux := newMux(deps)

		Convey("When calling /healthz", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then it reports ok with the backend", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
				So(w.Body.String(), ShouldContainSubstring, `"backend":"memory"`)
			})
		})

		Convey("When the store cannot be reached", func() {
			deps.pingErr = errors.New("connection refused")
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then /healthz returns 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "connection refused")
			})
		})

		Convey("When calling /stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then it returns the provider's stats", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When calling /metrics", func() {
			w := do(mux, http.MethodGet, "/metrics", "")

			Convey("Then it serves the Prometheus exposition", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "go_build_info")
			})
		})

		Convey("When using the wrong method on the leaderboard", func() {
			w := do(mux, http.MethodDelete, "/api/leaderboard/maze", "")

			Convey("Then the mux rejects it", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestLeaderboardHandler_Post(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		deps := &mockDependencies{entry: types.Entry{ID: 1, GameKey: "maze", Username: "Sparky", Score: 2550}}
		mux := newMux(deps)

		Convey("When a valid body is posted", func() {
			w := do(mux, http.MethodPost, "/api/leaderboard/maze",
				`{"username":"Sparky","timeMs":45000,"objectivesCollected":3}`)

			Convey("Then it returns 201 with the stored entry", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.gameKey, ShouldEqual, "maze")
				So(deps.submitted, ShouldHaveLength, 1)
				So(*deps.submitted[0].TimeMs, ShouldEqual, 45000)
				So(deps.submitted[0].UserID, ShouldBeNil)

				var got types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got.Score, ShouldEqual, 2550)
			})
		})

		Convey("When a registered player posts", func() {
			w := do(mux, http.MethodPost, "/api/leaderboard/maze",
				`{"username":"Blaze","userId":42,"timeMs":0,"objectivesCollected":0}`)

			Convey("Then the user id is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(*deps.submitted[0].UserID, ShouldEqual, 42)
				So(*deps.submitted[0].ObjectivesCollected, ShouldEqual, 0)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/api/leaderboard/maze", `{"username":`)

			Convey("Then it returns 400 without calling the service", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When data follows the JSON object", func() {
			garbage := do(mux, http.MethodPost, "/api/leaderboard/maze",
				`{"username":"A","timeMs":1,"objectivesCollected":1} garbage`)
			twice := do(mux, http.MethodPost, "/api/leaderboard/maze",
				`{"username":"A","timeMs":1,"objectivesCollected":1}{"username":"B"}`)

			Convey("Then it returns 400 without calling the service", func() {
				So(garbage.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(garbage)["message"], ShouldContainSubstring, "unexpected data after JSON body")
				So(twice.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When only whitespace follows the JSON object", func() {
			w := do(mux, http.MethodPost, "/api/leaderboard/maze",
				"{\"username\":\"A\",\"timeMs\":1,\"objectivesCollected\":1}\n  \n")

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
			})
		})

		Convey("When a number field holds a string", func() {
			w := do(mux, http.MethodPost, "/api/leaderboard/maze",
				`{"username":"A","timeMs":"fast","objectivesCollected":1}`)

			Convey("Then it returns 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service rejects the submission", func() {
			deps.err = errors.Join(model.ErrInvalidSubmission, errors.New("timeMs is required"))
			w := do(mux, http.MethodPost, "/api/leaderboard/maze", `{"username":"A"}`)

			Convey("Then it returns 400 with the reason", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "timeMs is required")
			})
		})

		Convey("When storage fails", func() {
			deps.err = errors.Join(repository.ErrStorage, errors.New("relation does not exist"))
			w := do(mux, http.MethodPost, "/api/leaderboard/maze",
				`{"username":"A","timeMs":1,"objectivesCollected":1}`)

			Convey("Then it returns 500 without leaking the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldNotContainSubstring, "relation")
			})
		})
	})
}

func TestLeaderboardHandler_Get(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When the board is empty", func() {
			w := do(mux, http.MethodGet, "/api/leaderboard/maze?limit=10", "")

			Convey("Then it returns an empty JSON array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
				So(deps.limit, ShouldEqual, 10)
			})
		})

		Convey("When the limit is not a number", func() {
			w := do(mux, http.MethodGet, "/api/leaderboard/maze?limit=lots", "")

			Convey("Then the default is requested", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.limit, ShouldEqual, 0)
			})
		})

		Convey("When entries exist", func() {
			deps.entries = []types.Entry{{ID: 2, Username: "B"}, {ID: 1, Username: "A"}}
			w := do(mux, http.MethodGet, "/api/leaderboard/escape-plan", "")

			Convey("Then they are returned in service order", func() {
				var got []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Username, ShouldEqual, "B")
				So(deps.gameKey, ShouldEqual, "escape-plan")
			})
		})
	})
}

func TestPersonalHandler(t *testing.T) {
	Convey("Given a personal handler", t, func() {
		deps := &mockDependencies{personal: types.PersonalStats{GameKey: "maze", Rank: 3, Submissions: 2}}
		mux := newMux(deps)

		Convey("When looking up by user id", func() {
			w := do(mux, http.MethodGet, "/api/leaderboard/maze/personal?userId=42", "")

			Convey("Then the id is parsed and stats returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(*deps.player.UserID, ShouldEqual, 42)
				So(w.Body.String(), ShouldContainSubstring, `"rank":3`)
			})
		})

		Convey("When the user id is not a number", func() {
			w := do(mux, http.MethodGet, "/api/leaderboard/maze/personal?userId=abc", "")

			Convey("Then it returns 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the player has no entries", func() {
			deps.err = model.ErrPlayerNotFound
			w := do(mux, http.MethodGet, "/api/leaderboard/maze/personal?username=Ash", "")

			Convey("Then it returns 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w)["code"], ShouldEqual, "not_found")
				So(deps.player.Username, ShouldEqual, "Ash")
			})
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a server with a one-token submit limiter", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, api.WithSubmitLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
		body := `{"username":"A","timeMs":1,"objectivesCollected":1}`

		Convey("When two submissions arrive back to back", func() {
			first := do(mux, http.MethodPost, "/api/leaderboard/maze", body)
			second := do(mux, http.MethodPost, "/api/leaderboard/maze", body)

			Convey("Then the second is turned away with 429", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(second)["code"], ShouldEqual, "rate_limit")
				So(deps.submitted, ShouldHaveLength, 1)
			})

			Convey("And the throttled request is counted under the submit endpoint", func() {
				So(httpRequestCount("leaderboard_post", "429"), ShouldBeGreaterThanOrEqualTo, 1)
			})

			Convey("And reads are not limited", func() {
				So(do(mux, http.MethodGet, "/api/leaderboard/maze", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the request id and logging middleware", t, func() {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = api.RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
		h := api.RequestIDMiddleware(api.LoggingMiddleware(inner, logger.Nop()))

		Convey("When no id is supplied", func() {
			w := do(h, http.MethodGet, "/anything", "")

			Convey("Then one is generated and echoed", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(seen, ShouldNotBeEmpty)
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, seen)
			})
		})

		Convey("When an id is supplied", func() {
			req := httptest.NewRequest(http.MethodGet, "/anything", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is reused", func() {
				So(seen, ShouldEqual, "abc-123")
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
			})
		})
	})

	Convey("Given the timeout middleware", t, func() {
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})
		h := api.TimeoutMiddleware(slow, 10*time.Millisecond)

		Convey("When the handler overruns", func() {
			w := do(h, http.MethodGet, "/slow", "")

			Convey("Then a 503 timeout body is written", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, `"code":"timeout"`)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			})
		})

		Convey("When a fast handler sets its own content type", func() {
			page := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html></html>"))
			})
			w := do(api.TimeoutMiddleware(page, time.Second), http.MethodGet, "/page", "")

			Convey("Then it is left alone", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
			})
		})
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given the API over a real service and memory store", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithLogger(logger.Nop()), service.WithMaxLimit(100))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		server := api.NewServer(svc, svc)
		mux := http.NewServeMux()
		server.Register(ctx, mux)

		Convey("When a slow run with more objectives and a fast run are posted", func() {
			a := do(mux, http.MethodPost, "/api/leaderboard/escape-plan", `{"username":"A","timeMs":45000,"objectivesCollected":3}`)
			b := do(mux, http.MethodPost, "/api/leaderboard/escape-plan", `{"username":"B","timeMs":30000,"objectivesCollected":1}`)
			So(a.Code, ShouldEqual, http.StatusCreated)
			So(b.Code, ShouldEqual, http.StatusCreated)

			w := do(mux, http.MethodGet, "/api/leaderboard/escape-plan?limit=10", "")

			Convey("Then the faster run is listed first", func() {
				var got []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Username, ShouldEqual, "B")
				So(got[0].Score, ShouldEqual, 700)
				So(got[1].Score, ShouldEqual, 2550)
			})

			Convey("And the guest can see their own standing", func() {
				p := do(mux, http.MethodGet, "/api/leaderboard/escape-plan/personal?username=A", "")
				So(p.Code, ShouldEqual, http.StatusOK)
				So(p.Body.String(), ShouldContainSubstring, `"rank":2`)
			})
		})

		Convey("When a negative time is posted", func() {
			w := do(mux, http.MethodPost, "/api/leaderboard/maze", `{"username":"A","timeMs":-5,"objectivesCollected":1}`)

			Convey("Then it is rejected and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				board := do(mux, http.MethodGet, "/api/leaderboard/maze", "")
				So(strings.TrimSpace(board.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When a board is asked for beyond the cap", func() {
			for i := 0; i < 120; i++ {
				do(mux, http.MethodPost, "/api/leaderboard/crossword", `{"username":"kid","timeMs":1000,"objectivesCollected":1}`)
			}
			w := do(mux, http.MethodGet, "/api/leaderboard/crossword?limit=500", "")

			Convey("Then at most 100 entries come back", func() {
				var got []types.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 100)
			})
		})
	})
}
