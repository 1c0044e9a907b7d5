package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abrezinsky/tabulator/internal/handlers"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/metrics"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/repository/mock"
	"github.com/abrezinsky/tabulator/internal/services"
	"github.com/abrezinsky/tabulator/internal/testutil"
)

// testSetup creates all the dependencies needed for testing handlers
type testSetup struct {
	repo     repository.FullRepository
	handlers *handlers.Handlers
	router   chi.Router
	t        *testing.T
}

func buildServices(repo repository.FullRepository, m *metrics.Metrics) handlers.Services {
	log := logger.New()
	settings := services.NewSettingsService(log, repo)
	return handlers.Services{
		Event:      services.NewEventService(log, repo),
		Contestant: services.NewContestantService(log, repo),
		Judge:      services.NewJudgeService(log, repo, settings),
		Scoring:    services.NewScoringService(log, repo, m),
		Ranking:    services.NewRankingService(log, repo),
		Rounds:     services.NewRoundService(log, repo, m),
		Settings:   settings,
	}
}

// newTestSetup creates a new test setup with in-memory repository
func newTestSetup(t *testing.T) *testSetup {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	h := handlers.NewForTesting(buildServices(repo, nil))
	return &testSetup{repo: repo, handlers: h, router: h.Router(), t: t}
}

// newTestSetupWithMockRepo creates a test setup with a mock repository for error injection
func newTestSetupWithMockRepo(t *testing.T) (*testSetup, *mock.Repository) {
	t.Helper()
	mockRepo := mock.NewRepository(testutil.NewTestRepository(t))
	h := handlers.NewForTesting(buildServices(mockRepo, nil))
	return &testSetup{repo: mockRepo, handlers: h, router: h.Router(), t: t}, mockRepo
}

func (s *testSetup) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// result decodes a mutation envelope and fails unless it has the wanted status
func (s *testSetup) result(rec *httptest.ResponseRecorder, wantStatus int, data any) {
	s.t.Helper()
	if rec.Code != wantStatus {
		s.t.Fatalf("expected status %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("failed to decode envelope: %v", err)
	}
	if !env.Success {
		s.t.Fatalf("expected success, got message %q", env.Message)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			s.t.Fatalf("failed to decode data: %v", err)
		}
	}
}

func (s *testSetup) decode(rec *httptest.ResponseRecorder, target any) {
	s.t.Helper()
	if rec.Code != http.StatusOK {
		s.t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		s.t.Fatalf("failed to decode body: %v", err)
	}
}

func TestQuizFlow(t *testing.T) {
	s := newTestSetup(t)

	var ev models.Event
	s.result(s.do(http.MethodPost, "/api/events", `{"name":"Science Quiz Bee","type":"quiz_bee"}`), http.StatusCreated, &ev)

	var easy, average models.Segment
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/segments", ev.ID),
		`{"name":"Easy","order_index":1,"qualifier_limit":1,"points_per_question":1,"total_questions":2}`), http.StatusCreated, &easy)
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/segments", ev.ID),
		`{"name":"Average","order_index":2,"points_per_question":2,"total_questions":2}`), http.StatusCreated, &average)

	var teamA, teamB models.Contestant
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/contestants", ev.ID), `{"name":"Team A","division":"Teams"}`), http.StatusCreated, &teamA)
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/contestants", ev.ID), `{"name":"Team B","division":"Teams"}`), http.StatusCreated, &teamB)
	if teamA.CandidateNumber != 1 || teamB.CandidateNumber != 2 {
		t.Errorf("expected auto numbering 1,2, got %d,%d", teamA.CandidateNumber, teamB.CandidateNumber)
	}

	var tab models.Judge
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/judges", ev.ID), `{"name":"Tab 1","role":"tabulator"}`), http.StatusCreated, &tab)

	// answers are refused until the round is live
	answer := func(c models.Contestant, q int, correct bool) *httptest.ResponseRecorder {
		return s.do(http.MethodPost, "/api/access/"+tab.AccessCode+"/answers",
			fmt.Sprintf(`{"contestant_id":%d,"segment_id":%d,"question_number":%d,"is_correct":%v}`, c.ID, easy.ID, q, correct))
	}
	if rec := answer(teamA, 1, true); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before activation, got %d: %s", rec.Code, rec.Body.String())
	}

	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/active-segment", ev.ID), fmt.Sprintf(`{"segment_id":%d}`, easy.ID)), http.StatusOK, nil)

	var access handlers.AccessResponse
	s.decode(s.do(http.MethodGet, "/api/access/"+strings.ToLower(tab.AccessCode), ""), &access)
	if access.ActiveSegment == nil || access.ActiveSegment.ID != easy.ID {
		t.Fatalf("expected Easy to be live, got %+v", access.ActiveSegment)
	}
	if len(access.Contestants) != 2 {
		t.Errorf("expected both teams visible, got %d", len(access.Contestants))
	}

	s.result(answer(teamB, 1, true), http.StatusOK, nil)
	s.result(answer(teamB, 2, true), http.StatusOK, nil)
	s.result(answer(teamA, 1, true), http.StatusOK, nil)
	s.result(answer(teamA, 2, false), http.StatusOK, nil)
	if rec := answer(teamA, 3, true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for question past the round, got %d", rec.Code)
	}

	var ranking handlers.RankingResponse
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/events/%d/rankings?segment_id=%d", ev.ID, easy.ID), ""), &ranking)
	teams := ranking.Rankings["Teams"]
	if len(teams) != 2 || teams[0].ContestantID != teamB.ID || teams[0].Score != 2 {
		t.Fatalf("unexpected ranking %+v", teams)
	}

	var report services.EvaluationReport
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/evaluate", ev.ID), ""), http.StatusOK, &report)
	if report.Outcome != services.OutcomeAdvanced {
		t.Fatalf("expected advance, got %s", report.Outcome)
	}
	if report.NextSegmentID == nil || *report.NextSegmentID != average.ID {
		t.Errorf("expected Average next, got %v", report.NextSegmentID)
	}
	if len(report.Qualified) != 1 || report.Qualified[0] != teamB.ID {
		t.Errorf("expected team B to qualify, got %v", report.Qualified)
	}

	var next models.Segment
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/segments/%d", average.ID), ""), &next)
	if !next.IsActive || len(next.ParticipantIDs) != 1 || next.ParticipantIDs[0] != teamB.ID {
		t.Errorf("expected Average live with team B only, got %+v", next)
	}

	var board services.Leaderboard
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/events/%d/leaderboard", ev.ID), ""), &board)
	if board.ActiveSegment == nil || board.ActiveSegment.ID != average.ID {
		t.Errorf("expected leaderboard on Average, got %+v", board.ActiveSegment)
	}

	var matrix struct {
		Columns   []any          `json:"columns"`
		Divisions map[string]any `json:"divisions"`
	}
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/events/%d/matrix", ev.ID), ""), &matrix)
	if len(matrix.Columns) != 2 {
		t.Errorf("expected a column per round, got %d", len(matrix.Columns))
	}

	// Average is the last round; nothing to advance into
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/advance", ev.ID),
		fmt.Sprintf(`{"current_round_id":%d,"qualified_ids":[%d]}`, average.ID, teamB.ID))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 with no next round, got %d", rec.Code)
	}
}

func TestPageantFlow(t *testing.T) {
	s := newTestSetup(t)

	var ev models.Event
	s.result(s.do(http.MethodPost, "/api/events", `{"name":"Ms Campus","type":"pageant"}`), http.StatusCreated, &ev)

	var gown models.Segment
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/segments", ev.ID), `{"name":"Evening Gown","order_index":1,"weight":1}`), http.StatusCreated, &gown)
	if rec := s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/segments", ev.ID), `{"name":"Talent","order_index":2,"weight":0.5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected weight cap to reject, got %d", rec.Code)
	}

	var poise, beauty models.Criteria
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/segments/%d/criteria", gown.ID), `{"name":"Poise","weight":0.6,"max_score":100}`), http.StatusCreated, &poise)
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/segments/%d/criteria", gown.ID), `{"name":"Beauty","weight":0.4,"max_score":100}`), http.StatusCreated, &beauty)

	var ms models.Contestant
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/contestants", ev.ID), `{"name":"Ana","division":"Ms"}`), http.StatusCreated, &ms)
	var judge models.Judge
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/judges", ev.ID), `{"name":"Judge Reyes"}`), http.StatusCreated, &judge)
	if judge.Role != models.RoleJudge {
		t.Errorf("expected default judge role, got %s", judge.Role)
	}

	score := func(criteriaID int, value float64) *httptest.ResponseRecorder {
		return s.do(http.MethodPost, "/api/access/"+judge.AccessCode+"/scores",
			fmt.Sprintf(`{"contestant_id":%d,"criteria_id":%d,"value":%v}`, ms.ID, criteriaID, value))
	}
	s.result(score(poise.ID, 80), http.StatusOK, nil)
	s.result(score(beauty.ID, 90), http.StatusOK, nil)
	if rec := score(poise.ID, 120); rec.Code != http.StatusBadRequest {
		t.Errorf("expected out-of-range score rejected, got %d", rec.Code)
	}

	var ranking handlers.RankingResponse
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/events/%d/rankings?segment_id=%d", ev.ID, gown.ID), ""), &ranking)
	if got := ranking.Rankings["Ms"][0].Score; got < 83.999 || got > 84.001 {
		t.Errorf("expected segment score 84, got %v", got)
	}

	var matrix struct {
		Divisions map[string][]struct {
			Values []float64 `json:"values"`
			Total  float64   `json:"total"`
		} `json:"divisions"`
	}
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/segments/%d/matrix", gown.ID), ""), &matrix)
	if rows := matrix.Divisions["Ms"]; len(rows) != 1 || rows[0].Total < 83.999 || rows[0].Total > 84.001 {
		t.Errorf("unexpected matrix %+v", matrix.Divisions)
	}

	s.result(s.do(http.MethodPost, "/api/access/"+judge.AccessCode+"/progress", fmt.Sprintf(`{"segment_id":%d,"finished":true}`, gown.ID)), http.StatusOK, nil)
	var progress []models.JudgeProgress
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/segments/%d/progress", gown.ID), ""), &progress)
	if len(progress) != 1 || !progress[0].Finished {
		t.Errorf("expected judge finished, got %+v", progress)
	}

	// locking freezes scores
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/lock", ev.ID), `{"locked":true}`), http.StatusOK, nil)
	if rec := score(poise.ID, 70); rec.Code != http.StatusConflict {
		t.Errorf("expected locked event to reject scores, got %d", rec.Code)
	}
}

func TestAccess_UnknownCode(t *testing.T) {
	s := newTestSetup(t)
	if rec := s.do(http.MethodGet, "/api/access/ZZ-ZZZ", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestContestantAndSegmentCRUD(t *testing.T) {
	s := newTestSetup(t)
	eventID := testutil.SeedEvent(t, s.repo, models.EventQuizBee)
	ids := testutil.SeedContestants(t, s.repo, eventID, "Teams", 3)
	tab := testutil.SeedJudge(t, s.repo, eventID, "tab", models.RoleTabulator)

	var updated models.Contestant
	s.result(s.do(http.MethodPut, fmt.Sprintf("/api/contestants/%d", ids[0]), `{"name":"Renamed","division":"Teams"}`), http.StatusOK, &updated)
	if updated.Name != "Renamed" || updated.CandidateNumber != 1 {
		t.Errorf("unexpected contestant %+v", updated)
	}

	s.result(s.do(http.MethodPut, fmt.Sprintf("/api/contestants/%d/tabulator", ids[1]), fmt.Sprintf(`{"tabulator_id":%d}`, tab)), http.StatusOK, nil)
	var assigned models.Contestant
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/contestants/%d", ids[1]), ""), &assigned)
	if assigned.AssignedTabulatorID == nil || *assigned.AssignedTabulatorID != tab {
		t.Errorf("expected tabulator %d, got %v", tab, assigned.AssignedTabulatorID)
	}

	s.result(s.do(http.MethodDelete, fmt.Sprintf("/api/contestants/%d", ids[0]), ""), http.StatusOK, nil)
	var list []models.Contestant
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/events/%d/contestants", eventID), ""), &list)
	if len(list) != 2 || list[0].CandidateNumber != 1 || list[1].CandidateNumber != 2 {
		t.Errorf("expected renumbered contestants, got %+v", list)
	}

	var seg models.Segment
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/segments", eventID), `{"name":"Easy","order_index":1,"total_questions":3}`), http.StatusCreated, &seg)
	var grown models.Segment
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/segments/%d/questions", seg.ID), ""), http.StatusOK, &grown)
	if grown.TotalQuestions != 4 {
		t.Errorf("expected 4 questions, got %d", grown.TotalQuestions)
	}
	s.result(s.do(http.MethodDelete, fmt.Sprintf("/api/segments/%d", seg.ID), ""), http.StatusOK, nil)
	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/segments/%d", seg.ID), ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected deleted segment to be gone, got %d", rec.Code)
	}
}

func TestEliminateEndpoint(t *testing.T) {
	s := newTestSetup(t)
	eventID := testutil.SeedEvent(t, s.repo, models.EventQuizBee)
	round := testutil.SeedSegment(t, s.repo, models.Segment{EventID: eventID, Name: "Easy", OrderIndex: 1, Kind: models.RoundNormal, PointsPerQuestion: 1, TotalQuestions: 1})
	ids := testutil.SeedContestants(t, s.repo, eventID, "Teams", 3)
	testutil.SeedPoints(t, s.repo, round, map[int]float64{ids[0]: 3, ids[1]: 2, ids[2]: 1})

	var result services.QualificationResult
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/eliminate", eventID), `{"limit":2}`), http.StatusOK, &result)
	if len(result.Qualified) != 2 || len(result.Eliminated) != 1 || result.Eliminated[0] != ids[2] {
		t.Errorf("unexpected partition %+v", result)
	}

	if rec := s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/eliminate", eventID), `{"limit":-1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected negative limit rejected, got %d", rec.Code)
	}
}

func TestEvaluate_NoActiveRound(t *testing.T) {
	s := newTestSetup(t)
	eventID := testutil.SeedEvent(t, s.repo, models.EventQuizBee)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/evaluate", eventID), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != false {
		t.Errorf("expected failed envelope, got %v", body)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestSetup(t)

	s.result(s.do(http.MethodPut, "/api/settings", `{"base_url":"http://10.0.0.9:8080/","values":{"theme":"dark"}}`), http.StatusOK, nil)

	var settings map[string]any
	s.decode(s.do(http.MethodGet, "/api/settings", ""), &settings)
	if settings[services.SettingBaseURL] != "http://10.0.0.9:8080" {
		t.Errorf("expected trimmed base url, got %v", settings[services.SettingBaseURL])
	}
	theme, err := s.handlers.Settings.GetSetting(context.Background(), "theme")
	if err != nil || theme != "dark" {
		t.Errorf("expected theme saved, got %q (%v)", theme, err)
	}
}

func TestJudgeLinkAndQR(t *testing.T) {
	s := newTestSetup(t)
	eventID := testutil.SeedEvent(t, s.repo, models.EventPageant)

	var judge models.Judge
	s.result(s.do(http.MethodPost, fmt.Sprintf("/api/events/%d/judges", eventID), `{"name":"Judge"}`), http.StatusCreated, &judge)

	if rec := s.do(http.MethodGet, fmt.Sprintf("/api/judges/%d/link", judge.ID), ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected missing base url rejected, got %d", rec.Code)
	}
	s.result(s.do(http.MethodPut, "/api/settings", `{"base_url":"http://10.0.0.9:8080"}`), http.StatusOK, nil)

	var link handlers.JudgeLinkResponse
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/judges/%d/link", judge.ID), ""), &link)
	if link.URL != "http://10.0.0.9:8080/score/"+judge.AccessCode {
		t.Errorf("unexpected link %q", link.URL)
	}

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/judges/%d/qr", judge.ID), "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("expected PNG, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	s.result(s.do(http.MethodDelete, fmt.Sprintf("/api/judges/%d", judge.ID), ""), http.StatusOK, nil)
	var judges []models.Judge
	s.decode(s.do(http.MethodGet, fmt.Sprintf("/api/events/%d/judges", eventID), ""), &judges)
	if len(judges) != 0 {
		t.Errorf("expected no judges, got %d", len(judges))
	}
}

func TestStoreFailureReturns500(t *testing.T) {
	s, mockRepo := newTestSetupWithMockRepo(t)
	eventID := testutil.SeedEvent(t, s.repo, models.EventPageant)
	mockRepo.GetEventError = errors.New("database error")

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/events/%d", eventID), "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "database error") {
		t.Error("internal cause must not leak")
	}
}

func TestLiveView_DisabledWithoutHub(t *testing.T) {
	s := newTestSetup(t)
	eventID := testutil.SeedEvent(t, s.repo, models.EventQuizBee)

	if rec := s.do(http.MethodGet, fmt.Sprintf("/ws/events/%d", eventID), ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics.New failed: %v", err)
	}
	h := handlers.New(buildServices(repo, m), nil, m, handlers.NoopHTTPLogger{})
	router := h.Router()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `tabulator_http_requests_total{code="200",method="GET",route="/api/events"}`) {
		t.Errorf("expected request counter by route pattern, got:\n%s", body)
	}
}
