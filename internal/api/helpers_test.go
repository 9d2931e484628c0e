package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"para/internal/db"
	"para/internal/models"
	"para/internal/pipeline"
	"para/internal/prompt"
)

const (
	testPlan = `{"intent":"intrigue","target_format":"quote","hypothesis":"h","content_brief":"brief","success_signals":["saves"]}`
	testPost = `{"title":"Static Bloom","payload":{"type":"typographic_thought","quote":"Neon forgets nothing."}}`
)

type stubText struct {
	mu      sync.Mutex
	plan    string
	planErr error
	post    string
	calls   int
}

func (s *stubText) GenerateStructured(_ context.Context, _, system, _ string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if system == prompt.PlannerSystem {
		if s.planErr != nil {
			return nil, s.planErr
		}
		return json.RawMessage(s.plan), nil
	}
	return json.RawMessage(s.post), nil
}

type noImages struct{}

func (noImages) GenerateImage(context.Context, string, string) *models.ImageAsset { return nil }

type noResearch struct{}

func (noResearch) Search(_ context.Context, queries []string) []models.ResearchResult {
	return []models.ResearchResult{}
}

type testEnv struct {
	srv   *httptest.Server
	db    *sql.DB
	text  *stubText
	agent *models.Agent
}

func setupTestServer(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "para-test.db")
	database, err := db.OpenMigrated(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	agent, err := db.CreateAgent(context.Background(), database, db.SeedChannelName, db.SeedMission)
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	text := &stubText{plan: testPlan, post: testPost}
	orch := pipeline.New(database, text, noImages{}, noResearch{}, pipeline.Options{
		Models: pipeline.ModelNames{Pro: "pro", Light: "light", Image: "imagen"},
	})
	opts := Options{Version: "test", Runner: orch}
	for _, m := range mutate {
		m(&opts)
	}

	srv := httptest.NewServer(NewRouter(database, opts))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return &testEnv{srv: srv, db: database, text: text, agent: agent}
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(`SELECT COUNT(1) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func doReq(t *testing.T, baseURL, token, method, path string, body any) *http.Response {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		switch b := body.(type) {
		case string:
			payload = []byte(b)
		default:
			payload, err = json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal req: %v", err)
			}
		}
	}
	req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &body)
	return body.Error
}

func runAgent(t *testing.T, env *testEnv) (runID, postID string) {
	t.Helper()
	resp := doReq(t, env.srv.URL, "", http.MethodPost, "/api/v1/run-agent", map[string]any{
		"agent_id": env.agent.ID,
		"task":     "Create a fresh post for today's feed.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	var out struct {
		RunID  string `json:"run_id"`
		PostID string `json:"post_id"`
	}
	decodeJSON(t, resp, &out)
	return out.RunID, out.PostID
}
