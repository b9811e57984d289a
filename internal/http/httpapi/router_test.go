package httpapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kfashion/internal/domain"
	"kfashion/internal/http/handlers"
	"kfashion/internal/imagegen"
	"kfashion/internal/studio"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n-product-")

type stubGenerator struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, req imagegen.GenerateRequest) (imagegen.ImagePart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return imagegen.ImagePart{}, g.err
	}
	return imagegen.ImagePart{MediaType: "image/png", Data: []byte(fmt.Sprintf("generated-%d", g.calls))}, nil
}

func (g *stubGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type testEnv struct {
	srv      *httptest.Server
	gen      *stubGenerator
	sessions *studio.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gen := &stubGenerator{}
	sessions := studio.NewManager(gen, nil, time.Hour)
	app := handlers.NewApp(sessions, zerolog.Nop(), 1<<10, []string{"*"})
	router := NewRouter(app, Options{
		Logger:          zerolog.Nop(),
		DefaultLocale:   "vi",
		CORSOrigins:     []string{"*"},
		RateLimitPerMin: 1000,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, gen: gen, sessions: sessions}
}

type sessionBody struct {
	ID         string `json:"id"`
	Locale     string `json:"locale"`
	Mode       string `json:"mode"`
	Gender     string `json:"gender"`
	Status     string `json:"status"`
	Loading    bool   `json:"loading"`
	Background struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"background"`
	SourceImage string `json:"source_image"`
	Result      *struct {
		Image  string `json:"image"`
		Prompt string `json:"prompt"`
		Mode   string `json:"mode"`
	} `json:"result"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	History []struct {
		Stamp int64  `json:"stamp"`
		Image string `json:"image"`
	} `json:"history"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, body, "application/json")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status = %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, raw)
	}
}

func (e *testEnv) createSession(t *testing.T, locale string) sessionBody {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/v1/sessions", map[string]string{"locale": locale})
	expectStatus(t, resp, http.StatusCreated)
	return decode[sessionBody](t, resp)
}

func (e *testEnv) upload(t *testing.T, id string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "product.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	return e.do(t, http.MethodPut, "/v1/sessions/"+id+"/image", &buf, mw.FormDataContentType())
}

func TestHealthAndDocs(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/healthz", nil, "")
	expectStatus(t, resp, http.StatusOK)
	health := decode[map[string]any](t, resp)
	if health["status"] != "ok" || health["sessions"] != float64(0) || health["uptime_seconds"] == nil {
		t.Fatalf("health = %v", health)
	}

	resp = env.do(t, http.MethodGet, "/v1/openapi.json", nil, "")
	expectStatus(t, resp, http.StatusOK)
	doc := decode[map[string]any](t, resp)
	if doc["openapi"] == nil {
		t.Fatalf("openapi document missing version")
	}
	resp = env.do(t, http.MethodGet, "/v1/docs", nil, "")
	expectStatus(t, resp, http.StatusOK)
	if page, _ := io.ReadAll(resp.Body); !strings.Contains(string(page), "<title>K-Fashion Studio API 1.0.0</title>") {
		t.Fatalf("docs page title missing: %s", page)
	}
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/catalog?locale=en", nil, "")
	expectStatus(t, resp, http.StatusOK)
	body := decode[struct {
		Locale string `json:"locale"`
		Modes  []struct {
			Mode              string `json:"mode"`
			DefaultBackground string `json:"default_background"`
			Backgrounds       []struct {
				ID    string `json:"id"`
				Label string `json:"label"`
			} `json:"backgrounds"`
		} `json:"modes"`
		Genders []string `json:"genders"`
	}](t, resp)

	if body.Locale != "en" || len(body.Modes) != 2 || len(body.Genders) != 2 {
		t.Fatalf("unexpected catalog: %+v", body)
	}
	want := map[string]struct {
		def   string
		count int
	}{
		"CLOTHING": {"clean white studio", 9},
		"FOOTWEAR": {"outdoor sidewalk", 7},
	}
	for _, m := range body.Modes {
		w := want[m.Mode]
		if m.DefaultBackground != w.def || len(m.Backgrounds) != w.count {
			t.Fatalf("mode %s: default %q, %d backgrounds", m.Mode, m.DefaultBackground, len(m.Backgrounds))
		}
		if m.Backgrounds[0].ID != string(domain.BackgroundAuto) {
			t.Fatalf("auto should lead the catalog of %s", m.Mode)
		}
	}
}

func TestGenerateFlow(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "vi")
	base := "/v1/sessions/" + sess.ID
	if sess.Mode != "CLOTHING" || sess.Gender != "GIRL" || sess.Background.ID != "clean white studio" {
		t.Fatalf("unexpected defaults: %+v", sess)
	}

	resp := env.do(t, http.MethodPost, base+"/generate?wait=true", nil, "")
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	errResp := decode[errorBody](t, resp)
	if errResp.Error.Code != "validation" || errResp.Error.Message != "Vui lòng tải lên hình ảnh quần áo trước khi tạo ảnh." {
		t.Fatalf("unexpected validation error: %+v", errResp)
	}
	if env.gen.Calls() != 0 {
		t.Fatalf("generator called without image")
	}

	expectStatus(t, env.upload(t, sess.ID, pngBytes), http.StatusOK)
	resp = env.doJSON(t, http.MethodPut, base+"/background", map[string]string{"background": "sân trường"})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[sessionBody](t, resp); got.Background.ID != "school yard" || got.Background.Label != "sân trường" {
		t.Fatalf("background = %+v", got.Background)
	}

	resp = env.do(t, http.MethodPost, base+"/generate?wait=true", nil, "")
	expectStatus(t, resp, http.StatusOK)
	got := decode[sessionBody](t, resp)
	if got.Status != "success" || got.Result == nil || got.Error != nil {
		t.Fatalf("unexpected outcome: %+v", got)
	}
	if !strings.HasPrefix(got.Result.Image, "data:image/png;base64,") {
		t.Fatalf("result image = %q", got.Result.Image)
	}
	if !strings.Contains(got.Result.Prompt, "BỐI CẢNH: sân trường") {
		t.Fatalf("prompt = %s", got.Result.Prompt)
	}
	if len(got.History) != 1 {
		t.Fatalf("history len = %d", len(got.History))
	}
	stamp := got.History[0].Stamp

	resp = env.do(t, http.MethodGet, base+"/result", nil, "")
	expectStatus(t, resp, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="k-fashion-clothing-`) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if raw, _ := io.ReadAll(resp.Body); string(raw) != "generated-1" {
		t.Fatalf("result body = %q", raw)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("%s/history/%d/image", base, stamp), nil, "")
	expectStatus(t, resp, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, fmt.Sprintf("k-fashion-history-%d.png", stamp)) {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	resp = env.do(t, http.MethodGet, base+"/history/archive", nil, "")
	expectStatus(t, resp, http.StatusOK)
	raw, _ := io.ReadAll(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil || len(zr.File) != 1 {
		t.Fatalf("archive invalid: %v", err)
	}

	expectStatus(t, env.do(t, http.MethodDelete, base+"/history/999", nil, ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodDelete, fmt.Sprintf("%s/history/%d", base, stamp), nil, ""), http.StatusNoContent)
	resp = env.do(t, http.MethodGet, base+"/history", nil, "")
	expectStatus(t, resp, http.StatusOK)
	if list := decode[struct {
		Items []any `json:"items"`
	}](t, resp); len(list.Items) != 0 {
		t.Fatalf("history not empty after delete: %d", len(list.Items))
	}
}

func TestModeSwitchClearsResult(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "en")
	base := "/v1/sessions/" + sess.ID
	expectStatus(t, env.upload(t, sess.ID, pngBytes), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, base+"/generate?wait=true", nil, ""), http.StatusOK)

	resp := env.doJSON(t, http.MethodPut, base+"/mode", map[string]string{"mode": "FOOTWEAR"})
	expectStatus(t, resp, http.StatusOK)
	got := decode[sessionBody](t, resp)
	if got.Result != nil || got.Error != nil || got.Status != "idle" {
		t.Fatalf("mode switch should clear outcome: %+v", got)
	}
	if got.Background.ID != "outdoor sidewalk" || got.SourceImage != "" {
		t.Fatalf("unexpected footwear selection: %+v", got)
	}
	if len(got.History) != 1 {
		t.Fatalf("history should survive mode switch")
	}

	resp = env.doJSON(t, http.MethodPut, base+"/mode", map[string]string{"mode": "HATS"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = env.doJSON(t, http.MethodPut, base+"/gender", map[string]string{})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	if got := decode[errorBody](t, resp); got.Error.Code != "validation" || got.Error.Message != "gender: required" {
		t.Fatalf("unexpected error body: %+v", got.Error)
	}
}

func TestGenerateFailureKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "configuration", err: fmt.Errorf("gemini: %w", domain.ErrConfiguration), status: http.StatusServiceUnavailable, code: "configuration"},
		{name: "empty result", err: fmt.Errorf("gemini: %w", domain.ErrEmptyResult), status: http.StatusBadGateway, code: "empty_result"},
		{name: "transport", err: fmt.Errorf("gemini: %w", domain.ErrTransport), status: http.StatusBadGateway, code: "transport"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gen.fail(tc.err)
			sess := env.createSession(t, "en")
			expectStatus(t, env.upload(t, sess.ID, pngBytes), http.StatusOK)
			resp := env.do(t, http.MethodPost, "/v1/sessions/"+sess.ID+"/generate?wait=true", nil, "")
			expectStatus(t, resp, tc.status)
			if got := decode[errorBody](t, resp); got.Error.Code != tc.code || got.Error.Message == "" {
				t.Fatalf("unexpected error body: %+v", got)
			}
			resp = env.do(t, http.MethodGet, "/v1/sessions/"+sess.ID, nil, "")
			if snap := decode[sessionBody](t, resp); snap.Status != "failed" || snap.Error == nil {
				t.Fatalf("snapshot should record failure: %+v", snap)
			}
		})
	}
}

func TestGenerateAsync(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "vi")
	expectStatus(t, env.upload(t, sess.ID, pngBytes), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodPost, "/v1/sessions/"+sess.ID+"/generate", nil, ""), http.StatusAccepted)

	s, err := env.sessions.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	s.Wait()
	resp := env.do(t, http.MethodGet, "/v1/sessions/"+sess.ID, nil, "")
	if got := decode[sessionBody](t, resp); got.Status != "success" || len(got.History) != 1 {
		t.Fatalf("async generation did not land: %+v", got)
	}
}

func TestUploadErrors(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "vi")

	big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte("x"), 4<<10)...)
	resp := env.do(t, http.MethodPut, "/v1/sessions/"+sess.ID+"/image", bytes.NewReader(big), "image/png")
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)

	resp = env.do(t, http.MethodPut, "/v1/sessions/"+sess.ID+"/image", strings.NewReader("hi"), "text/plain")
	expectStatus(t, resp, http.StatusUnsupportedMediaType)

	resp = env.do(t, http.MethodPut, "/v1/sessions/"+sess.ID+"/image", bytes.NewReader(pngBytes), "image/png")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[sessionBody](t, resp); !strings.HasPrefix(got.SourceImage, "data:image/png;base64,") {
		t.Fatalf("source image = %q", got.SourceImage)
	}
}

func TestUploadDataURL(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "vi")
	path := "/v1/sessions/" + sess.ID + "/image"
	jpeg := []byte("\xff\xd8\xff\xe0-product-")
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	resp := env.doJSON(t, http.MethodPut, path, map[string]string{"image": dataURL})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[sessionBody](t, resp); got.SourceImage != dataURL {
		t.Fatalf("source image = %q, want %q", got.SourceImage, dataURL)
	}

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{name: "missing image", body: map[string]string{}, status: http.StatusBadRequest},
		{name: "not a data url", body: map[string]string{"image": "https://example.com/a.png"}, status: http.StatusBadRequest},
		{name: "bad base64", body: map[string]string{"image": "data:image/png;base64,@@@"}, status: http.StatusBadRequest},
		{name: "not an image", body: map[string]string{"image": "data:text/plain;base64,aGk="}, status: http.StatusUnsupportedMediaType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, env.doJSON(t, http.MethodPut, path, tc.body), tc.status)
		})
	}

	resp = env.do(t, http.MethodGet, "/v1/sessions/"+sess.ID, nil, "")
	if got := decode[sessionBody](t, resp); got.SourceImage != dataURL {
		t.Fatalf("rejected uploads replaced the image: %q", got.SourceImage)
	}
}

func TestClearHistoryIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "en")
	base := "/v1/sessions/" + sess.ID
	expectStatus(t, env.upload(t, sess.ID, pngBytes), http.StatusOK)
	for i := 0; i < 2; i++ {
		expectStatus(t, env.do(t, http.MethodPost, base+"/generate?wait=true", nil, ""), http.StatusOK)
	}

	for i := 0; i < 2; i++ {
		expectStatus(t, env.do(t, http.MethodDelete, base+"/history", nil, ""), http.StatusNoContent)
		resp := env.do(t, http.MethodGet, base+"/history", nil, "")
		expectStatus(t, resp, http.StatusOK)
		if list := decode[struct {
			Items []any `json:"items"`
		}](t, resp); len(list.Items) != 0 {
			t.Fatalf("clear #%d left %d entries", i+1, len(list.Items))
		}
	}

	resp := env.do(t, http.MethodGet, base, nil, "")
	if got := decode[sessionBody](t, resp); got.Result == nil {
		t.Fatalf("clearing history should keep the current result")
	}
}

func TestGenerateFailureCarriesServiceDetail(t *testing.T) {
	env := newTestEnv(t)
	env.gen.fail(fmt.Errorf("gemini: %w", &domain.ServiceError{Err: domain.ErrTransport, Detail: "Resource has been exhausted (quota)"}))
	sess := env.createSession(t, "en")
	expectStatus(t, env.upload(t, sess.ID, pngBytes), http.StatusOK)

	resp := env.do(t, http.MethodPost, "/v1/sessions/"+sess.ID+"/generate?wait=true", nil, "")
	expectStatus(t, resp, http.StatusBadGateway)
	got := decode[struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		} `json:"error"`
	}](t, resp)
	if got.Error.Code != "transport" || got.Error.Detail != "Resource has been exhausted (quota)" {
		t.Fatalf("unexpected error body: %+v", got.Error)
	}
	if got.Error.Message != "Something went wrong while generating the image: Resource has been exhausted (quota)" {
		t.Fatalf("message = %q", got.Error.Message)
	}
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/sessions/nope", nil, "")
	expectStatus(t, resp, http.StatusNotFound)
	if got := decode[errorBody](t, resp); got.Error.Code != "not_found" {
		t.Fatalf("code = %q", got.Error.Code)
	}
	expectStatus(t, env.do(t, http.MethodDelete, "/v1/sessions/nope", nil, ""), http.StatusNotFound)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "vi")
	expectStatus(t, env.do(t, http.MethodDelete, "/v1/sessions/"+sess.ID, nil, ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodGet, "/v1/sessions/"+sess.ID, nil, ""), http.StatusNotFound)
}

func TestRateLimitOnGenerate(t *testing.T) {
	gen := &stubGenerator{}
	sessions := studio.NewManager(gen, nil, time.Hour)
	app := handlers.NewApp(sessions, zerolog.Nop(), 1<<20, nil)
	router := NewRouter(app, Options{Logger: zerolog.Nop(), DefaultLocale: "vi", RateLimitPerMin: 1})
	s := sessions.Create(domain.LocaleVI)

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+s.ID()+"/generate", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusUnprocessableEntity || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestSessionEventsStream(t *testing.T) {
	env := newTestEnv(t)
	sess := env.createSession(t, "vi")

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/sessions/" + sess.ID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	type event struct {
		Type    string      `json:"type"`
		Session sessionBody `json:"session"`
	}
	var first event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if first.Type != "snapshot" || first.Session.Mode != "CLOTHING" {
		t.Fatalf("unexpected initial event: %+v", first)
	}

	expectStatus(t, env.doJSON(t, http.MethodPut, "/v1/sessions/"+sess.ID+"/mode", map[string]string{"mode": "FOOTWEAR"}), http.StatusOK)
	var next event
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if next.Session.Mode != "FOOTWEAR" {
		t.Fatalf("event mode = %q", next.Session.Mode)
	}
}
