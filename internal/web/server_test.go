package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ltpgen/internal/model"
)

var testResult = model.GenerationResult{
	Modules: []model.Module{
		{
			Kind:     model.KindTest,
			Name:     "testcases/kernel/syscalls/read/read01",
			SrcFiles: []string{"testcases/kernel/syscalls/read/read01.c"},
		},
		{Kind: model.KindLibrary, Name: "ltp", SrcFiles: []string{"lib/tst_res.c"}},
	},
	Skipped: []model.SkippedTarget{{Target: "testcases/a", Kind: "cc_link", Reason: "disabled test"}},
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func newTestServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(NewServer(testResult, "# header"))
	t.Cleanup(srv.Close)
	return srv
}

func TestModules(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv, "/api/modules")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var got struct {
		model.GenerationResult
		Version string
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Modules) != 2 || got.Modules[1].Name != "ltp" || len(got.Skipped) != 1 {
		t.Errorf("unexpected result: %+v", got.GenerationResult)
	}
	if got.Version != model.Version {
		t.Errorf("expected version %s, got %s", model.Version, got.Version)
	}
}

func TestModule(t *testing.T) {
	srv := newTestServer(t)
	testCases := []struct {
		query string
		code  int
		body  string
	}{
		{query: "?name=ltp", code: http.StatusOK, body: "module_libname := ltp\n"},
		{query: "?name=nope", code: http.StatusNotFound, body: `no module named "nope"`},
		{query: "", code: http.StatusBadRequest, body: "name is required"},
	}
	for _, tc := range testCases {
		code, body := get(t, srv, "/api/module"+tc.query)
		if code != tc.code {
			t.Errorf("%q: expected %d, got %d", tc.query, tc.code, code)
		}
		if !strings.Contains(body, tc.body) {
			t.Errorf("%q: expected body containing %q, got %q", tc.query, tc.body, body)
		}
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	_, body := get(t, srv, "/api/search?query=TST")
	var matches []SearchMatch
	if err := json.Unmarshal([]byte(body), &matches); err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Index != 1 || matches[0].MatchedSrc != "lib/tst_res.c" {
		t.Errorf("unexpected matches %+v", matches)
	}

	_, body = get(t, srv, "/api/search?query=nothing")
	if strings.TrimSpace(body) != "[]" {
		t.Errorf("expected an empty list, got %q", body)
	}
}

func TestAndroidMk(t *testing.T) {
	srv := newTestServer(t)
	_, body := get(t, srv, "/api/androidmk")
	if !strings.HasPrefix(body, "# header\n\nmodule_testname := testcases/kernel/syscalls/read/read01\n") {
		t.Errorf("unexpected Android.ltp.mk:\n%s", body)
	}
	if !strings.Contains(body, "include $(ltp_build_library)") {
		t.Errorf("library stanza missing:\n%s", body)
	}
}

func TestStaticAndHelp(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv, "/")
	if code != http.StatusOK || !strings.Contains(body, "<title>ltpgen</title>") {
		t.Errorf("index not served: %d", code)
	}
	_, body = get(t, srv, "/api/help")
	if !strings.Contains(body, "# ltpgen "+model.Version) {
		t.Errorf("help not versioned:\n%s", body)
	}
}
