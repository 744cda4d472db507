package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/birdserve/pkg/dataset"
	"github.com/bastiangx/birdserve/pkg/names"
	"github.com/bastiangx/birdserve/pkg/session"
	"github.com/bastiangx/birdserve/pkg/typeahead"
)

const checklist = `<html><body><section id="obs">
<div class="Observation-species"><span class="Heading-main">Emu</span></div>
</section></body></html>`

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s := session.New(session.Options{Debounce: time.Hour}, nil)
	t.Cleanup(s.Close)
	s.Attach(&dataset.Bundle{
		Names: []names.NameEntry{{SourceName: "Emu", TargetName: "Emu(鸸鹋)"}},
		Typeahead: []typeahead.Entry{
			{CommonName: "Emu", PhoneticKey: "ermiao", InitialsKey: "em"},
			{CommonName: "Great Tit", PhoneticKey: "dashanque", InitialsKey: "dsq"},
		},
	}, nil)
	return s
}

func roundTrip(t *testing.T, srv func(in, out *bytes.Buffer) *Server, reqs ...any) []map[string]any {
	t.Helper()
	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}
	require.NoError(t, srv(&in, &out).Start(context.Background()))

	var responses []map[string]any
	dec := msgpack.NewDecoder(&out)
	for out.Len() > 0 {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		responses = append(responses, m)
	}
	return responses
}

func TestIPC(t *testing.T) {
	sess := newSession(t)
	newServer := func(in, out *bytes.Buffer) *Server {
		return NewServer(sess, in, out, Options{EnableFilter: true})
	}

	responses := roundTrip(t, newServer,
		Request{ID: "0", Action: "render"},
		Request{ID: "1", Action: "load", URL: "https://ebird.org/checklist/S1", HTML: checklist},
		Request{ID: "2", Action: "mutate", Selector: "#nope", Fragment: "<p>Emu</p>"},
		Request{ID: "3", Action: "render"},
		Request{ID: "4", Action: "query", Term: "dsq", Global: true},
		Request{ID: "5", Action: "query", Term: "1111"},
		Request{ID: "6", Action: "keystroke", Text: "//em"},
		Request{ID: "7", Action: "select", Index: 3},
		Request{ID: "8", Action: "stats"},
		Request{ID: "9", Action: "fly"},
		42,
	)
	require.Len(t, responses, 12)

	assert.Equal(t, "ready", responses[0]["status"])
	assert.EqualValues(t, 409, responses[1]["c"], "render before load")

	report := responses[2]["report"].(map[string]any)
	assert.Equal(t, "checklist", report["kind"])
	assert.EqualValues(t, 1, report["rewritten"])
	assert.EqualValues(t, 1, report["flagged"])

	assert.EqualValues(t, 404, responses[3]["c"])
	assert.Contains(t, responses[4]["html"], "Emu(鸸鹋)*")

	s := responses[5]["s"].([]any)
	require.Len(t, s, 1)
	assert.Equal(t, "Great Tit", s[0].(map[string]any)["n"])
	assert.EqualValues(t, 1, s[0].(map[string]any)["r"])

	assert.EqualValues(t, 400, responses[6]["c"], "filtered term")
	assert.Equal(t, true, responses[7]["claimed"])
	assert.EqualValues(t, 1, responses[7]["c"])
	assert.EqualValues(t, 404, responses[8]["c"], "selection out of range")

	stats := responses[9]["stats"].(map[string]any)
	assert.Equal(t, true, stats["loaded"])
	assert.EqualValues(t, 2, stats["typeahead"])

	assert.EqualValues(t, 400, responses[10]["c"])
	assert.Equal(t, "9", responses[10]["id"])
	assert.EqualValues(t, 400, responses[11]["c"], "non-map request")
}

func TestHTTP(t *testing.T) {
	sess := newSession(t)
	srv := httptest.NewServer(NewRouter(sess, HTTPConfig{Options: Options{EnableFilter: true, MaxResults: 1}}))
	defer srv.Close()

	get := func(path string) (int, map[string]any) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}
	post := func(path, body string) (int, map[string]any) {
		resp, err := http.Post(srv.URL+path, "text/html", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp.StatusCode, out
	}

	code, body := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = post("/annotate", checklist)
	assert.Equal(t, http.StatusBadRequest, code, "url is required")

	code, body = post("/annotate?url=https://ebird.org/checklist/S1", checklist)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["html"], "Emu(鸸鹋)*")
	assert.Equal(t, "checklist", body["report"].(map[string]any)["kind"])

	code, body = get("/typeahead?q=e")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"], "capped by MaxResults")

	code, _ = get("/typeahead?q=em&scope=nearby")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get("/typeahead?q=%24%24")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get("/typeahead?q=em&limit=0")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = post("/seen/sync", `<div class="Observation-species"><span class="Heading-main">Emu</span></div>`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["diff"].(map[string]any)["added"])

	code, body = get("/stats")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["seen"])
}
