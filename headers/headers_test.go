package headers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed() http.Header {
	h := http.Header{}
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return h
}

func TestInject(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    int
	}{
		{
			name: "implicit status",
			handler: func(rw http.ResponseWriter, req *http.Request) {
				_, _ = rw.Write([]byte("hello"))
			},
			code: http.StatusOK,
		},
		{
			name: "explicit status without body",
			handler: func(rw http.ResponseWriter, req *http.Request) {
				rw.WriteHeader(http.StatusNoContent)
			},
			code: http.StatusNoContent,
		},
		{
			name: "error that resets headers",
			handler: func(rw http.ResponseWriter, req *http.Request) {
				rw.Header().Del("Cache-Control")
				http.Error(rw, "404 page not found", http.StatusNotFound)
			},
			code: http.StatusNotFound,
		},
		{
			name:    "nothing written",
			handler: func(rw http.ResponseWriter, req *http.Request) {},
			code:    http.StatusOK,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(Inject(test.handler, fixed()))
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, test.code, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
		})
	}
}

func TestInjectOverridesSameName(t *testing.T) {
	h := Inject(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Cache-Control", "public, max-age=3600")
		rw.Header().Set("X-Base", "kept")
		_, _ = rw.Write([]byte("body"))
	}), fixed())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"no-cache, no-store, must-revalidate"}, rec.Header().Values("Cache-Control"))
	assert.Equal(t, "kept", rec.Header().Get("X-Base"))
	assert.Equal(t, "body", rec.Body.String())
}

func TestInjectReadFrom(t *testing.T) {
	h := Inject(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		n, err := rw.(*writer).ReadFrom(strings.NewReader("streamed"))
		require.NoError(t, err)
		assert.EqualValues(t, len("streamed"), n)
	}), fixed())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "streamed", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInjectDoesNotShareValues(t *testing.T) {
	h := Inject(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Header()["Cache-Control"][0] = "mutated"
	}), fixed())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Result().Header.Get("Cache-Control"))
	}
}
