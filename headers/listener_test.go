package headers

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{
		Handler: Inject(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			_, _ = rw.Write([]byte("hello"))
		}), fixed()),
	}
	go func() {
		_ = srv.Serve(Listener(ln, fixed()))
	}()
	t.Cleanup(func() {
		_ = srv.Close()
	})
	return ln.Addr().String()
}

func rawRequest(t *testing.T, addr, request string) (*http.Response, string) {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(c, request)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(c), nil)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, string(body)
}

func TestListener(t *testing.T) {
	addr := startServer(t)

	tests := []struct {
		name    string
		request string
		status  int
		body    string
	}{
		{
			name:    "bad escape in path",
			request: "GET /%zz HTTP/1.1\r\nHost: localhost\r\n\r\n",
			status:  http.StatusBadRequest,
			body:    "400 Bad Request",
		},
		{
			name:    "garbage request line",
			request: "NONSENSE\r\n\r\n",
			status:  http.StatusBadRequest,
			body:    "400 Bad Request",
		},
		{
			name:    "handled request",
			request: "GET / HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n",
			status:  http.StatusOK,
			body:    "hello",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			resp, body := rawRequest(t, addr, test.request)

			assert.Equal(t, test.status, resp.StatusCode)
			assert.Contains(t, body, test.body)
			assert.Equal(t, []string{"*"}, resp.Header.Values("Access-Control-Allow-Origin"))
			assert.Equal(t, []string{"no-cache, no-store, must-revalidate"}, resp.Header.Values("Cache-Control"))
		})
	}
}

func TestListenerWithoutHeaders(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.NotFoundHandler()}
	go func() {
		_ = srv.Serve(Listener(ln, http.Header{}))
	}()
	defer srv.Close()

	resp, body := rawRequest(t, ln.Addr().String(), "GET /%zz HTTP/1.1\r\nHost: localhost\r\n\r\n")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "400 Bad Request")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
