package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// transport carries one JSON-RPC request to the server and returns its
// response. Implementations own the underlying resource until close.
type transport interface {
	roundTrip(ctx context.Context, req *Request) (*Response, error)
	close() error
}

// --- stdio transport ---

// stdioTransport frames one JSON object per line over a child process's
// stdin/stdout. The framing has no multiplexing: the response to a request is
// exactly the next line, so at most one request may be in flight. The mutex
// enforces that invariant.
type stdioTransport struct {
	mu     sync.Mutex
	writer io.Writer
	reader *bufio.Scanner

	cmd   *exec.Cmd
	stdin io.Closer
}

// newStdioPipe wraps an already-connected write/read pair. The exec-based
// constructor and the tests both build on it.
func newStdioPipe(w io.Writer, r io.Reader) *stdioTransport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1MB per line
	return &stdioTransport{writer: w, reader: scanner}
}

// newStdioTransport spawns the server process with piped stdin/stdout and the
// supplied environment merged over the parent's.
func newStdioTransport(command string, args []string, env map[string]string) (*stdioTransport, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start server process: %w", err)
	}

	t := newStdioPipe(stdin, stdout)
	t.cmd = cmd
	t.stdin = stdin
	return t, nil
}

func (t *stdioTransport) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.writer, "%s\n", data); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	if !t.reader.Scan() {
		if err := t.reader.Err(); err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return nil, fmt.Errorf("read response: server closed its output")
	}
	var resp Response
	if err := json.Unmarshal(t.reader.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.ID != req.ID {
		slog.Warn("mcp: response id does not match request id", "request_id", req.ID, "response_id", resp.ID)
	}
	return &resp, nil
}

// close signals the child to terminate and awaits its exit. In-memory pipes
// (no process attached) just close the write side.
func (t *stdioTransport) close() error {
	if t.stdin != nil {
		t.stdin.Close()
	}
	if t.cmd == nil {
		return nil
	}
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Signal(syscall.SIGTERM)
	}
	if err := t.cmd.Wait(); err != nil {
		// SIGTERM shows up as an exit error; not a cleanup failure.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("await server exit: %w", err)
		}
	}
	return nil
}

// --- HTTP transport ---

// httpTransport POSTs each JSON-RPC envelope to a fixed URL over a persistent
// session. Calls are independent requests, so the transport itself supports
// concurrency; ordering is the caller's concern.
type httpTransport struct {
	url     string
	token   string
	headers map[string]string
	client  *http.Client
}

func newHTTPTransport(url, token string, headers map[string]string, timeout time.Duration) *httpTransport {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &httpTransport{
		url:     url,
		token:   token,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *httpTransport) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("http status %d: %s", httpResp.StatusCode, bytes.TrimSpace(body))
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// close releases the session's idle connections.
func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}
