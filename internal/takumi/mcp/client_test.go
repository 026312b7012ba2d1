package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bdobrica/Takumi/internal/takumi/mcp"
)

// newToolServer returns an httptest server speaking just enough of the
// protocol for the client: initialize, tools/list, and tools/call.
func newToolServer(t *testing.T, tools []mcp.Tool, callResult mcp.CallToolResult, listErr *mcp.ResponseError) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mcp.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("server could not decode request: %v", err)
			return
		}
		resp := mcp.Response{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "initialize":
			resp.Result = mcp.InitializeResult{
				ProtocolVersion: "2024-11-05",
				ServerInfo:      mcp.ServerInfo{Name: "fake", Version: "1"},
			}
		case "tools/list":
			if listErr != nil {
				resp.Error = listErr
			} else {
				resp.Result = mcp.ListToolsResult{Tools: tools}
			}
		case "tools/call":
			resp.Result = callResult
		default:
			resp.Error = &mcp.ResponseError{Code: -32601, Message: "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func connectHTTP(t *testing.T, c *mcp.Client, name, url string) {
	t.Helper()
	err := c.Connect(context.Background(), name, mcp.ServerConfig{Transport: "http", URL: url})
	if err != nil {
		t.Fatalf("Connect(%s): %v", name, err)
	}
}

func TestClientLifecycle(t *testing.T) {
	srv := newToolServer(t,
		[]mcp.Tool{{Name: "write", Description: "writes a file", InputSchema: map[string]any{"type": "object"}}},
		mcp.CallToolResult{Content: []mcp.ContentItem{{Type: "text", Text: `{"status":"written"}`}}},
		nil,
	)
	defer srv.Close()

	c := mcp.NewClient()
	connectHTTP(t, c, "fs", srv.URL)

	bindings := c.Bindings()
	if len(bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(bindings))
	}
	if bindings[0].Definition.Function.Name != "fs.write" {
		t.Errorf("qualified name = %q, want fs.write", bindings[0].Definition.Function.Name)
	}
	if bindings[0].Server != "fs" || bindings[0].RemoteName != "write" {
		t.Errorf("binding = %+v", bindings[0])
	}

	result, err := c.Call(context.Background(), "fs.write", map[string]interface{}{"file_path": "a.txt"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	m, ok := result.(map[string]interface{})
	if !ok || m["status"] != "written" {
		t.Errorf("result = %#v, want parsed JSON object", result)
	}

	if err := c.Disconnect("fs"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	// Second disconnect is a no-op.
	if err := c.Disconnect("fs"); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}

func TestClientDiscoveryFailureIsNonFatal(t *testing.T) {
	srv := newToolServer(t, nil, mcp.CallToolResult{}, &mcp.ResponseError{Code: -32000, Message: "listing broken"})
	defer srv.Close()

	c := mcp.NewClient()
	connectHTTP(t, c, "broken", srv.URL)

	tools, err := c.ListTools("broken")
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("got %d tools, want 0 after failed discovery", len(tools))
	}
}

func TestClientInitializeFailureAbortsConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mcp.Request
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(mcp.Response{
			JSONRPC: "2.0", ID: req.ID,
			Error: &mcp.ResponseError{Code: -32600, Message: "unsupported client"},
		})
	}))
	defer srv.Close()

	c := mcp.NewClient()
	err := c.Connect(context.Background(), "bad", mcp.ServerConfig{Transport: "http", URL: srv.URL})
	if err == nil {
		t.Fatal("Connect succeeded despite initialize error")
	}
	if _, err := c.ListTools("bad"); !errors.Is(err, mcp.ErrServerNotFound) {
		t.Errorf("failed server was registered anyway: %v", err)
	}
}

func TestClientStdioConnectFailure(t *testing.T) {
	c := mcp.NewClient()
	err := c.Connect(context.Background(), "ghost", mcp.ServerConfig{
		Transport: "stdio",
		Command:   "/nonexistent/takumi-test-server",
	})
	if err == nil {
		t.Fatal("Connect succeeded with a nonexistent command")
	}
	if _, err := c.ListTools("ghost"); !errors.Is(err, mcp.ErrServerNotFound) {
		t.Errorf("failed server was registered anyway: %v", err)
	}
}

func TestClientCallUnknownServer(t *testing.T) {
	c := mcp.NewClient()
	if _, err := c.Call(context.Background(), "nowhere.tool", nil); !errors.Is(err, mcp.ErrServerNotFound) {
		t.Fatalf("Call error = %v, want ErrServerNotFound", err)
	}
	if _, err := c.Call(context.Background(), "nodot", nil); err == nil {
		t.Fatal("Call with unqualified name must fail")
	}
}

func TestClientRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mcp.Request
		json.NewDecoder(r.Body).Decode(&req)
		resp := mcp.Response{JSONRPC: "2.0", ID: req.ID}
		if req.Method == "tools/call" {
			resp.Error = &mcp.ResponseError{Code: -32000, Message: "disk full"}
		} else if req.Method == "initialize" {
			resp.Result = mcp.InitializeResult{}
		} else {
			resp.Result = mcp.ListToolsResult{Tools: []mcp.Tool{{Name: "write"}}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := mcp.NewClient()
	connectHTTP(t, c, "fs", srv.URL)

	_, err := c.Call(context.Background(), "fs.write", nil)
	if err == nil {
		t.Fatal("expected remote error")
	}
	var rpcErr *mcp.ResponseError
	if !errors.As(err, &rpcErr) || rpcErr.Message != "disk full" {
		t.Errorf("error = %v, want wrapped remote message", err)
	}
}

func TestClientBearerAndHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Team")
		var req mcp.Request
		json.NewDecoder(r.Body).Decode(&req)
		resp := mcp.Response{JSONRPC: "2.0", ID: req.ID}
		if req.Method == "initialize" {
			resp.Result = mcp.InitializeResult{}
		} else {
			resp.Result = mcp.ListToolsResult{}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := mcp.NewClient()
	err := c.Connect(context.Background(), "secure", mcp.ServerConfig{
		Transport: "http",
		URL:       srv.URL,
		Token:     "s3cret",
		Headers:   map[string]string{"X-Team": "platform"},
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/json, text/event-stream" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotCustom != "platform" {
		t.Errorf("X-Team = %q", gotCustom)
	}
}
