package testserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/labspace/labnav/internal/testserver"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      any             `json:"id,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func rpcCall(t *testing.T, ts *testserver.TestServer, method string, params any) rpcResponse {
	t.Helper()

	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(bodyBytes))
	}

	var result rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestFunctional_Authentication(t *testing.T) {
	ts := testserver.New(t, "token")

	for _, path := range []string{"/rpc", "/mcp"} {
		req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path,
			bytes.NewBufferString(`{"jsonrpc":"2.0","method":"list_activities","id":1}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer wrong")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFunctional_NavigationOverRPC(t *testing.T) {
	ts := testserver.New(t, "token")

	resp := rpcCall(t, ts, "list_activities", nil)
	require.Nil(t, resp.Error)
	var list struct {
		Activities []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"activities"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	require.Len(t, list.Activities, 3)

	resp = rpcCall(t, ts, "navigate_to", map[string]any{"activity_id": "101"})
	require.Nil(t, resp.Error)
	var nav struct {
		URL   string `json:"url"`
		State struct {
			LastActivityID string   `json:"last_activity_id"`
			History        []string `json:"history"`
			Phase          string   `json:"phase"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &nav))
	require.Contains(t, nav.URL, ts.Config.Portal.StudentViewPath+"?id=101")
	require.Empty(t, nav.State.LastActivityID)
	require.Equal(t, []string{"101"}, nav.State.History)
	require.Equal(t, "confirmed", nav.State.Phase)

	resp = rpcCall(t, ts, "navigate_to", map[string]any{"activity_id": "  "})
	require.NotNil(t, resp.Error)
	require.Equal(t, "INVALID_ACTIVITY_ID", resp.Error.Data["code"])

	resp = rpcCall(t, ts, "recent_events", map[string]any{"type": "arrival_confirmed"})
	require.Nil(t, resp.Error)
	var events struct {
		Events []struct {
			ActivityID string `json:"activity_id"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &events))
	require.Len(t, events.Events, 1)
	require.Equal(t, "101", events.Events[0].ActivityID)
}

func TestFunctional_SubmissionOverRPC(t *testing.T) {
	ts := testserver.New(t, "token")
	ts.Portal.QueueReplies(testserver.JSONReply(`{"success":false,"message":"Activity is closed","error":"deadline passed"}`))

	resp := rpcCall(t, ts, "submit_code", map[string]any{"activity_id": "103", "code": "d = {}", "language": "python"})
	require.Nil(t, resp.Error)
	var sub struct {
		Outcome struct {
			Kind           string   `json:"kind"`
			Message        string   `json:"message"`
			BackupRetained bool     `json:"backup_retained"`
			Actions        []string `json:"actions"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &sub))
	require.Equal(t, "server_rejected", sub.Outcome.Kind)
	require.Equal(t, "Activity is closed", sub.Outcome.Message)
	require.True(t, sub.Outcome.BackupRetained)
	require.ElementsMatch(t, []string{"download_code", "show_details", "retry"}, sub.Outcome.Actions)

	resp = rpcCall(t, ts, "get_backup", map[string]any{"activity_id": "103"})
	require.Nil(t, resp.Error)
	var backup struct {
		Found    bool   `json:"found"`
		FileName string `json:"file_name"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &backup))
	require.True(t, backup.Found)
	require.NotEmpty(t, backup.FileName)

	resp = rpcCall(t, ts, "retry_submission", map[string]any{"activity_id": "103"})
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &sub))
	require.Equal(t, "success", sub.Outcome.Kind)

	resp = rpcCall(t, ts, "retry_submission", map[string]any{"activity_id": "103"})
	require.NotNil(t, resp.Error)
	require.Equal(t, "NO_BACKUP", resp.Error.Data["code"])

	resp = rpcCall(t, ts, "list_notifications", nil)
	require.Nil(t, resp.Error)
	require.True(t, strings.Contains(string(resp.Result), "Activity is closed"))

	resp = rpcCall(t, ts, "no_such_method", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code)
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

func TestFunctional_MCPStreamable(t *testing.T) {
	ts := testserver.New(t, "token")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: ts.Token, base: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	defer session.Close()

	require.Equal(t, "labnav", session.InitializeResult().ServerInfo.Name)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "navigate_to",
		Arguments: map[string]any{"activity_id": "102"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	reqs := ts.Portal.RequestsTo(ts.Config.Portal.StudentViewPath)
	require.Len(t, reqs, 1)
	require.Equal(t, "102", reqs[0].ActivityID)
}
