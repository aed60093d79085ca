package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/omnifocus"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/osascript"
	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/safety"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingHandler struct {
	calls  []string
	params []string
	result any
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, method string, rawParams json.RawMessage) (any, error) {
	h.calls = append(h.calls, method)
	h.params = append(h.params, string(rawParams))
	return h.result, h.err
}

func decodeResponse(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(payload, &response))
	return response
}

func TestReadPayloadFramings(t *testing.T) {
	input := "{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\n" +
		"\n" +
		"Content-Length: 37\r\n\r\n{\"jsonrpc\":\"2.0\",\"id\":2,\"method\":\"x\"}" +
		"{\"jsonrpc\":\"2.0\",\"id\":3,\"method\":\"ping\"}"
	reader := framedReader{reader: bufio.NewReader(strings.NewReader(input))}

	first, mode, err := reader.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, framingLine, mode)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(first))

	second, mode, err := reader.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, framingContentLength, mode)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"method":"x"}`, string(second))

	third, mode, err := reader.ReadPayload()
	require.NoError(t, err)
	assert.Equal(t, framingLine, mode)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"method":"ping"}`, string(third))

	_, _, err = reader.ReadPayload()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadPayloadRejectsBadHeaders(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "missing length", input: "X-Other: 1\r\n\r\n{}"},
		{name: "negative length", input: "Content-Length: -4\r\n\r\n{}"},
		{name: "truncated headers", input: "Content-Length: 2\r\n"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			reader := framedReader{reader: bufio.NewReader(strings.NewReader(testCase.input))}
			_, _, err := reader.ReadPayload()
			require.Error(t, err)
			assert.NotErrorIs(t, err, io.EOF)
		})
	}
}

func TestWritePayloadMirrorsFraming(t *testing.T) {
	var out bytes.Buffer
	writer := framedWriter{writer: bufio.NewWriter(&out)}

	require.NoError(t, writer.WritePayload([]byte(`{"a":1}`), framingLine))
	require.NoError(t, writer.WritePayload([]byte(`{"b":2}`), framingContentLength))

	assert.Equal(t, "{\"a\":1}\nContent-Length: 7\r\n\r\n{\"b\":2}", out.String())
}

func TestHandleMCPPayloadProtocol(t *testing.T) {
	handler := &recordingHandler{}

	payload, ok := handleMCPPayload(context.Background(), handler, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	require.True(t, ok)
	result := decodeResponse(t, payload)["result"].(map[string]any)
	assert.Equal(t, mcpProtocolVersion, result["protocolVersion"])
	assert.Equal(t, "omnifocus-mcp", result["serverInfo"].(map[string]any)["name"])

	_, ok = handleMCPPayload(context.Background(), handler, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.False(t, ok)

	payload, ok = handleMCPPayload(context.Background(), handler, []byte(`not json`))
	require.True(t, ok)
	assert.EqualValues(t, -32700, decodeResponse(t, payload)["error"].(map[string]any)["code"])

	payload, _ = handleMCPPayload(context.Background(), handler, []byte(`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`))
	assert.EqualValues(t, -32601, decodeResponse(t, payload)["error"].(map[string]any)["code"])

	payload, _ = handleMCPPayload(context.Background(), handler, []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`))
	tools := decodeResponse(t, payload)["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, len(toolGroups)+1)
	assert.Empty(t, handler.calls)
}

func TestHandleToolCallRouting(t *testing.T) {
	testCases := []struct {
		name       string
		params     string
		wantCalls  []string
		wantParams []string
		wantError  bool
	}{
		{
			name:       "group tool",
			params:     `{"name":"omnifocus_tasks","arguments":{"method":"tasks.get","params":{"flagged":true}}}`,
			wantCalls:  []string{"tasks.get"},
			wantParams: []string{`{"flagged":true}`},
		},
		{
			name:       "legacy tool defaults params",
			params:     `{"name":"omnifocus.call","arguments":{"method":"system.database"}}`,
			wantCalls:  []string{"system.database"},
			wantParams: []string{`{}`},
		},
		{
			name:      "method outside group",
			params:    `{"name":"omnifocus_system","arguments":{"method":"tasks.delete","params":{"task_ids":["a"]}}}`,
			wantError: true,
		},
		{
			name:      "unknown tool",
			params:    `{"name":"omnifocus_reviews","arguments":{"method":"tasks.get"}}`,
			wantError: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := &recordingHandler{result: map[string]any{"count": 0}}
			result, err := handleToolCall(context.Background(), handler, json.RawMessage(testCase.params))
			require.NoError(t, err)

			if testCase.wantError {
				assert.Equal(t, true, result["isError"])
				assert.Empty(t, handler.calls)
				return
			}
			assert.Nil(t, result["isError"])
			if diff := cmp.Diff(testCase.wantCalls, handler.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(testCase.wantParams, handler.params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleToolCallMissingMethod(t *testing.T) {
	_, err := handleToolCall(context.Background(), &recordingHandler{}, json.RawMessage(`{"name":"omnifocus.call","arguments":{}}`))
	assert.Error(t, err)

	_, err = handleToolCall(context.Background(), &recordingHandler{}, nil)
	assert.Error(t, err)
}

func TestHandleToolCallReportsErrorCode(t *testing.T) {
	handler := &recordingHandler{err: errs.NotFound("task", "abc")}

	result, err := handleToolCall(context.Background(), handler, json.RawMessage(`{"name":"omnifocus_tasks","arguments":{"method":"tasks.update","params":{"task_id":"abc"}}}`))
	require.NoError(t, err)
	assert.Equal(t, true, result["isError"])

	content := result["content"].([]map[string]any)
	assert.Equal(t, "NOT_FOUND: task not found: abc", content[0]["text"])
	structured := result["structuredContent"].(map[string]any)["error"].(map[string]any)
	assert.Equal(t, errs.CodeNotFound, structured["code"])
}

func TestRunServeRoundTrip(t *testing.T) {
	handler := &recordingHandler{result: map[string]any{"tasks": []any{}, "count": 0}}
	call := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"omnifocus_tasks","arguments":{"method":"tasks.get"}}}`
	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" + call + "\n"

	var out bytes.Buffer
	require.NoError(t, runServe(context.Background(), handler, strings.NewReader(input), &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	response := decodeResponse(t, []byte(lines[0]))
	assert.EqualValues(t, 7, response["id"])
	structured := response["result"].(map[string]any)["structuredContent"].(map[string]any)
	assert.EqualValues(t, 0, structured["count"])
	assert.Equal(t, []string{"tasks.get"}, handler.calls)
}

func TestRunCheck(t *testing.T) {
	color.NoColor = true

	testCases := []struct {
		name     string
		guard    safety.Config
		database string
		want     string
	}{
		{name: "production", guard: safety.Config{Mode: safety.ModeProduction}, database: "OmniFocus", want: "production mode"},
		{name: "matching target", guard: safety.Config{Mode: safety.ModeTest, Target: "Sandbox"}, database: "Sandbox", want: "matches the target"},
		{name: "mismatch", guard: safety.Config{Mode: safety.ModeTest, Target: "Sandbox"}, database: "OmniFocus", want: `expected database "Sandbox"`},
		{name: "no target", guard: safety.Config{Mode: safety.ModeTest}, database: "Sandbox", want: "every mutation will be refused"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var labels []string
			runner := osascript.RunnerFunc(func(_ context.Context, request osascript.Request) (string, error) {
				labels = append(labels, request.Label)
				return testCase.database + "\n", nil
			})
			client, err := omnifocus.New(omnifocus.Config{Safety: testCase.guard}, runner, nil)
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, runCheck(context.Background(), &out, client, testCase.guard))
			assert.Contains(t, out.String(), `database "`+testCase.database+`"`)
			assert.Contains(t, out.String(), testCase.want)
			assert.Equal(t, []string{"system.database"}, labels)
		})
	}
}

func TestRunCheckUnreachable(t *testing.T) {
	color.NoColor = true
	runner := osascript.RunnerFunc(func(context.Context, osascript.Request) (string, error) {
		return "", &errs.TransportError{Message: "exit status 1", Stderr: "execution error: OmniFocus got an error: Application isn't running. (-600)"}
	})
	client, err := omnifocus.New(omnifocus.Config{}, runner, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	err = runCheck(context.Background(), &out, client, safety.Config{})
	assert.Equal(t, errs.CodeTransport, errs.CodeOf(err))
	assert.Contains(t, out.String(), "OmniFocus unreachable: TRANSPORT_ERROR")
}
