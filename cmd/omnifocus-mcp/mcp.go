package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/s-morgan-jeffries/omnifocus-mcp-sub000/internal/errs"
)

const (
	mcpProtocolVersion = "2024-11-05"
	legacyToolName     = "omnifocus.call"
)

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type mcpToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolCallArguments struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// methodHandler is satisfied by *service.Service.
type methodHandler interface {
	Handle(ctx context.Context, method string, rawParams json.RawMessage) (any, error)
}

type toolGroup struct {
	Name        string
	Description string
	Methods     []string
}

var toolGroups = []toolGroup{
	{
		Name:        "omnifocus_tasks",
		Description: "Query, create, update, complete, delete and reorder OmniFocus tasks.",
		Methods: []string{
			"tasks.get",
			"tasks.create",
			"tasks.update",
			"tasks.update_batch",
			"tasks.delete",
			"tasks.reorder",
		},
	},
	{
		Name:        "omnifocus_projects",
		Description: "Query, create, update, review and delete OmniFocus projects.",
		Methods: []string{
			"projects.get",
			"projects.create",
			"projects.update",
			"projects.update_batch",
			"projects.delete",
		},
	},
	{
		Name:        "omnifocus_structure",
		Description: "List and create OmniFocus folders and tags.",
		Methods: []string{
			"folders.list",
			"folders.create",
			"tags.list",
			"tags.create",
		},
	},
	{
		Name:        "omnifocus_system",
		Description: "Inspect the live database, the safety mode and recent recorded mutations.",
		Methods: []string{
			"system.database",
			"journal.recent",
		},
	},
}

// toolGroupMethodIndex maps a group name to its method set.
var toolGroupMethodIndex map[string]map[string]bool

func init() {
	toolGroupMethodIndex = make(map[string]map[string]bool, len(toolGroups))
	for _, group := range toolGroups {
		methods := make(map[string]bool, len(group.Methods))
		for _, method := range group.Methods {
			methods[method] = true
		}
		toolGroupMethodIndex[group.Name] = methods
	}
}

func buildToolsList() []map[string]any {
	tools := make([]map[string]any, 0, len(toolGroups)+1)
	for _, group := range toolGroups {
		tools = append(tools, map[string]any{
			"name":        group.Name,
			"description": group.Description,
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"method": map[string]any{
						"type":        "string",
						"description": "Backend method name.",
						"enum":        group.Methods,
					},
					"params": map[string]any{
						"type":        "object",
						"description": "Method params object.",
						"default":     map[string]any{},
					},
				},
				"required":             []string{"method"},
				"additionalProperties": false,
			},
		})
	}
	tools = append(tools, map[string]any{
		"name":        legacyToolName,
		"description": "Call any omnifocus-mcp backend method by name.",
		"inputSchema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"method": map[string]any{
					"type":        "string",
					"description": "Backend method name (e.g. tasks.get, projects.update).",
				},
				"params": map[string]any{
					"type":        "object",
					"description": "Method params object.",
					"default":     map[string]any{},
				},
			},
			"required":             []string{"method"},
			"additionalProperties": false,
		},
	})
	return tools
}

type framing int

const (
	framingLine framing = iota
	framingContentLength
)

type framedReader struct {
	reader *bufio.Reader
}

type framedWriter struct {
	writer *bufio.Writer
}

func runServe(ctx context.Context, handler methodHandler, in io.Reader, out io.Writer) error {
	reader := framedReader{reader: bufio.NewReader(in)}
	writer := framedWriter{writer: bufio.NewWriter(out)}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		payload, mode, err := reader.ReadPayload()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("mcp read error: %w", err)
		}

		responsePayload, shouldRespond := handleMCPPayload(ctx, handler, payload)
		if !shouldRespond {
			continue
		}
		if err := writer.WritePayload(responsePayload, mode); err != nil {
			return fmt.Errorf("mcp write error: %w", err)
		}
	}
}

// ReadPayload returns the next message and the framing it arrived in. A
// line starting with '{' is a whole newline-delimited message; anything
// else starts a header block.
func (fr framedReader) ReadPayload() ([]byte, framing, error) {
	for {
		line, err := fr.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, framingLine, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err != nil {
				return nil, framingLine, io.EOF
			}
			continue
		}
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return []byte(trimmed), framingLine, nil
		}
		if err != nil {
			return nil, framingContentLength, io.ErrUnexpectedEOF
		}
		payload, err := fr.readFramed(line)
		return payload, framingContentLength, err
	}
}

func (fr framedReader) readFramed(firstHeader string) ([]byte, error) {
	contentLength := -1
	line := firstHeader
	for {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "Content-Length") {
			value := strings.TrimSpace(parts[1])
			length, convErr := strconv.Atoi(value)
			if convErr != nil || length < 0 {
				return nil, fmt.Errorf("invalid Content-Length: %q", value)
			}
			contentLength = length
		}

		next, err := fr.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = next
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(fr.reader, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (fw framedWriter) WritePayload(payload []byte, mode framing) error {
	if mode == framingContentLength {
		if _, err := fmt.Fprintf(fw.writer, "Content-Length: %d\r\n\r\n", len(payload)); err != nil {
			return err
		}
	}
	if _, err := fw.writer.Write(payload); err != nil {
		return err
	}
	if mode == framingLine {
		if err := fw.writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return fw.writer.Flush()
}

func handleMCPPayload(ctx context.Context, handler methodHandler, payload []byte) ([]byte, bool) {
	var request jsonRPCRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return mustMarshalResponse(jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &jsonRPCError{
				Code:    -32700,
				Message: "invalid JSON-RPC request",
			},
		}), true
	}

	if strings.TrimSpace(request.Method) == "" {
		return mustMarshalResponse(jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      request.ID,
			Error: &jsonRPCError{
				Code:    -32600,
				Message: "method is required",
			},
		}), true
	}

	// Notifications carry no id and get no response.
	if request.ID == nil {
		return nil, false
	}

	response := jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      request.ID,
	}

	switch request.Method {
	case "initialize":
		response.Result = map[string]any{
			"protocolVersion": mcpProtocolVersion,
			"serverInfo": map[string]any{
				"name":    "omnifocus-mcp",
				"version": version,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
		}
	case "ping":
		response.Result = map[string]any{}
	case "tools/list":
		response.Result = map[string]any{
			"tools": buildToolsList(),
		}
	case "tools/call":
		result, err := handleToolCall(ctx, handler, request.Params)
		if err != nil {
			response.Error = &jsonRPCError{
				Code:    -32602,
				Message: err.Error(),
			}
		} else {
			response.Result = result
		}
	default:
		response.Error = &jsonRPCError{
			Code:    -32601,
			Message: fmt.Sprintf("method not found: %s", request.Method),
		}
	}

	return mustMarshalResponse(response), true
}

func handleToolCall(ctx context.Context, handler methodHandler, rawParams json.RawMessage) (map[string]any, error) {
	if len(bytesTrimSpace(rawParams)) == 0 {
		return nil, fmt.Errorf("tools/call params are required")
	}

	var input mcpToolCallParams
	if err := json.Unmarshal(rawParams, &input); err != nil {
		return nil, fmt.Errorf("invalid tools/call params: %w", err)
	}

	methods, grouped := toolGroupMethodIndex[input.Name]
	if !grouped && input.Name != legacyToolName {
		return toolErrorResult(fmt.Sprintf("unknown tool: %s", input.Name)), nil
	}

	var args toolCallArguments
	if len(bytesTrimSpace(input.Arguments)) > 0 {
		if err := json.Unmarshal(input.Arguments, &args); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", input.Name, err)
		}
	}
	if strings.TrimSpace(args.Method) == "" {
		return nil, fmt.Errorf("%s requires arguments.method", input.Name)
	}
	if grouped && !methods[args.Method] {
		return toolErrorResult(fmt.Sprintf("method %s is not available in %s", args.Method, input.Name)), nil
	}

	params := args.Params
	if len(bytesTrimSpace(params)) == 0 || string(bytesTrimSpace(params)) == "null" {
		params = json.RawMessage(`{}`)
	}

	result, err := handler.Handle(ctx, args.Method, params)
	if err != nil {
		return toolFailure(err), nil
	}
	return toolSuccessResult(result)
}

func toolSuccessResult(result any) (map[string]any, error) {
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize tool result: %w", err)
	}
	return map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": string(text),
			},
		},
		"structuredContent": result,
	}, nil
}

func toolErrorResult(message string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": message,
			},
		},
		"isError": true,
	}
}

// toolFailure reports a backend error with its semantic code.
func toolFailure(err error) map[string]any {
	result := toolErrorResult(errorText(err))
	result["structuredContent"] = map[string]any{
		"error": map[string]any{
			"code":    errs.CodeOf(err),
			"message": err.Error(),
		},
	}
	return result
}

func mustMarshalResponse(response jsonRPCResponse) []byte {
	payload, err := json.Marshal(response)
	if err != nil {
		fallback := jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &jsonRPCError{
				Code:    -32603,
				Message: "failed to encode response",
			},
		}
		payload, _ = json.Marshal(fallback)
	}
	return payload
}

func bytesTrimSpace(raw []byte) []byte {
	return []byte(strings.TrimSpace(string(raw)))
}
