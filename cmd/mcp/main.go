package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// JSON-RPC structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP structures
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPServer exposes the SalleBot REST API as MCP tools over stdio
type MCPServer struct {
	apiURL      string
	apiUsername string
	apiPassword string
	client      *http.Client
}

func NewMCPServer() *MCPServer {
	apiURL := os.Getenv("SALLEBOT_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return &MCPServer{
		apiURL:      strings.TrimSuffix(apiURL, "/"),
		apiUsername: os.Getenv("SALLEBOT_API_USERNAME"),
		apiPassword: os.Getenv("SALLEBOT_API_PASSWORD"),
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Run answers one JSON-RPC request per input line until in is exhausted
func (s *MCPServer) Run(in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			log.Printf("Error reading: %v", err)
			return
		}

		if trimmed := strings.TrimSpace(line); trimmed != "" {
			var req JSONRPCRequest
			if jsonErr := json.Unmarshal([]byte(trimmed), &req); jsonErr != nil {
				log.Printf("Error parsing JSON: %v", jsonErr)
			} else if req.ID != nil {
				// Requests without an ID are notifications and get no reply
				responseBytes, _ := json.Marshal(s.handleRequest(req))
				fmt.Fprintln(out, string(responseBytes))
			}
		}

		if err == io.EOF {
			return
		}
	}
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{}}
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
	result.ServerInfo.Name = "sallebot-mcp"
	result.ServerInfo.Version = "1.0.0"

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *MCPServer) handleToolsList(req JSONRPCRequest) JSONRPCResponse {
	tools := []Tool{
		{
			Name:        "sallebot_free_rooms",
			Description: "Salles libres à un instant donné (maintenant par défaut), avec l'heure jusqu'à laquelle chacune reste libre.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"at": {Type: "string", Description: "Instant au format RFC3339, par ex. 2024-03-04T10:00:00+01:00 (optionnel)"},
				},
			},
		},
		{
			Name:        "sallebot_list_rooms",
			Description: "Toutes les salles connues avec leurs réservations.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "sallebot_sync",
			Description: "Recharger le calendrier des réservations maintenant. En cas d'échec les anciennes données restent utilisées.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "sallebot_sync_history",
			Description: "Historique des synchronisations, la plus récente en premier.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"limit": {Type: "number", Description: "Nombre maximum d'entrées (10 par défaut)"},
				},
			},
		},
	}

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools}}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	var result string
	var isError bool

	switch params.Name {
	case "sallebot_free_rooms":
		path := "/api/rooms/free"
		if at, ok := params.Arguments["at"].(string); ok && at != "" {
			path += "?at=" + url.QueryEscape(at)
		}
		result, isError = s.apiRequest(http.MethodGet, path)
	case "sallebot_list_rooms":
		result, isError = s.apiRequest(http.MethodGet, "/api/rooms")
	case "sallebot_sync":
		result, isError = s.apiRequest(http.MethodPost, "/api/sync")
	case "sallebot_sync_history":
		path := "/api/sync/history"
		if limit, ok := params.Arguments["limit"].(float64); ok && limit > 0 {
			path += fmt.Sprintf("?limit=%d", int(limit))
		}
		result, isError = s.apiRequest(http.MethodGet, path)
	default:
		result = "Unknown tool: " + params.Name
		isError = true
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func (s *MCPServer) apiRequest(method, path string) (string, bool) {
	req, err := http.NewRequest(method, s.apiURL+path, nil)
	if err != nil {
		return fmt.Sprintf("Error creating request: %v", err), true
	}
	req.SetBasicAuth(s.apiUsername, s.apiPassword)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("Error making request: %v", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error reading response: %v", err), true
	}

	var apiResp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}

	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return strings.TrimSpace(string(respBody)), resp.StatusCode >= 400
	}

	if !apiResp.Success {
		return fmt.Sprintf("API Error: %s", apiResp.Error), true
	}

	var prettyData bytes.Buffer
	if err := json.Indent(&prettyData, apiResp.Data, "", "  "); err != nil {
		return string(apiResp.Data), false
	}

	return prettyData.String(), false
}

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	server := NewMCPServer()
	server.Run(os.Stdin, os.Stdout)
}
