package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
	// ErrApplication carries a mapped domain error in its data member.
	ErrApplication = -32000
)

// MaxRequestBytes caps a single RPC body. Submitted code is the largest
// payload a caller sends.
const MaxRequestBytes = 2 << 20

var (
	errParse          = errors.New("parse error")
	errInvalidRequest = errors.New("invalid request")
)

// Request is a JSON-RPC 2.0 call. ID is kept raw so string and numeric ids
// are echoed back exactly as sent.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the caller expects no response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ParseRequest decodes one call. Batches are not accepted.
func ParseRequest(body io.Reader) (Request, error) {
	raw, err := io.ReadAll(io.LimitReader(body, MaxRequestBytes+1))
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", errParse, err)
	}
	if len(raw) > MaxRequestBytes {
		return Request{}, fmt.Errorf("%w: body exceeds %d bytes", errInvalidRequest, MaxRequestBytes)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return Request{}, fmt.Errorf("%w: batch calls are not supported", errInvalidRequest)
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", errParse, err)
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return Request{}, errInvalidRequest
	}
	if bytes.Equal(req.ID, []byte("null")) {
		req.ID = nil
	}
	return req, nil
}

// parseErrorCode maps a ParseRequest failure to its JSON-RPC code.
func parseErrorCode(err error) int {
	if errors.Is(err, errParse) {
		return ErrParseCode
	}
	return ErrInvalidReq
}

func WriteResult(w http.ResponseWriter, id json.RawMessage, result any) {
	writeJSON(w, Response{JSONRPC: "2.0", Result: result, ID: id})
}

func WriteError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      id,
	})
}

func writeJSON(w http.ResponseWriter, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
