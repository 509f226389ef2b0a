// Package zabbix is a thin client for the Zabbix JSON-RPC API.
//
// Results are returned as json.RawMessage and never interpreted here;
// entity shapes belong to the server's schema and the consumers of this package.
package zabbix

import "encoding/json"

// Version is the JSON-RPC protocol version sent in every envelope.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
	Auth    string `json:"auth,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result
// and Error is set by a well-behaved server.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// RPCError is the error member of a response. Zabbix puts the useful
// text in Data and a generic phrase in Message.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// LoginParams are the user.login parameters.
type LoginParams struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// emptyParams is sent for methods without parameters so the server
// sees an object rather than null.
var emptyParams = map[string]any{}
