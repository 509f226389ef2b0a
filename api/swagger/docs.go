// Package swagger registers the OpenAPI description of the zabbixdash
// HTTP API with swag. It matches the annotations on the server handlers.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/health": {
			"get": {
				"description": "Returns service health status with version information.",
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Health check",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/server.HealthResponse"
						}
					}
				}
			}
		},
		"/session": {
			"get": {
				"description": "Returns the current session without its token. With probe=true the server's API version is queried as well.",
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Get session",
				"parameters": [
					{
						"type": "boolean",
						"description": "Query apiinfo.version",
						"name": "probe",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Current session",
						"schema": {
							"$ref": "#/definitions/server.SessionResponse"
						}
					},
					"502": {
						"description": "Zabbix unreachable",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			},
			"post": {
				"description": "Logs in to a Zabbix server with user.login and persists the session.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"session"
				],
				"summary": "Log in",
				"parameters": [
					{
						"description": "Credentials; server_url defaults to zabbix.url",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/server.LoginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Session established",
						"schema": {
							"$ref": "#/definitions/server.SessionResponse"
						}
					},
					"400": {
						"description": "Missing fields or malformed body",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"401": {
						"description": "Login rejected",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			},
			"delete": {
				"description": "Clears the persisted session. Never contacts Zabbix.",
				"tags": [
					"session"
				],
				"summary": "Log out",
				"responses": {
					"204": {
						"description": "Session cleared"
					},
					"500": {
						"description": "Storage failure",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/hosts": {
			"get": {
				"description": "Runs host.get sorted by name.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "List hosts",
				"parameters": [
					{
						"type": "string",
						"description": "Match host names containing this term",
						"name": "search",
						"in": "query"
					},
					{
						"type": "array",
						"description": "Restrict to host group ids",
						"name": "groupid",
						"in": "query",
						"items": {
							"type": "string"
						},
						"collectionFormat": "multi"
					}
				],
				"responses": {
					"200": {
						"description": "Raw host.get result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/hosts/{hostid}/items": {
			"get": {
				"description": "Runs item.get for one host.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "List items of a host",
				"parameters": [
					{
						"type": "string",
						"description": "Host id",
						"name": "hostid",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Match item names containing this term",
						"name": "search",
						"in": "query"
					},
					{
						"type": "array",
						"description": "Exact item keys",
						"name": "key",
						"in": "query",
						"items": {
							"type": "string"
						},
						"collectionFormat": "multi"
					}
				],
				"responses": {
					"200": {
						"description": "Raw item.get result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/hostgroups": {
			"get": {
				"description": "Runs hostgroup.get.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "List host groups",
				"parameters": [
					{
						"type": "boolean",
						"description": "Only groups that contain hosts",
						"name": "real_hosts",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Raw hostgroup.get result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/triggers": {
			"get": {
				"description": "Runs trigger.get, newest change first.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "List recent triggers",
				"parameters": [
					{
						"type": "array",
						"description": "Restrict to host ids",
						"name": "hostid",
						"in": "query",
						"items": {
							"type": "string"
						},
						"collectionFormat": "multi"
					},
					{
						"type": "integer",
						"description": "Maximum number of triggers (default 10)",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Raw trigger.get result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"400": {
						"description": "Invalid query",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/problems": {
			"get": {
				"description": "Runs problem.get, newest first.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "List problems",
				"parameters": [
					{
						"type": "string",
						"description": "Lower bound, unix seconds or RFC 3339",
						"name": "from",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Upper bound, unix seconds or RFC 3339",
						"name": "till",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Maximum number of problems (default 10)",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Raw problem.get result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"400": {
						"description": "Invalid query",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/history": {
			"get": {
				"description": "Runs history.get, oldest first.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "Item history",
				"parameters": [
					{
						"type": "array",
						"description": "Item ids",
						"name": "itemid",
						"in": "query",
						"items": {
							"type": "string"
						},
						"collectionFormat": "multi",
						"required": true
					},
					{
						"type": "string",
						"description": "Lower bound, unix seconds or RFC 3339",
						"name": "from",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Upper bound, unix seconds or RFC 3339",
						"name": "till",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Maximum number of points (default 100)",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "History value type 0-4",
						"name": "type",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "Raw history.get result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"400": {
						"description": "Invalid query",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/overview": {
			"get": {
				"description": "Counts hosts, disabled hosts and recent triggers.",
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "Dashboard overview",
				"parameters": [],
				"responses": {
					"200": {
						"description": "Summary",
						"schema": {
							"$ref": "#/definitions/overview.Summary"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/rpc": {
			"post": {
				"description": "Forwards any API method with the session token attached. user.login and user.logout are refused.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"data"
				],
				"summary": "Raw API call",
				"parameters": [
					{
						"description": "Method and params",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/server.RPCRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Raw result",
						"schema": {
							"$ref": "#/definitions/server.ResultResponse"
						}
					},
					"400": {
						"description": "Missing or reserved method",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"401": {
						"description": "Not authenticated or session expired",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					},
					"502": {
						"description": "Zabbix API or transport error",
						"schema": {
							"$ref": "#/definitions/server.Problem"
						}
					}
				}
			}
		},
		"/events": {
			"get": {
				"description": "WebSocket stream of session.state, session.established and session.cleared messages.",
				"tags": [
					"session"
				],
				"summary": "Session event stream",
				"responses": {
					"101": {
						"description": "Switching protocols"
					}
				}
			}
		}
	},
	"definitions": {
		"server.Problem": {
			"type": "object",
			"properties": {
				"type": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"status": {
					"type": "integer"
				},
				"detail": {
					"type": "string"
				},
				"instance": {
					"type": "string"
				},
				"code": {
					"type": "integer"
				}
			}
		},
		"server.HealthResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"service": {
					"type": "string"
				},
				"version": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				}
			}
		},
		"server.SessionResponse": {
			"type": "object",
			"properties": {
				"authenticated": {
					"type": "boolean"
				},
				"server_url": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"api_version": {
					"type": "string"
				}
			}
		},
		"server.LoginRequest": {
			"type": "object",
			"properties": {
				"server_url": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"server.RPCRequest": {
			"type": "object",
			"properties": {
				"method": {
					"type": "string"
				},
				"params": {
					"type": "object"
				}
			}
		},
		"server.ResultResponse": {
			"type": "object",
			"properties": {
				"result": {
					"description": "Zabbix result, passed through unchanged"
				}
			}
		},
		"overview.Summary": {
			"type": "object",
			"properties": {
				"total_hosts": {
					"type": "integer"
				},
				"disabled_hosts": {
					"type": "integer"
				},
				"availability_percent": {
					"type": "integer"
				},
				"trigger_count": {
					"type": "integer"
				}
			}
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:		  "0.1.0",
	Host:			 "",
	BasePath:		 "/api/v1",
	Schemes:		  []string{},
	Title:			"zabbixdash API",
	Description:	  "Session and data API for the Zabbix dashboard.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:		"{{",
	RightDelim:	   "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
