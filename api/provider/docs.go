// Package provider holds the OpenAPI document served at /swagger/.
// Regenerate it with go generate ./internal/provider/http after changing
// handler annotations.
package provider

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/grantd"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/livez": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness Check Endpoint",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "service not ready", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/v1/bootstrap": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bootstrap"],
                "summary": "Bootstrap the authorization server",
                "parameters": [
                    {"type": "string", "description": "Bootstrap token for authorization", "name": "X-Bootstrap-Token", "in": "header", "required": true},
                    {"description": "Bootstrap configuration", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.BootstrapRequest"}}
                ],
                "responses": {
                    "201": {"description": "The first client and its secret", "schema": {"$ref": "#/definitions/authsdk.CreateClientResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/authsdk.ValidationErrorResponse"}},
                    "401": {"description": "Missing or invalid bootstrap token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "Bootstrap not enabled", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "Already bootstrapped", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/clients": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "List OAuth2 Clients",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.ListClientsResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Create OAuth2 Client",
                "parameters": [
                    {"description": "Client creation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.CreateClientRequest"}}
                ],
                "responses": {
                    "201": {"description": "client and its secret", "schema": {"$ref": "#/definitions/authsdk.CreateClientResponse"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/clients/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Get OAuth2 Client",
                "parameters": [{"type": "string", "description": "Client ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.ClientInfo"}},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/clients/{id}/secret": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Rotate Client Secret",
                "parameters": [{"type": "string", "description": "Client ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.RotateSecretResponse"}},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/clients/{id}/revoke": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Clients"],
                "summary": "Revoke OAuth2 Client",
                "parameters": [{"type": "string", "description": "Client ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "Client revoked"},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/clients/{id}/redirect-uris": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Clients"],
                "summary": "Add Redirect URI",
                "parameters": [
                    {"type": "string", "description": "Client ID", "name": "id", "in": "path", "required": true},
                    {"description": "Redirect URI", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RedirectURIRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.ClientInfo"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["Clients"],
                "summary": "Remove Redirect URI",
                "parameters": [
                    {"type": "string", "description": "Client ID", "name": "id", "in": "path", "required": true},
                    {"description": "Redirect URI", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RedirectURIRequest"}}
                ],
                "responses": {
                    "204": {"description": "Redirect URI removed"},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/oauth2/authorize": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "OAuth2 authorization endpoint",
                "parameters": [
                    {"enum": ["code", "token"], "type": "string", "description": "code or token", "name": "response_type", "in": "query", "required": true},
                    {"type": "string", "description": "OAuth2 client identifier", "name": "client_id", "in": "query", "required": true},
                    {"type": "string", "description": "Callback URI, required unless exactly one is registered", "name": "redirect_uri", "in": "query"},
                    {"type": "string", "description": "Space-delimited list of scopes", "name": "scope", "in": "query"},
                    {"type": "string", "description": "Opaque value echoed on the redirect", "name": "state", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Redirect to redirect_uri", "schema": {"type": "string"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "OAuth2 authorization endpoint",
                "parameters": [
                    {"enum": ["code", "token"], "type": "string", "description": "code or token", "name": "response_type", "in": "query", "required": true},
                    {"type": "string", "description": "OAuth2 client identifier", "name": "client_id", "in": "query", "required": true},
                    {"type": "string", "description": "Callback URI, required unless exactly one is registered", "name": "redirect_uri", "in": "query"},
                    {"type": "string", "description": "Space-delimited list of scopes", "name": "scope", "in": "query"},
                    {"type": "string", "description": "Opaque value echoed on the redirect", "name": "state", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Redirect to redirect_uri", "schema": {"type": "string"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/oauth2/introspect": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "OAuth2 Token Introspection Endpoint",
                "parameters": [
                    {"type": "string", "description": "Basic client credentials", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "description": "Access or refresh token", "name": "token", "in": "formData", "required": true},
                    {"enum": ["access_token", "refresh_token"], "type": "string", "description": "Hint about token type", "name": "token_type_hint", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "active, client_id, user_id, scope, token_type, exp, iat", "schema": {"$ref": "#/definitions/authsdk.IntrospectionResponse"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/oauth2/revoke": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "OAuth2 Token Revocation Endpoint",
                "parameters": [
                    {"type": "string", "description": "Basic client credentials", "name": "Authorization", "in": "header", "required": true},
                    {"type": "string", "description": "The token to revoke", "name": "token", "in": "formData", "required": true},
                    {"enum": ["access_token", "refresh_token"], "type": "string", "description": "Hint about token type", "name": "token_type_hint", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "Token revoked (or was unknown)"},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "405": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/oauth2/token": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["OAuth2"],
                "summary": "OAuth2 Token Endpoint",
                "parameters": [
                    {"type": "string", "description": "Basic client credentials", "name": "Authorization", "in": "header", "required": true},
                    {"enum": ["password", "refresh_token", "authorization_code"], "type": "string", "description": "Grant type", "name": "grant_type", "in": "formData", "required": true},
                    {"type": "string", "description": "Username (password grant)", "name": "username", "in": "formData"},
                    {"type": "string", "description": "Password (password grant)", "name": "password", "in": "formData"},
                    {"type": "string", "description": "Refresh token (refresh_token grant)", "name": "refresh_token", "in": "formData"},
                    {"type": "string", "description": "User the refresh token was issued for (refresh_token grant)", "name": "user_id", "in": "formData"},
                    {"type": "string", "description": "Authorization code (authorization_code grant)", "name": "code", "in": "formData"},
                    {"type": "string", "description": "Must match the authorize request when supplied", "name": "redirect_uri", "in": "formData"},
                    {"type": "string", "description": "Space-delimited list of scopes", "name": "scope", "in": "formData"}
                ],
                "responses": {
                    "200": {
                        "description": "access_token, refresh_token, token_type, expires_in, user_id",
                        "schema": {"$ref": "#/definitions/authsdk.TokenResponse"},
                        "headers": {
                            "Cache-Control": {"type": "string", "description": "no-store"},
                            "Pragma": {"type": "string", "description": "no-cache"}
                        }
                    },
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "405": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "500": {"description": "error, error_description", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.BootstrapRequest": {
            "type": "object",
            "properties": {
                "client_name": {"type": "string"},
                "redirect_uris": {"type": "array", "items": {"type": "string"}}
            }
        },
        "authsdk.ClientInfo": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "name": {"type": "string"},
                "redirect_uris": {"type": "array", "items": {"type": "string"}},
                "revoked": {"type": "boolean"},
                "revoked_at": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "authsdk.CreateClientRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "redirect_uris": {"type": "array", "items": {"type": "string"}}
            }
        },
        "authsdk.CreateClientResponse": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "name": {"type": "string"},
                "redirect_uris": {"type": "array", "items": {"type": "string"}},
                "revoked": {"type": "boolean"},
                "revoked_at": {"type": "string"},
                "created_at": {"type": "string"},
                "client_secret": {"type": "string"}
            }
        },
        "authsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"}
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "authsdk.IntrospectionResponse": {
            "type": "object",
            "properties": {
                "active": {"type": "boolean"},
                "client_id": {"type": "string"},
                "user_id": {"type": "string"},
                "scope": {"type": "string"},
                "token_type": {"type": "string"},
                "exp": {"type": "integer"},
                "iat": {"type": "integer"}
            }
        },
        "authsdk.ListClientsResponse": {
            "type": "object",
            "properties": {
                "clients": {"type": "array", "items": {"$ref": "#/definitions/authsdk.ClientInfo"}}
            }
        },
        "authsdk.RedirectURIRequest": {
            "type": "object",
            "properties": {
                "uri": {"type": "string"}
            }
        },
        "authsdk.RotateSecretResponse": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "client_secret": {"type": "string"}
            }
        },
        "authsdk.TokenResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "user_id": {"type": "string"},
                "scope": {"type": "string"}
            }
        },
        "authsdk.ValidationErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_description": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session JWT (HS256). Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "grantd OAuth2 Authorization Server API",
	Description:      "OAuth2 authorization server issuing opaque bearer tokens through the password, refresh_token and authorization_code grants, plus the implicit grant on the authorize endpoint.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
