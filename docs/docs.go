// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/main.go
package docs

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
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Operator sign-in",
                "parameters": [
                    {"description": "credentials", "name": "input", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/handlers.authCredentials"}}
                ],
                "responses": {"200": {"description": "token"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/v1/packets": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["packets"],
                "summary": "Push one telemetry event",
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Unknown device"},
                    "422": {"description": "Undecodable packet"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/v1/devices/{id}/series/{series}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Series points",
                "parameters": [
                    {"type": "string", "description": "Device id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Series name", "name": "series", "in": "path", "required": true},
                    {"type": "string", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of range", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "device_id, series, count, points"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/devices/{id}/deviations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "List deviations",
                "parameters": [
                    {"type": "string", "description": "Device id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Start of range", "name": "from", "in": "query"},
                    {"type": "string", "description": "End of range", "name": "to", "in": "query"},
                    {"enum": ["co2", "moisture", "temperature"], "type": "string", "name": "kind", "in": "query"}
                ],
                "responses": {"200": {"description": "count, deviations"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/devices/{id}/snapshot": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Latest derived state",
                "parameters": [
                    {"type": "string", "description": "Device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/devices/{id}/backfill": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Backfill hourly energy",
                "parameters": [
                    {"type": "string", "description": "Device id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "device_id, written"}, "500": {"description": "backfill incomplete"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["devices"],
                "summary": "Device snapshot stream",
                "parameters": [
                    {"type": "string", "description": "Device id", "name": "device_id", "in": "query", "required": true},
                    {"type": "string", "description": "Push interval", "name": "interval", "in": "query"},
                    {"type": "integer", "description": "Push interval in milliseconds", "name": "interval_ms", "in": "query"}
                ],
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "password": {"type": "string"},
                "username": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Building Telemetry API",
	Description:      "Derived occupancy, power and deviation series of building sensors.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
