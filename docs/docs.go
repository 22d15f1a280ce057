// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
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
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/funding": {
            "get": {
                "produces": ["application/json"],
                "tags": ["funding"],
                "summary": "Latest normalized funding rates",
                "responses": {
                    "200": {"description": "One row per token, hourly fraction per exchange"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/funding-history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["funding"],
                "summary": "Stored funding history for one token on one exchange",
                "parameters": [
                    {"type": "string", "name": "symbol", "in": "query", "required": true},
                    {"type": "string", "name": "source", "in": "query", "required": true},
                    {"type": "integer", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Ordered [{date, funding_rate}] points"},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/opportunities": {
            "get": {
                "produces": ["application/json"],
                "tags": ["funding"],
                "summary": "Cross-exchange funding spreads",
                "parameters": [
                    {"type": "string", "name": "exchanges", "in": "query"},
                    {"type": "string", "name": "required", "in": "query"},
                    {"type": "string", "name": "timeframe", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Opportunities sorted by APR descending"},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/snapshots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["funding"],
                "summary": "Audit read over stored funding snapshots",
                "parameters": [
                    {"type": "string", "name": "symbol", "in": "query", "required": true},
                    {"type": "string", "name": "exchange", "in": "query"},
                    {"type": "integer", "name": "days", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Snapshot rows ascending by timestamp"},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/collect": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Run one collection cycle",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Cycle result with per-venue stats"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/backfill": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Backfill one (token, exchange) history partition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"type": "string", "name": "token", "in": "query", "required": true},
                    {"type": "string", "name": "source", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Number of new points written"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/backfill/all": {
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Enqueue backfills for every tracked token and history venue",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Accepted task count"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Funding Radar API",
	Description:      "Perp funding-rate normalization and arbitrage detection across seven exchanges.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
