// Package docs serves the OpenAPI description of the memomeet API through Swagger UI.
package docs

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "dev",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "memomeet API",
	Description:      "Meeting summaries paid with prepaid credits or a subscription.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Handler serves Swagger UI under prefix, with the document at prefix+"doc.json".
func Handler(prefix string) http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(prefix+"doc.json"),
		httpSwagger.InstanceName(SwaggerInfo.InstanceName()),
	)
}

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "consumes": ["application/vnd.api+json"],
    "produces": ["application/vnd.api+json"],
    "securityDefinitions": {
        "bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"bearer": []}],
    "paths": {
        "/api/me": {
            "get": {
                "tags": ["account"],
                "summary": "Current account snapshot",
                "responses": {"200": {"description": "accounts resource"}, "401": {"description": "missing or invalid token"}}
            }
        },
        "/api/me/events": {
            "get": {
                "tags": ["account"],
                "summary": "Billing events applied to the current account",
                "parameters": [{"name": "limit", "in": "query", "type": "integer", "maximum": 200}],
                "responses": {"200": {"description": "billing_events collection"}}
            }
        },
        "/api/token/refresh": {
            "post": {
                "tags": ["account"],
                "summary": "Exchange a valid token for one with a fresh expiry",
                "responses": {"200": {"description": "meta.token and meta.expires_at"}, "401": {"description": "invalid token"}}
            }
        },
        "/api/billing/catalog": {
            "get": {
                "tags": ["billing"],
                "summary": "Purchasable prices",
                "responses": {"200": {"description": "prices collection"}}
            }
        },
        "/api/billing/checkout": {
            "post": {
                "tags": ["billing"],
                "summary": "Open a checkout for one-time credits",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/checkoutRequest"}}],
                "responses": {"200": {"description": "meta.checkout_url"}, "422": {"description": "unknown price"}}
            }
        },
        "/api/billing/subscribe": {
            "post": {
                "tags": ["billing"],
                "summary": "Open a checkout for a subscription",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/subscribeRequest"}}],
                "responses": {"200": {"description": "meta.checkout_url"}, "409": {"description": "already subscribed"}}
            }
        },
        "/api/billing/unsubscribe": {
            "post": {
                "tags": ["billing"],
                "summary": "Cancel the active subscription",
                "responses": {"200": {"description": "accounts resource"}, "400": {"description": "no active subscription"}}
            }
        },
        "/api/billing/invoices": {
            "get": {
                "tags": ["billing"],
                "summary": "Recent invoices",
                "responses": {"200": {"description": "invoices collection"}}
            }
        },
        "/api/summaries": {
            "get": {
                "tags": ["summaries"],
                "summary": "List summaries, newest first",
                "responses": {"200": {"description": "summaries collection"}}
            },
            "post": {
                "tags": ["summaries"],
                "summary": "Upload meeting audio and summarize it for one credit",
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "file", "in": "formData", "type": "file", "required": true}],
                "responses": {
                    "201": {"description": "summaries resource"},
                    "402": {"description": "insufficient credits"},
                    "413": {"description": "upload too large"}
                }
            }
        },
        "/api/summaries/{id}": {
            "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
            "get": {
                "tags": ["summaries"],
                "summary": "Get a summary",
                "responses": {"200": {"description": "summaries resource"}, "404": {"description": "not found"}}
            },
            "patch": {
                "tags": ["summaries"],
                "summary": "Edit summary content or tasks",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/summaryPatch"}}],
                "responses": {"200": {"description": "summaries resource"}}
            },
            "delete": {
                "tags": ["summaries"],
                "summary": "Delete a summary",
                "responses": {"204": {"description": "deleted"}}
            }
        },
        "/api/summaries/{id}/export": {
            "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
            "post": {
                "tags": ["summaries"],
                "summary": "Export a summary to Google Docs",
                "parameters": [{"name": "X-Google-Access-Token", "in": "header", "type": "string"}],
                "responses": {"200": {"description": "meta.document_url"}, "400": {"description": "missing access token"}}
            }
        },
        "/webhooks/{provider}": {
            "post": {
                "tags": ["webhooks"],
                "summary": "Receive a signed payment processor event",
                "security": [],
                "parameters": [{"name": "provider", "in": "path", "type": "string", "enum": ["stripe", "dummy"], "required": true}],
                "responses": {"200": {"description": "meta.outcome"}, "400": {"description": "invalid signature"}}
            }
        }
    },
    "definitions": {
        "checkoutRequest": {
            "type": "object",
            "properties": {"price_id": {"type": "string"}, "quantity": {"type": "integer"}}
        },
        "subscribeRequest": {
            "type": "object",
            "properties": {"price_id": {"type": "string"}}
        },
        "summaryPatch": {
            "type": "object",
            "properties": {"content": {"type": "string"}, "tasks": {"type": "array", "items": {"type": "string"}}}
        }
    }
}`
