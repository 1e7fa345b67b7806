// Package docs registers the OpenAPI description of the byggekatalog API with
// swag. It follows the layout `swag init -g cmd/byggekatalog/main.go`
// produces from the handler annotations.
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
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/catalog/products": {
            "get": {
                "description": "Evaluates every product against the selected facets and returns cards for the eligible ones, optionally sorted.",
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "List eligible products",
                "parameters": [
                    {"type": "string", "description": "Usage tag (enfamiliehus, etagebolig)", "name": "anvendelse", "in": "query"},
                    {"type": "integer", "description": "Requested floor count", "name": "etage", "in": "query"},
                    {"type": "number", "description": "Section area in m², advisory", "name": "m2", "in": "query"},
                    {"type": "string", "description": "Sort field and direction, e.g. price-asc", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.ListResponse"}}
                }
            }
        },
        "/catalog/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Get product detail",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.DetailResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.Problem"}}
                }
            }
        },
        "/catalog/facets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Get filter controls",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.FacetsResponse"}}
                }
            }
        },
        "/admin/products": {
            "post": {
                "description": "Replaces the catalog file with the posted document. No authentication, no per-record validation.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Save catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/admin.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/admin.Response"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/admin.Response"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/admin.Response"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/admin.Response"}}
                }
            }
        }
    },
    "definitions": {
        "admin.Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "catalog.ListResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "count_label": {"type": "string"},
                "advisory": {"type": "string"},
                "message": {"type": "string"},
                "floor": {"$ref": "#/definitions/facet.FloorControl"},
                "sort": {"type": "string"},
                "products": {"type": "array", "items": {"$ref": "#/definitions/projection.CardView"}}
            }
        },
        "catalog.DetailResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "string"},
                "groups": {"type": "array", "items": {"type": "object"}},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "eligible": {"type": "boolean"},
                "advisory": {"type": "string"}
            }
        },
        "catalog.FacetsResponse": {
            "type": "object",
            "properties": {
                "groups": {"type": "array", "items": {"type": "object"}},
                "sort": {"type": "array", "items": {"type": "object"}},
                "usage_tags": {"type": "array", "items": {"type": "string"}},
                "floor": {"$ref": "#/definitions/facet.FloorControl"}
            }
        },
        "facet.FloorControl": {
            "type": "object",
            "properties": {
                "max": {"type": "integer"},
                "value": {"type": "integer"},
                "clamped": {"type": "boolean"},
                "label": {"type": "string"}
            }
        },
        "projection.CardView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "string"},
                "meta": {"type": "string"},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        },
        "server.Problem": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "instance": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Byggekatalog API",
	Description:      "Filterable catalog of building elements with building-regulation eligibility rules.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
