// Package docs holds the OpenAPI description served under /swagger. Keep it in step
// with the handler annotations.
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
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/documents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "List documents",
                "parameters": [
                    {"type": "string", "description": "substring of title or description", "name": "q", "in": "query"},
                    {"type": "string", "description": "earliest doc_date", "name": "from", "in": "query"},
                    {"type": "string", "description": "latest doc_date, defaults to now", "name": "to", "in": "query"},
                    {"type": "integer", "description": "1-based page number", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.DocumentPage"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.validationPayload"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Create document",
                "parameters": [
                    {"type": "string", "description": "title", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "description", "name": "description", "in": "formData"},
                    {"type": "string", "description": "date of the original document", "name": "doc_date", "in": "formData", "required": true},
                    {"type": "file", "description": "photos to attach", "name": "images", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Document"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.validationPayload"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Get document",
                "parameters": [{"type": "integer", "description": "document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["documents"],
                "summary": "Update document",
                "parameters": [
                    {"type": "integer", "description": "document id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "title", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "description", "name": "description", "in": "formData"},
                    {"type": "string", "description": "date of the original document", "name": "doc_date", "in": "formData", "required": true},
                    {"type": "integer", "description": "number of photo slots", "name": "photos-TOTAL_FORMS", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.validationPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"],
                "summary": "Delete document",
                "parameters": [{"type": "integer", "description": "document id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/documents/{id}/photos/{photoId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["photos"],
                "summary": "Get photo content",
                "parameters": [
                    {"type": "integer", "description": "document id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "photo id", "name": "photoId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "307": {"description": "Temporary Redirect"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/documents/{id}/download/{photoId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/zip"],
                "tags": ["photos"],
                "summary": "Download photos as zip",
                "parameters": [
                    {"type": "integer", "description": "document id", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "single photo id", "name": "photoId", "in": "path"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "handler.validationPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "values": {"$ref": "#/definitions/service.DocumentInput"}
            }
        },
        "model.Photo": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "document_id": {"type": "integer"},
                "image": {"type": "string"},
                "content_type": {"type": "string"},
                "size": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "model.Document": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "author_id": {"type": "string"},
                "doc_date": {"type": "string"},
                "created_at": {"type": "string"},
                "photos": {"type": "array", "items": {"$ref": "#/definitions/model.Photo"}}
            }
        },
        "service.DocumentInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "doc_date": {"type": "string"}
            }
        },
        "service.DocumentPage": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "num_pages": {"type": "integer"},
                "has_next": {"type": "boolean"},
                "has_previous": {"type": "boolean"}
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
	Title:            "Photo Archive API",
	Description:      "Archived documents with photo attachments and zip export.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
