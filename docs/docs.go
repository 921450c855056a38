// Package docs описание API для Swagger UI
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
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Store status and recent collection runs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/relatorio/{filial}": {
            "get": {
                "produces": [
                    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
                    "text/html"
                ],
                "tags": ["reports"],
                "summary": "Branch report for a year",
                "parameters": [
                    {"type": "string", "description": "Branch", "name": "filial", "in": "path", "required": true},
                    {"type": "integer", "description": "Year (1900-2100)", "name": "ano", "in": "query", "required": true},
                    {"enum": ["xlsx", "html"], "type": "string", "default": "xlsx", "description": "Format", "name": "formato", "in": "query"},
                    {"type": "boolean", "default": false, "description": "Generate a file even without data", "name": "gerar_vazio", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "204": {"description": "No data"},
                    "400": {"description": "Invalid parameters", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/produtos": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Product names collected for a year (last year by default)",
                "parameters": [
                    {"type": "integer", "description": "Year", "name": "ano", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProductsResponse"}}}
            }
        },
        "/api/auditoria/duplicados": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Municipality codes shared by several branches",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/auditoria/sem-codigo": {
            "get": {
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Branch municipalities without a resolved code",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/coleta": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["collection"],
                "summary": "Start a collection run in the background",
                "parameters": [
                    {"description": "Product groups", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/handlers.CollectRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Unknown group", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "A run is already in progress", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Collection not configured or server shutting down", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "boolean"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "handlers.CollectRequest": {
            "type": "object",
            "properties": {
                "grupos": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.ProductsResponse": {
            "type": "object",
            "properties": {
                "ano": {"type": "integer"},
                "produtos": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.StatusResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "com_codigo": {"type": "integer"},
                "sem_codigo": {"type": "integer"},
                "codigos_duplicados": {"type": "integer"},
                "ultimo_ano": {"type": "integer"},
                "linhas_por_fonte": {"type": "object", "additionalProperties": {"type": "integer"}},
                "coleta_em_andamento": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo метаданные документации
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "agrostat API",
	Description:      "Municipal agricultural statistics for company branches: audit, reports and collection runs.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
