// Package docs registers the OpenAPI document served at /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "issue a bearer token",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/register": {
            "post": {
                "tags": ["auth"],
                "summary": "create a user account",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/borrows": {
            "get": {
                "tags": ["borrows"],
                "summary": "list borrows (active only unless status is given)",
                "parameters": [
                    {"type": "string", "name": "account_id", "in": "query"},
                    {"type": "string", "name": "username", "in": "query"},
                    {"type": "string", "name": "status", "in": "query", "description": "pending | borrowed | returned"},
                    {"type": "boolean", "name": "past_due", "in": "query"},
                    {"type": "string", "name": "after_id", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/borrow.BorrowListResponse"}}}
            },
            "post": {
                "tags": ["borrows"],
                "summary": "borrow a copy of a book",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/borrow.CreateBorrowRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/borrow.BorrowResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorDTO"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/borrows/{id}": {
            "get": {
                "tags": ["borrows"],
                "summary": "get one borrow",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/borrow.BorrowResponse"}}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            },
            "patch": {
                "tags": ["borrows"],
                "summary": "move a borrow through pending -> borrowed -> returned",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/borrow.UpdateStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/borrow.BorrowResponse"}}, "403": {"description": "Forbidden"}, "422": {"description": "Unprocessable Entity"}}
            }
        },
        "/books": {
            "get": {"tags": ["books"], "summary": "search books", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["books"], "summary": "create a book (admin)", "responses": {"201": {"description": "Created"}}}
        },
        "/books/{id}": {
            "get": {"tags": ["books"], "summary": "get a book", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["books"], "summary": "update a book (admin)", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["books"], "summary": "delete a book and its items (admin)", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/books/{id}/items": {
            "get": {"tags": ["items"], "summary": "list copies of a book", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["items"], "summary": "add a copy (admin)", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/books/{id}/labels.csv": {
            "get": {"tags": ["items"], "summary": "Shift_JIS label sheet (admin)", "produces": ["text/csv"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/categories": {
            "get": {"tags": ["categories"], "summary": "list categories", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["categories"], "summary": "create a category (admin)", "responses": {"201": {"description": "Created"}}}
        }
    },
    "definitions": {
        "auth.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "borrow.CreateBorrowRequest": {
            "type": "object",
            "required": ["book_id", "duration_days"],
            "properties": {
                "account_id": {"type": "string", "description": "defaults to the caller"},
                "book_id": {"type": "string"},
                "duration_days": {"type": "integer", "minimum": 1, "maximum": 7}
            }
        },
        "borrow.UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"description": "0, 1, 2 or pending, borrowed, returned"}}
        },
        "borrow.BorrowResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "book_item_id": {"type": "string"},
                "book_id": {"type": "string"},
                "account_id": {"type": "string"},
                "create_time": {"type": "string", "format": "date-time"},
                "due_time": {"type": "string", "format": "date-time"},
                "status": {"type": "string"},
                "status_code": {"type": "integer"},
                "past_due": {"type": "boolean"},
                "update_time": {"type": "string", "format": "date-time"}
            }
        },
        "borrow.BorrowListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/borrow.BorrowResponse"}},
                "next_after_id": {"type": "string"}
            }
        },
        "errorDTO": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "LIBRA API",
	Description:      "Library catalog and borrow service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
