package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SPUP Clearance API",
        "description": "Research clearance submission intake, tracking and export service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Submissions", "description": "Public intake and tracking"},
        {"name": "Authentication", "description": "Administrator sign-in"},
        {"name": "Admin", "description": "Dashboard listing and review"},
        {"name": "Export", "description": "Bundle download and export lifecycle"},
        {"name": "Reports", "description": "Downloadable submission reports"}
    ],
    "paths": {
        "/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Submit clearance documents",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "level", "in": "formData", "required": true, "type": "string", "enum": ["undergrad", "grad"]},
                    {"name": "name", "in": "formData", "required": true, "type": "string"},
                    {"name": "email", "in": "formData", "required": true, "type": "string"},
                    {"name": "studentId", "in": "formData", "required": true, "type": "string"},
                    {"name": "adviser", "in": "formData", "required": true, "type": "string"},
                    {"name": "course", "in": "formData", "required": true, "type": "string"},
                    {"name": "graduationMonth", "in": "formData", "required": true, "type": "string"},
                    {"name": "graduationYear", "in": "formData", "required": true, "type": "string"},
                    {"name": "researchTitle", "in": "formData", "required": true, "type": "string"},
                    {"name": "researchType", "in": "formData", "required": true, "type": "string", "enum": ["Thesis", "Capstone", "Dissertation"]},
                    {"name": "groupMembers", "in": "formData", "type": "string", "description": "JSON-encoded member list"},
                    {"name": "approvalSheet", "in": "formData", "required": true, "type": "file"},
                    {"name": "fullPaper", "in": "formData", "required": true, "type": "file"},
                    {"name": "longAbstract", "in": "formData", "required": true, "type": "file"},
                    {"name": "journalFormat", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"},
                    "503": {"description": "Bundle store unavailable"}
                }
            }
        },
        "/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Track a submission by its public code",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or malformed tracking code"}
                }
            }
        },
        "/bundles/{id}/download": {
            "get": {
                "tags": ["Export"],
                "summary": "Download a bundle with a signed token",
                "produces": ["application/zip"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Bundle stream"},
                    "401": {"description": "Missing or invalid token"},
                    "404": {"description": "Bundle no longer stored"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate administrator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Account not on the authorized roster"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current administrator info",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/submissions": {
            "get": {
                "tags": ["Admin"],
                "summary": "List submissions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "course", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/submissions/{id}": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Edit submission details",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown submission"}
                }
            }
        },
        "/admin/submissions/{id}/status": {
            "put": {
                "tags": ["Admin"],
                "summary": "Change review status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown submission"}
                }
            }
        },
        "/admin/submissions/{id}/export-link": {
            "put": {
                "tags": ["Admin"],
                "summary": "Attach export link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetExportLinkRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Unknown submission"}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Remove export link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Unknown submission"}
                }
            }
        },
        "/admin/submissions/{id}/export/prepare": {
            "post": {
                "tags": ["Export"],
                "summary": "Prepare bundle download",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown submission or missing bundle"},
                    "409": {"description": "Already exported"}
                }
            }
        },
        "/admin/submissions/{id}/export/confirm": {
            "post": {
                "tags": ["Export"],
                "summary": "Confirm export (delete bundle, flag record)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown submission"},
                    "409": {"description": "Already exported"}
                }
            }
        },
        "/admin/export/submissions": {
            "get": {
                "tags": ["Export"],
                "summary": "List exportable submissions",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/export/bulk/prepare": {
            "post": {
                "tags": ["Export"],
                "summary": "Prepare bulk downloads",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkExportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/export/bulk/mark": {
            "post": {
                "tags": ["Export"],
                "summary": "Bulk mark as exported",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkExportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/reports/submissions": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download submissions report",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "level", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "course", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Report stream"},
                    "400": {"description": "Unsupported format"}
                }
            }
        }
    },
    "definitions": {
        "Submission": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "level": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "studentId": {"type": "string"},
                "adviser": {"type": "string"},
                "course": {"type": "string"},
                "graduationMonth": {"type": "string"},
                "graduationYear": {"type": "string"},
                "researchTitle": {"type": "string"},
                "researchType": {"type": "string"},
                "groupMembers": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GroupMember"}
                },
                "zipFile": {"type": "string"},
                "status": {"type": "string"},
                "submittedAt": {"type": "string"},
                "isExported": {"type": "boolean"},
                "exportedAt": {"type": "string"},
                "exportLink": {"type": "string"}
            }
        },
        "GroupMember": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "studentID": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "UpdateSubmissionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "studentId": {"type": "string"},
                "adviser": {"type": "string"},
                "course": {"type": "string"},
                "graduationMonth": {"type": "string"},
                "graduationYear": {"type": "string"},
                "researchTitle": {"type": "string"},
                "researchType": {"type": "string"},
                "level": {"type": "string"},
                "groupMembers": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GroupMember"}
                }
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["Submitted", "Cleared"]}
            },
            "required": ["status"]
        },
        "SetExportLinkRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            },
            "required": ["url"]
        },
        "BulkExportRequest": {
            "type": "object",
            "properties": {
                "ids": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            },
            "required": ["ids"]
        },
        "DownloadItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fileName": {"type": "string"},
                "url": {"type": "string"},
                "expiresAt": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
