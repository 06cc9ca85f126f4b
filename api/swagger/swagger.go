package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Benefits Portal API",
        "description": "Case intake, release scheduling, and external sync for the benefits portal",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Cases", "description": "Case lifecycle and credit management"},
        {"name": "Settings", "description": "Administrative system settings"},
        {"name": "Sweeps", "description": "Operator-triggered periodic sweeps"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/cases": {
            "get": {
                "tags": ["Cases"],
                "summary": "List cases visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cases"],
                "summary": "Open a new draft case",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}": {
            "get": {
                "tags": ["Cases"],
                "summary": "Get case detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/cases/{id}/submit": {
            "post": {
                "tags": ["Cases"],
                "summary": "Submit a case for processing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/api/v1/cases/{id}/accept": {
            "post": {
                "tags": ["Cases"],
                "summary": "Accept a case for processing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/api/v1/cases/{id}/hold": {
            "post": {
                "tags": ["Cases"],
                "summary": "Place a case on hold",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/HoldCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/api/v1/cases/{id}/resume": {
            "post": {
                "tags": ["Cases"],
                "summary": "Resume a held case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ResumeCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/api/v1/cases/{id}/complete": {
            "post": {
                "tags": ["Cases"],
                "summary": "Complete a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already completed"}
                }
            }
        },
        "/api/v1/cases/{id}/release": {
            "post": {
                "tags": ["Cases"],
                "summary": "Release a due case immediately or after a bounded delay",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReleaseCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already released"}
                }
            }
        },
        "/api/v1/cases/{id}/tier": {
            "patch": {
                "tags": ["Cases"],
                "summary": "Change the case tier",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeTierRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}/credit": {
            "patch": {
                "tags": ["Cases"],
                "summary": "Override the case credit value",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdjustCreditRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}/audit": {
            "get": {
                "tags": ["Cases"],
                "summary": "List the case audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}/credits": {
            "get": {
                "tags": ["Cases"],
                "summary": "List the case credit history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}/sync-attempts": {
            "get": {
                "tags": ["Cases"],
                "summary": "List external submission attempts for a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/cases/{id}/sync/retry": {
            "post": {
                "tags": ["Cases"],
                "summary": "Retry a failed external submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Retry ceiling reached"}
                }
            }
        },
        "/api/v1/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get the active system settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Settings"],
                "summary": "Update system settings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sweeps/release": {
            "post": {
                "tags": ["Sweeps"],
                "summary": "Run the scheduled release sweep",
                "parameters": [
                    {"name": "dry_run", "in": "query", "type": "boolean"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sweeps/notifications": {
            "post": {
                "tags": ["Sweeps"],
                "summary": "Run the member notification sweep",
                "parameters": [
                    {"name": "dry_run", "in": "query", "type": "boolean"},
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sweeps/sync-retry": {
            "post": {
                "tags": ["Sweeps"],
                "summary": "Run the failed-sync retry sweep",
                "parameters": [
                    {"name": "dry_run", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCaseRequest": {
            "type": "object",
            "properties": {
                "employee_name": {"type": "string"},
                "workshop_code": {"type": "string"},
                "num_reports": {"type": "integer"},
                "tier": {"type": "string"},
                "rush": {"type": "boolean"},
                "member_email": {"type": "string"},
                "form_data": {"type": "object"}
            },
            "required": ["employee_name", "workshop_code"]
        },
        "HoldCaseRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"},
                "duration_days": {"type": "integer"}
            },
            "required": ["reason"]
        },
        "ResumeCaseRequest": {
            "type": "object",
            "properties": {
                "target_status": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "CompleteCaseRequest": {
            "type": "object",
            "properties": {
                "reviewer_id": {"type": "string"}
            }
        },
        "ReleaseCaseRequest": {
            "type": "object",
            "properties": {
                "hours_delay": {"type": "integer", "minimum": 0, "maximum": 5}
            }
        },
        "ChangeTierRequest": {
            "type": "object",
            "properties": {
                "tier": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["tier"]
        },
        "AdjustCreditRequest": {
            "type": "object",
            "properties": {
                "value": {"type": "number"},
                "context": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["context", "reason"]
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "email_enabled": {"type": "boolean"},
                "default_due_days": {"type": "integer"},
                "rush_threshold": {"type": "integer"},
                "release_enabled": {"type": "boolean"},
                "release_batch_hour": {"type": "integer"},
                "email_delay_days": {"type": "integer"},
                "api_base_url": {"type": "string"},
                "api_key": {"type": "string"},
                "api_timeout_seconds": {"type": "integer"},
                "api_max_retries": {"type": "integer"}
            }
        },
        "SweepResult": {
            "type": "object",
            "properties": {
                "processed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "failed": {"type": "integer"},
                "dry_run": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
