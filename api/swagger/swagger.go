package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Studio Scheduler API",
        "description": "Class capacity, waitlist, swap and coverage scheduling for fitness studios",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Bookings", "description": "Seat admission, cancellation and no-shows"},
        {"name": "Classes", "description": "Availability, waitlist and roster per class session"},
        {"name": "Swaps", "description": "Instructor shift swaps"},
        {"name": "Coverage", "description": "Substitute coverage pool"}
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
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/bookings": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Book a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Confirmed or waitlisted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate booking or capacity exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/bookings/{id}": {
            "delete": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "403": {"description": "Not the booking owner"},
                    "409": {"description": "Booking is not confirmed"}
                }
            }
        },
        "/api/v1/bookings/{id}/no-show": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Mark a booking as a no-show",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked"},
                    "403": {"description": "Studio staff privileges required"}
                }
            }
        },
        "/api/v1/classes/{id}/availability": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get class availability",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/classes/{id}/waitlist": {
            "delete": {
                "tags": ["Classes"],
                "summary": "Leave a class waitlist",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/api/v1/classes/{id}/waitlist/promote": {
            "post": {
                "tags": ["Classes"],
                "summary": "Promote the waitlist head into a free seat",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Promoted booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "204": {"description": "No free seat or empty waitlist"}
                }
            }
        },
        "/api/v1/classes/{id}/roster": {
            "get": {
                "tags": ["Classes"],
                "summary": "Download a class roster",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Roster file"},
                    "403": {"description": "Studio staff privileges required"}
                }
            }
        },
        "/api/v1/swaps": {
            "post": {
                "tags": ["Swaps"],
                "summary": "Request a shift swap",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Open swap already exists"}
                }
            }
        },
        "/api/v1/swaps/{id}/accept": {
            "post": {
                "tags": ["Swaps"],
                "summary": "Accept a shift swap",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Completed or awaiting approval", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict or invalid state"}
                }
            }
        },
        "/api/v1/swaps/{id}/decision": {
            "post": {
                "tags": ["Swaps"],
                "summary": "Approve or reject an accepted swap",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapDecision"}}
                ],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Studio staff privileges required"}
                }
            }
        },
        "/api/v1/coverage": {
            "post": {
                "tags": ["Coverage"],
                "summary": "Post a class to the coverage pool",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CoverageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Open posting already exists"}
                }
            }
        },
        "/api/v1/coverage/{id}": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Get a coverage request with applicants",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/coverage/{id}/apply": {
            "post": {
                "tags": ["Coverage"],
                "summary": "Apply to cover a posted class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Application recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate application or scheduling conflict"}
                }
            }
        },
        "/api/v1/coverage/{id}/select": {
            "post": {
                "tags": ["Coverage"],
                "summary": "Select an applicant to fill a coverage request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectApplicant"}}
                ],
                "responses": {
                    "200": {"description": "Filled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already filled with a different applicant"}
                }
            }
        },
        "/api/v1/studios/{id}/coverage-pool": {
            "get": {
                "tags": ["Coverage"],
                "summary": "List a studio's open coverage requests",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "BookingRequest": {
            "type": "object",
            "required": ["class_id", "payment_method"],
            "properties": {
                "class_id": {"type": "string"},
                "payment_method": {"type": "string"},
                "price": {"type": "number"}
            }
        },
        "SwapRequest": {
            "type": "object",
            "required": ["class_id", "recipient_id"],
            "properties": {
                "class_id": {"type": "string"},
                "recipient_id": {"type": "string"}
            }
        },
        "SwapDecision": {
            "type": "object",
            "properties": {
                "approved": {"type": "boolean"},
                "reason": {"type": "string"}
            }
        },
        "CoverageRequest": {
            "type": "object",
            "required": ["class_id"],
            "properties": {
                "class_id": {"type": "string"},
                "urgent": {"type": "boolean"}
            }
        },
        "SelectApplicant": {
            "type": "object",
            "required": ["instructor_id"],
            "properties": {
                "instructor_id": {"type": "string"}
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
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
