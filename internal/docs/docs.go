// Package docs registra el documento OpenAPI servido en /swagger/*.
// Se regenera con `swag init -g cmd/api/main.go -o internal/docs`.
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
        "/sightings": {
            "post": {
                "tags": ["sightings"],
                "summary": "Reportar un avistamiento",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"description": "Imagen y ubicación", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/sightings.createSightingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/sightings.createSightingResponse"}},
                    "400": {"description": "invalid json / invalid input", "schema": {"type": "string"}},
                    "401": {"description": "unauthorized", "schema": {"type": "string"}}
                }
            }
        },
        "/sightings/mine": {
            "get": {
                "tags": ["sightings"],
                "summary": "Listar mis avistamientos",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"type": "string", "description": "Filtrar por estado", "name": "state", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/sightings.sightingResponse"}}}
                }
            }
        },
        "/sightings/{sightingID}": {
            "get": {
                "tags": ["sightings"],
                "summary": "Obtener un avistamiento",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "sightingID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/sightings.sightingResponse"}},
                    "404": {"description": "not found", "schema": {"type": "string"}}
                }
            }
        },
        "/sightings/{sightingID}/resolve": {
            "post": {
                "tags": ["sightings"],
                "summary": "Resolver un avistamiento",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"type": "string", "name": "sightingID", "in": "path", "required": true},
                    {"description": "Decisión", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/sightings.resolveSightingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/sightings.resolveSightingResponse"}},
                    "403": {"description": "forbidden", "schema": {"type": "string"}},
                    "404": {"description": "not found", "schema": {"type": "string"}},
                    "409": {"description": "sighting already resolved or abandoned", "schema": {"type": "string"}}
                }
            }
        },
        "/sightings/{sightingID}/abandon": {
            "post": {
                "tags": ["sightings"],
                "summary": "Abandonar un avistamiento",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"type": "string", "name": "sightingID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/sightings.sightingResponse"}},
                    "409": {"description": "sighting already resolved or abandoned", "schema": {"type": "string"}}
                }
            }
        },
        "/sightings/{sightingID}/auto-match": {
            "post": {
                "tags": ["sightings"],
                "summary": "Resolver automáticamente",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"type": "string", "name": "sightingID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/sightings.resolveSightingResponse"}},
                    "503": {"description": "ranking unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/profiles": {
            "post": {
                "tags": ["profiles"],
                "summary": "Registrar mascota",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"description": "Datos de la mascota", "name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/profiles.registerProfileRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/profiles.profileResponse"}}
                }
            }
        },
        "/profiles/nearby": {
            "get": {
                "tags": ["profiles"],
                "summary": "Perfiles cercanos",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "number", "name": "latitude", "in": "query", "required": true},
                    {"type": "number", "name": "longitude", "in": "query", "required": true},
                    {"type": "number", "name": "radius_km", "in": "query"},
                    {"type": "string", "description": "pet | stray", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/profiles.profileResponse"}}}
                }
            }
        },
        "/profiles/{profileID}": {
            "get": {
                "tags": ["profiles"],
                "summary": "Obtener perfil",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "profileID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/profiles.profileResponse"}},
                    "404": {"description": "not found", "schema": {"type": "string"}}
                }
            }
        },
        "/profiles/{profileID}/lost": {
            "post": {
                "tags": ["profiles"],
                "summary": "Marcar mascota como perdida",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "Solo en modo dev", "name": "X-Debug-User-ID", "in": "header"},
                    {"type": "string", "name": "profileID", "in": "path", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/profiles.markLostRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/profiles.profileResponse"}},
                    "403": {"description": "forbidden", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "sightings.createSightingRequest": {
            "type": "object",
            "properties": {
                "image_url": {"type": "string"},
                "content_type": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "radius_km": {"type": "number"}
            }
        },
        "sightings.sightingResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reporter_user_id": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "media_id": {"type": "string"},
                "profile_id": {"type": "string"},
                "species": {"type": "string"},
                "breed": {"type": "string"},
                "breed_analysis": {"type": "array", "items": {"type": "string"}},
                "state": {"type": "string", "enum": ["uploaded", "classified", "pending_selection", "resolved", "abandoned"]},
                "degraded": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"},
                "resolved_at": {"type": "string"}
            }
        },
        "sightings.candidateResponse": {
            "type": "object",
            "properties": {
                "profile_id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"},
                "species": {"type": "string"},
                "breed": {"type": "string"},
                "combined_score": {"type": "number"},
                "image_score": {"type": "number"},
                "feature_score": {"type": "number"},
                "distance_km": {"type": "number"},
                "matching_media_id": {"type": "string"},
                "matching_image_url": {"type": "string"},
                "confidence": {"type": "string", "enum": ["high", "medium", "low"]}
            }
        },
        "sightings.createSightingResponse": {
            "type": "object",
            "properties": {
                "sighting": {"$ref": "#/definitions/sightings.sightingResponse"},
                "classification": {
                    "type": "object",
                    "properties": {
                        "species": {"type": "string"},
                        "breed": {"type": "string"},
                        "breed_analysis": {"type": "array", "items": {"type": "string"}},
                        "confidence": {"type": "number"}
                    }
                },
                "matching_profiles": {"type": "array", "items": {"$ref": "#/definitions/sightings.candidateResponse"}},
                "search_radius_km": {"type": "number"},
                "resolution_available": {"type": "boolean"},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "degraded": {"type": "array", "items": {"type": "string"}}
            }
        },
        "sightings.resolveSightingRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["select_existing", "create_new"]},
                "profile_id": {"type": "string"},
                "new_profile_data": {
                    "type": "object",
                    "properties": {
                        "name": {"type": "string"},
                        "species": {"type": "string"},
                        "breed": {"type": "string"}
                    }
                }
            }
        },
        "sightings.resolveSightingResponse": {
            "type": "object",
            "properties": {
                "sighting": {"$ref": "#/definitions/sightings.sightingResponse"},
                "profile_id": {"type": "string"},
                "profile_name": {"type": "string"},
                "profile_created": {"type": "boolean"},
                "matched": {"type": "boolean"}
            }
        },
        "profiles.registerProfileRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "species": {"type": "string"},
                "breed": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "image_url": {"type": "string"},
                "content_type": {"type": "string"},
                "size_bytes": {"type": "integer"}
            }
        },
        "profiles.markLostRequest": {
            "type": "object",
            "properties": {
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "breed_analysis": {"type": "array", "items": {"type": "string"}}
            }
        },
        "profiles.profileResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["pet", "stray"]},
                "species": {"type": "string"},
                "breed": {"type": "string"},
                "owner_user_id": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "breed_analysis": {"type": "array", "items": {"type": "string"}},
                "distance_km": {"type": "number"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PawHub Sightings API",
	Description:      "Avistamientos de animales: clasificación, búsqueda de perfiles cercanos y resolución.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
