package analyzer

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/analyze": {
            "post": {
                "summary": "Analyze a GitHub profile",
                "description": "Fetches the profile, reviews it with the recruiter model and scores it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.AnalyzeRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payload.AnalysisPayload"}},
                    "400": {"description": "Invalid username", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "GitHub user not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "GitHub unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/status": {
            "get": {
                "summary": "Liveness of the analysis API",
                "produces": ["application/json"],
                "tags": ["analysis"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.AnalyzeRequest": {
            "type": "object",
            "required": ["username"],
            "properties": {
                "username": {"type": "string", "example": "https://github.com/octocat"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"detail": {"type": "string"}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "payload.AnalysisPayload": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/payload.User"},
                "scores": {"$ref": "#/definitions/payload.Scores"},
                "analysis": {"$ref": "#/definitions/payload.Analysis"}
            }
        },
        "payload.User": {
            "type": "object",
            "properties": {
                "login": {"type": "string"},
                "name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "bio": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "payload.Scores": {
            "type": "object",
            "properties": {
                "technical_depth": {"type": "integer"},
                "consistency": {"type": "integer"},
                "impact": {"type": "integer"},
                "first_impression": {"type": "integer"},
                "recruiter_score": {"type": "integer"},
                "portfolio_score": {"type": "integer"}
            }
        },
        "payload.Analysis": {
            "type": "object",
            "properties": {
                "verdict": {"type": "string", "enum": ["Shortlist", "Maybe", "Hard Pass"]},
                "personality_type": {"type": "string"},
                "strengths": {"type": "array", "items": {"type": "string"}},
                "red_flags": {"type": "array", "items": {"type": "string"}},
                "roadmap": {"type": "array", "minItems": 5, "maxItems": 5, "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds the exported Swagger info for the analysis API
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "RepoLens Analysis API",
	Description:      "Reviews a GitHub profile the way a technical recruiter would.",
	InfoInstanceName: "repolens",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
