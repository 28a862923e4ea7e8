package server

import (
	"embed"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec embed.FS

// OpenAPIHandler serves the API description in YAML and JSON
type OpenAPIHandler struct {
	logger   *zap.Logger
	specYAML []byte
	specJSON []byte
}

// NewOpenAPIHandler loads the embedded document and renders its JSON form once
func NewOpenAPIHandler(logger *zap.Logger) *OpenAPIHandler {
	h := &OpenAPIHandler{logger: logger}

	specData, err := openAPISpec.ReadFile("openapi.yaml")
	if err != nil {
		logger.Error("Failed to read OpenAPI document", zap.Error(err))
		return h
	}
	h.specYAML = specData

	var doc map[string]interface{}
	if err := yaml.Unmarshal(specData, &doc); err != nil {
		logger.Error("Failed to parse OpenAPI document", zap.Error(err))
		return h
	}
	if h.specJSON, err = json.Marshal(doc); err != nil {
		logger.Error("Failed to render OpenAPI document as JSON", zap.Error(err))
	}
	return h
}

// ServeYAML serves the OpenAPI document in YAML format
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "application/x-yaml", h.specYAML)
}

// ServeJSON serves the OpenAPI document in JSON format
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "application/json", h.specJSON)
}

func (h *OpenAPIHandler) serve(w http.ResponseWriter, contentType string, body []byte) {
	if len(body) == 0 {
		http.Error(w, "OpenAPI document not available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("Failed to write OpenAPI document", zap.Error(err))
	}
}
