package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "goramble API",
		Version:     "v1",
		Description: "Experiment configuration resolution and matrix expansion",
		Endpoints: []endpointInfo{
			{"/api/v1/schema", []string{"GET"}, "Schema of a whole configuration document"},
			{"/api/v1/schema/{level}", []string{"GET"}, "Composed schema of application, workload or experiment"},
			{"/api/v1/modifiers", []string{"GET"}, "Registered modifiers"},
			{"/api/v1/modifiers/{name}", []string{"GET"}, "Single modifier with its modes"},
			{"/api/v1/expansions", []string{"GET", "POST"}, "Expansion runs. POST takes a YAML document; ?dry_run=true skips persistence"},
			{"/api/v1/expansions/{id}", []string{"GET"}, "Single expansion run"},
			{"/api/v1/instances", []string{"GET"}, "Stored experiment instances, filterable by expansion_id, application, workload"},
			{"/api/v1/instances/{id}", []string{"GET"}, "Single experiment instance"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
