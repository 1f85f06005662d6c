package handler

import (
	"net/http"

	"ummahbook-server/pkg/response"
)

const ServiceName = "ummahbook-server"

func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func Root(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]interface{}{
		"message": "UmmahBook API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/register":   "POST",
			"/login":      "POST",
			"/logout":     "GET",
			"/refetch":    "GET",
			"/profile/me": "GET (session)",
			"/chat":       "POST (session)",
		},
	})
}
