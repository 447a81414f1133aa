package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

type Method string
type Path string
type ApiVersion string

var (
	HTTP_GET    Method = "GET"
	HTTP_POST   Method = "POST"
	HTTP_PUT    Method = "PUT"
	HTTP_DELETE Method = "DELETE"
)

const ApiV1 ApiVersion = "v1"

func CreateApiPath(version ApiVersion, path string) Path {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return Path("/api/" + string(version) + "/" + path)
}

func CreateApiV1Path(path string) Path {
	return CreateApiPath(ApiV1, path)
}

type MethodHandlers map[Path]map[Method]func(r *http.Request) (any, error)

func SetupHandlers(mux *http.ServeMux, handlers MethodHandlers) {
	for path, methodHandlers := range handlers {
		mux.HandleFunc(string(path), func(w http.ResponseWriter, r *http.Request) {
			handler, ok := methodHandlers[Method(r.Method)]
			if !ok {
				http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
				return
			}
			resp, err := handler(r)
			if err != nil {
				zap.L().Error("failed to handle request", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if resp != nil {
				if err := json.NewEncoder(w).Encode(resp); err != nil {
					zap.L().Error("failed to encode response", zap.Error(err))
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
			}
		})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
