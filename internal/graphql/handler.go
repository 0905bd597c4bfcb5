// Package graphql serves the GraphQL API over the same services as the REST routes.
package graphql

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/auth"
)

//go:embed schema.graphql
var schemaSDL string

type ctxKey int

const (
	writerKey ctxKey = iota
	tokenKey
)

func responseWriter(ctx context.Context) http.ResponseWriter {
	w, _ := ctx.Value(writerKey).(http.ResponseWriter)
	return w
}

func requestToken(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey).(string)
	return tok
}

// NewSchema parses the embedded schema against the root resolver.
func NewSchema(resolver *Resolver) *graphqlgo.Schema {
	return graphqlgo.MustParseSchema(schemaSDL, resolver)
}

// Handler executes GraphQL requests. Identity is expected from auth.Optional.
type Handler struct {
	schema   *graphqlgo.Schema
	graphiql bool
}

// NewHandler creates a Handler. graphiql enables the in-browser IDE on bare GET requests.
func NewHandler(schema *graphqlgo.Schema, graphiql bool) *Handler {
	return &Handler{schema: schema, graphiql: graphiql}
}

type requestParams struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var params requestParams
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		params.Query = q.Get("query")
		params.OperationName = q.Get("operationName")
		if params.Query == "" {
			if h.graphiql {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write(graphiqlPage)
				return
			}
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params.Variables); err != nil {
				writeError(w, http.StatusBadRequest, "invalid variables")
				return
			}
		}
		// Cookies ride along on cross-site GET navigations, so GET never changes state.
		if operationType(params.Query, params.OperationName) != "query" {
			w.Header().Set("Allow", "POST")
			writeError(w, http.StatusMethodNotAllowed, "only queries can be sent with GET")
			return
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := context.WithValue(r.Context(), writerKey, w)
	ctx = context.WithValue(ctx, tokenKey, auth.TokenFromRequest(r))

	response := h.schema.Exec(ctx, params.Query, params.OperationName, params.Variables)
	body, err := json.Marshal(response)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode GraphQL response")
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]string{{"message": msg}},
	})
}

var graphiqlPage = []byte(`<!DOCTYPE html>
<html>
<head>
  <title>GraphiQL</title>
  <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
</head>
<body style="margin: 0;">
  <div id="graphiql" style="height: 100vh;"></div>
  <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
  <script>
    const fetcher = GraphiQL.createFetcher({ url: window.location.pathname, credentials: 'include' });
    ReactDOM.createRoot(document.getElementById('graphiql')).render(React.createElement(GraphiQL, { fetcher }));
  </script>
</body>
</html>
`)
