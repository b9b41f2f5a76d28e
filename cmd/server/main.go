package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"

	factgraph "github.com/ritamzico/factgraph"
)

var allowedOrigins = []string{
	"http://localhost:5173",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var body struct {
			Graph  json.RawMessage `json:"graph"`
			Cypher string          `json:"cypher"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(body.Graph) == 0 {
			writeError(w, http.StatusBadRequest, "missing field: graph")
			return
		}
		if body.Cypher == "" {
			writeError(w, http.StatusBadRequest, "missing field: cypher")
			return
		}

		g, err := factgraph.Load(bytes.NewReader(body.Graph))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid graph: %v", err))
			return
		}
		defer g.Close()

		res, err := g.Query(body.Cypher, nil)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		// A mutating statement (CREATE/MERGE/SET) without RETURN still
		// returns a ResultSet (no columns, one empty row per touched row),
		// and the client always gets the updated graph back to persist
		// alongside whatever rows the query projected.
		var buf bytes.Buffer
		if err := g.Save(&buf); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Result *factgraph.ResultSet `json:"result"`
			Graph  json.RawMessage      `json:"graph"`
		}{Result: res, Graph: json.RawMessage(buf.Bytes())})
	})

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("factgraph server listening on %s\n", addr)
	if err := http.ListenAndServe(addr, corsMiddleware(mux)); err != nil {
		fmt.Fprintf(flag.CommandLine.Output(), "server error: %v\n", err)
	}
}
