package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"ltpgen/internal/androidmk"
	"ltpgen/internal/model"
)

// DefaultPort is where serve listens unless told otherwise.
const DefaultPort = 8080

//go:embed static/*
var staticFS embed.FS

//go:embed help.md
var helpMD string

// Server exposes one generation result over HTTP.
type Server struct {
	result model.GenerationResult
	header string
	mux    *http.ServeMux
}

// NewServer creates a Server for result. header starts the rendered
// Android.ltp.mk.
func NewServer(result model.GenerationResult, header string) *Server {
	s := &Server{result: result, header: header, mux: http.NewServeMux()}

	// Serve static files
	subFS, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/", http.FileServer(http.FS(subFS)))

	// API Endpoints
	s.mux.HandleFunc("/api/modules", s.handleModules)
	s.mux.HandleFunc("/api/module", s.handleModule)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/androidmk", s.handleAndroidMk)
	s.mux.HandleFunc("/api/help", handleHelp)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Printf("Starting ltpgen web server at http://%s\n", host)
	fmt.Printf("Go to http://%s in your browser.\n", host)

	if err := http.ListenAndServe(addr, s); err != nil {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	response := struct {
		model.GenerationResult
		Version string `json:"Version"`
	}{
		GenerationResult: s.result,
		Version:          model.Version,
	}
	writeJSON(w, response)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	for _, m := range s.result.Modules {
		if m.Name != name {
			continue
		}
		stanza, err := androidmk.FormatModule(m)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(stanza))
		return
	}
	http.Error(w, fmt.Sprintf("no module named %q", name), http.StatusNotFound)
}

// SearchMatch is one module matching a search query.
type SearchMatch struct {
	Index      int    `json:"Index"`
	Name       string `json:"Name"`
	MatchedSrc string `json:"MatchedSrc,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("query"))
	if query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	matches := []SearchMatch{}
	for i, m := range s.result.Modules {
		if strings.Contains(strings.ToLower(m.Name), query) {
			matches = append(matches, SearchMatch{Index: i, Name: m.Name})
			continue
		}
		for _, src := range m.SrcFiles {
			if strings.Contains(strings.ToLower(src), query) {
				matches = append(matches, SearchMatch{Index: i, Name: m.Name, MatchedSrc: src})
				break
			}
		}
	}
	writeJSON(w, matches)
}

func (s *Server) handleAndroidMk(w http.ResponseWriter, r *http.Request) {
	text, err := androidmk.Render(s.header, s.result.Modules)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}

func handleHelp(w http.ResponseWriter, r *http.Request) {
	// Use the embedded help content
	text := strings.ReplaceAll(helpMD, "{{VERSION}}", model.Version)

	w.Header().Set("Content-Type", "text/markdown")
	w.Write([]byte(text))
}
