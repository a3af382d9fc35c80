package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/docsage/docsage/internal/models"
	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/retrieval"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Addr       string
	HideSource bool
}

// WSServer answers queries over a websocket, streaming answer tokens as
// "chunk" messages followed by "sources" and "done". Per-query errors are
// reported as "error" messages; the connection stays open.
type WSServer struct {
	config    Config
	engine    *retrieval.Engine
	generator types.Generator
}

func NewWSServer(config Config, engine *retrieval.Engine, generator types.Generator) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	return &WSServer{config: config, engine: engine, generator: generator}
}

func (s *WSServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	log.Printf("listening on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, mux)
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		// Queries are handled one at a time per connection; the websocket
		// write side is not safe for concurrent use.
		switch msg.Type {
		case "query":
			s.handleQuery(r.Context(), conn, msg.Content)
		default:
			s.writeError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *WSServer) handleQuery(ctx context.Context, conn *websocket.Conn, query string) {
	results, err := s.engine.Retrieve(ctx, query)
	if errors.Is(err, types.ErrEmptyIndex) {
		s.writeError(conn, "no documents have been ingested yet")
		return
	}
	if err != nil {
		s.writeError(conn, err.Error())
		return
	}

	_, err = s.generator.Generate(ctx, query, results, func(chunk string) {
		if err := conn.WriteJSON(Message{Type: "chunk", Content: chunk}); err != nil {
			log.Printf("Error writing chunk: %v", err)
		}
	})
	if err != nil {
		s.writeError(conn, err.Error())
		return
	}

	if !s.config.HideSource {
		if err := conn.WriteJSON(Message{Type: "sources", Data: sourceList(results)}); err != nil {
			log.Printf("Error writing sources: %v", err)
		}
	}
	if err := conn.WriteJSON(Message{Type: "done"}); err != nil {
		log.Printf("Error writing done: %v", err)
	}
}

func (s *WSServer) writeError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(Message{Type: "error", Content: msg}); err != nil {
		log.Printf("Error writing error message: %v", err)
	}
}

func sourceList(results []models.SearchResult) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, res := range results {
		if !seen[res.Entry.Source] {
			seen[res.Entry.Source] = true
			sources = append(sources, res.Entry.Source)
		}
	}
	return sources
}
