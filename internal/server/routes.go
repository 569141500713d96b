package server

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Post("/login", s.login)
	})

	r.Route("/topic/{tid}", func(r chi.Router) {
		r.Get("/", s.getTopic)
		r.Post("/message", s.postMessage)
	})

	r.Route("/message/{mid}", func(r chi.Router) {
		r.Get("/", s.getMessage)
		r.Patch("/", s.editMessage)
	})

	r.Get("/user/{uid}", s.getUser)
	r.Get("/search", s.search)
	r.Get("/alerts", s.getAlerts)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", s.sendChat)
		r.Get("/users", s.getChatUsers)
	})

	// Event streaming (SSE)
	r.Get("/event", s.events)
}
