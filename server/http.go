package gqlwsserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := s.Upgrade(w, r)
	if err != nil {
		s.Logger.Warn(`websocket upgrade failed`, `error`, err)
		return
	}
	s.Handle(r.Context(), sock, s.ContextValueFunc(r))
}

// GinHandler mounts the server on a gin route.
func (s *Server) GinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.ServeHTTP(c.Writer, c.Request)
	}
}
