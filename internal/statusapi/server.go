package statusapi

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/playsquare/arena-server/internal/arena"
)

// Server exposes /healthz and /statusz on a side port for probes and
// dashboards. It reads gauges through a callback so it holds no state.
type Server struct {
	srv   *fasthttp.Server
	stats func() arena.Stats
}

func New(stats func() arena.Stats) *Server {
	s := &Server{stats: stats}
	s.srv = &fasthttp.Server{
		Handler: s.handle,
		Name:    "arena-status",
	}
	return s
}

// ListenAndServe blocks until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case "/statusz":
		body, err := json.Marshal(s.stats())
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBody(body)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}
