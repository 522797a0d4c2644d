package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tryfix/errors"
	"github.com/tryfix/log"
)

type Server struct {
	http   *http.Server
	logger log.Logger
}

func New(host string, service Service, logger log.Logger) *Server {
	logger = logger.NewLog(log.Prefixed(`http`))
	return &Server{
		http: &http.Server{
			Addr:              host,
			Handler:           MakeHandler(service, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. Listener errors are sent on the returned
// channel.
func (s *Server) Start() <-chan error {
	errs := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- errors.WithPrevious(err, fmt.Sprintf(`cannot start web server on %s`, s.http.Addr))
		}
		close(errs)
	}()

	s.logger.Info(fmt.Sprintf(`Http server started on %s`, s.http.Addr))

	return errs
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer s.logger.Info(`Http server stopped`)
	return s.http.Shutdown(ctx)
}
