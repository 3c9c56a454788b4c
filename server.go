package puizcloud

import (
	"context"
	"log"

	"github.com/thejerf/suture/v4"
)

type Server struct {
	config *Config
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
	}
}

// Run serves until ctx is cancelled. A served root that is missing or not a
// directory is reported before anything starts.
func (s *Server) Run(ctx context.Context) error {
	root, err := NewServedRoot(s.config.Data)
	if err != nil {
		return err
	}
	log.Printf("serving %s (symlinks=%s)", root.Path(), s.config.Symlinks)

	supervisor := suture.NewSimple("puizcloud")

	httpService, err := NewHTTPService(s.config, root)
	if err != nil {
		return err
	}
	supervisor.Add(httpService)

	if s.config.Scan {
		supervisor.Add(NewScanService(root))
	}

	err = supervisor.Serve(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
