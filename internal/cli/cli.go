package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"artframe/internal/config"
	"artframe/internal/frame"
	"artframe/internal/server"

	"github.com/tidwall/pretty"
)

// Version is the reported build version.
var Version = "v0.3.0-dev"

type serviceFactory func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*frame.Service, error)

type serverFunc func(ctx context.Context, addr string, svc *frame.Service, log *slog.Logger) error

func defaultService(ctx context.Context, cfg *config.Config, log *slog.Logger) (*frame.Service, error) {
	return frame.New(ctx, cfg, log)
}

func defaultServe(ctx context.Context, addr string, svc *frame.Service, log *slog.Logger) error {
	return server.NewServer(addr, svc, log).Start(ctx)
}

// Root holds what every command needs.
type Root struct {
	cfg     *config.Config
	cfgPath string
	log     *slog.Logger
	out     io.Writer

	newService serviceFactory
	serveFn    serverFunc
}

// NewRoot constructs the CLI root. cfgPath is shown by config show.
func NewRoot(cfg *config.Config, cfgPath string, logger *slog.Logger) *Root {
	if logger == nil {
		logger = slog.Default()
	}
	return &Root{
		cfg:        cfg,
		cfgPath:    cfgPath,
		log:        logger,
		out:        os.Stdout,
		newService: defaultService,
		serveFn:    defaultServe,
	}
}

func (r *Root) service(ctx context.Context) (*frame.Service, error) {
	if r.newService != nil {
		return r.newService(ctx, r.cfg, r.log)
	}
	return defaultService(ctx, r.cfg, r.log)
}

func (r *Root) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// printJSON writes v as indented JSON.
func (r *Root) printJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.out.Write(pretty.Pretty(raw))
	return err
}
