package tools

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kode4food/waypoint/internal/client"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
	"github.com/kode4food/waypoint/pkg/tool"
)

// HTTPTool declares a tool served by a remote HTTP endpoint. Timeout is in
// milliseconds; zero uses the client's timeout
type HTTPTool struct {
	Name     api.ToolName `json:"name" yaml:"name"`
	Endpoint string       `json:"endpoint" yaml:"endpoint"`
	Timeout  int64        `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

var (
	ErrToolNameRequired     = errors.New("tool name is required")
	ErrToolEndpointRequired = errors.New("tool endpoint is required")
	ErrInvalidToolTimeout   = errors.New("tool timeout must not be negative")
)

// Validate checks that the declaration can be registered
func (t *HTTPTool) Validate() error {
	switch {
	case t.Name == "":
		return ErrToolNameRequired
	case t.Endpoint == "":
		return fmt.Errorf("%w: %s", ErrToolEndpointRequired, t.Name)
	case t.Timeout < 0:
		return fmt.Errorf("%w: %s", ErrInvalidToolTimeout, t.Name)
	}
	return nil
}

// ClientEndpoint converts the declaration to a client endpoint
func (t *HTTPTool) ClientEndpoint() *client.Endpoint {
	return &client.Endpoint{
		Name:    t.Name,
		URL:     t.Endpoint,
		Timeout: time.Duration(t.Timeout) * time.Millisecond,
	}
}

// RegisterHTTP validates every declaration and then registers each one as a
// tool that calls its endpoint through cl
func RegisterHTTP(
	reg *tool.Registry, cl *client.HTTPClient, defs []*HTTPTool,
) error {
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for _, d := range defs {
		if err := reg.Register(d.Name, cl.Func(d.ClientEndpoint())); err != nil {
			return err
		}
		slog.Info("HTTP tool registered",
			log.Tool(d.Name),
			slog.String("endpoint", d.Endpoint))
	}
	return nil
}
