package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termserv/termserv/internal/config"
)

// registerResources publishes the configured files as read-only
// resources. With nothing configured, a workspace README.md is
// exposed when present.
func registerResources(s *sdkmcp.Server, h *handler, cfg *config.Config, workspace string) {
	files := cfg.Resources
	if len(files) == 0 {
		if _, err := os.Stat(filepath.Join(workspace, "README.md")); err == nil {
			files = []config.ResourceFile{{
				Path:        "README.md",
				Name:        "readme",
				Description: "The workspace README.",
			}}
		}
	}

	for _, f := range files {
		path := f.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			h.log.Warn("skipping resource", "path", f.Path, "error", err)
			continue
		}

		name := f.Name
		if name == "" {
			name = filepath.Base(abs)
		}
		mime := f.MIMEType
		if mime == "" {
			mime = "text/plain"
		}

		s.AddResource(&sdkmcp.Resource{
			URI:         "file://" + filepath.ToSlash(abs),
			Name:        name,
			Description: f.Description,
			MIMEType:    mime,
		}, makeFileResourceHandler(abs, mime))
	}
}

// makeFileResourceHandler returns a handler that reads the file on
// every request, so clients always see the current contents.
func makeFileResourceHandler(path, mime string) sdkmcp.ResourceHandler {
	return func(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading resource %s: %w", path, err)
		}
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: mime,
				Text:     string(data),
			}},
		}, nil
	}
}
