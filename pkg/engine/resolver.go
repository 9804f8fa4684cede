// Package engine provides the mock API runtime: endpoint resolution, access
// control, quota enforcement, and the request-processing pipeline.
package engine

import (
	"context"
	"strings"

	"github.com/mockstack/mockstack/internal/storage"
	"github.com/mockstack/mockstack/pkg/mockapi"
)

// Match is the result of resolving an inbound request to an endpoint.
type Match struct {
	Project  *mockapi.Project
	Endpoint *mockapi.Endpoint
}

// Resolver matches inbound method+path pairs against stored projects.
type Resolver struct {
	projects storage.ProjectStore
}

// NewResolver creates a Resolver over the given project store.
func NewResolver(projects storage.ProjectStore) *Resolver {
	return &Resolver{projects: projects}
}

// Resolve finds the endpoint serving the given method and request path.
// The first path segment selects the project by slug; the remainder must
// exactly match basePath+endpoint.path. Matching is case-sensitive and
// first match wins in declaration order. Returns (nil, nil) when nothing
// matches.
func (r *Resolver) Resolve(ctx context.Context, method, requestPath string) (*Match, error) {
	slug, rest := splitSlug(requestPath)
	if slug == "" {
		return nil, nil
	}

	projects, err := r.projects.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, project := range projects {
		if mockapi.Slug(project.Name) != slug {
			continue
		}
		for j := range project.Endpoints {
			ep := &project.Endpoints[j]
			if ep.Method != method {
				continue
			}
			if joinPath(project.BasePath, ep.Path) == rest {
				return &Match{Project: project, Endpoint: ep}, nil
			}
		}
	}
	return nil, nil
}

// splitSlug separates the project slug from the rest of the request path.
// "/myproj/users" yields ("myproj", "/users"); "/myproj" yields ("myproj", "/").
func splitSlug(requestPath string) (slug, rest string) {
	p := strings.TrimPrefix(requestPath, "/")
	if p == "" {
		return "", ""
	}
	if idx := strings.IndexByte(p, '/'); idx >= 0 {
		return p[:idx], p[idx:]
	}
	return p, "/"
}

// joinPath combines a project base path and an endpoint path, forcing each
// side to start with "/" and collapsing a bare "/" base so that base "/"
// plus path "/users" matches "/users".
func joinPath(base, path string) string {
	base = ensureLeading(base)
	path = ensureLeading(path)
	base = strings.TrimSuffix(base, "/")
	joined := base + path
	if joined == "" {
		return "/"
	}
	return joined
}

func ensureLeading(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}
