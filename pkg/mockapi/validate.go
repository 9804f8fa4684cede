package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common validation errors for project definitions.
var (
	ErrEmptyName          = errors.New("project name cannot be empty")
	ErrEmptyOwner         = errors.New("project ownerId cannot be empty")
	ErrEmptyPath          = errors.New("endpoint path cannot be empty")
	ErrBadMethod          = errors.New("endpoint method is not a valid HTTP method")
	ErrDanglingDataSource = errors.New("dataSource does not reference an endpoint in this project")
	ErrDataSourceNotPost  = errors.New("dataSource must reference a POST endpoint")
	ErrAggregatorConfig   = errors.New("aggregator mode requires an aggregator and at least one selected field")
)

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Validate checks a project definition for configuration errors. It is meant
// to run at load time so broken data-source or aggregator wiring is reported
// before the first request, not during it.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.OwnerID == "" {
		return fmt.Errorf("project %q: %w", p.Name, ErrEmptyOwner)
	}

	for i := range p.Endpoints {
		if err := p.validateEndpoint(&p.Endpoints[i]); err != nil {
			return fmt.Errorf("project %q endpoint %d: %w", p.Name, i, err)
		}
	}
	return nil
}

func (p *Project) validateEndpoint(e *Endpoint) error {
	if e.Path == "" {
		return ErrEmptyPath
	}
	if !validMethods[strings.ToUpper(e.Method)] {
		return fmt.Errorf("%w: %q", ErrBadMethod, e.Method)
	}

	switch e.RequiresAuth {
	case "", AuthInherit, AuthRequired, AuthNotRequired:
	default:
		return fmt.Errorf("invalid requiresAuth value %q", e.RequiresAuth)
	}

	if e.DataSource != "" {
		src := p.EndpointByID(e.DataSource)
		if src == nil {
			return fmt.Errorf("%w: %q", ErrDanglingDataSource, e.DataSource)
		}
		if !strings.EqualFold(src.Method, http.MethodPost) {
			return fmt.Errorf("%w: %q has method %s", ErrDataSourceNotPost, e.DataSource, src.Method)
		}
	}

	if e.Mode() == ModeAggregator {
		if e.Aggregator == "" || len(e.SelectedFields) == 0 {
			return ErrAggregatorConfig
		}
		switch e.Aggregator {
		case AggCount, AggSum, AggAvg, AggMin, AggMax, AggTotal:
		default:
			return fmt.Errorf("invalid aggregator %q", e.Aggregator)
		}
	}

	return nil
}
