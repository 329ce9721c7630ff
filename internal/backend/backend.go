// Package backend implements the facade operation fetch(query) ->
// ResponseDocument: it sequences label resolution, checkout, candidate
// resolution, parsing, and merging into the wire response shape. Dispatch
// is by interface so an additional backend (object store, SQL) could
// implement the same facade without changes to the request pipeline.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	apierrors "github.com/vitaliisemenov/configserver/internal/api/errors"
	"github.com/vitaliisemenov/configserver/internal/gitrepo"
	"github.com/vitaliisemenov/configserver/internal/parser"
	"github.com/vitaliisemenov/configserver/internal/property"
	"github.com/vitaliisemenov/configserver/internal/refresh"
	"github.com/vitaliisemenov/configserver/internal/resolver"
)

// PropertySource is a (name, document) pair carrying provenance of one
// layer of the merged response.
type PropertySource struct {
	Name   string                 `json:"name"`
	Source map[string]interface{} `json:"source"`
}

// ResponseDocument is the facade's reply payload.
type ResponseDocument struct {
	Name            string           `json:"name"`
	Profiles        []string         `json:"profiles"`
	Label           string           `json:"label"`
	Version         string           `json:"version"`
	State           interface{}      `json:"state"`
	PropertySources []PropertySource `json:"propertySources"`

	// Merged is the fully merged document (highest precedence value per
	// key). It is not part of the wire envelope; resource-style endpoints
	// (".yml", ".properties") render this instead of the propertySources
	// list.
	Merged *property.Document `json:"-"`
}

// Query is the facade's input: application is non-empty, profiles is
// non-empty (duplicates permitted), and label is optional — an empty
// Label means "use the default label's currently checked-out commit".
type Query struct {
	Application string
	Profiles    []string
	Label       string
}

// Driver is the subset of the repository driver the facade depends on.
type Driver interface {
	Checkout(ctx context.Context, label string) (commit string, err error)
}

// RefreshState exposes the worker's published refresh state, used to
// resolve an absent query label to the currently tracked default label.
type RefreshState interface {
	Snapshot() (refresh.State, refresh.Phase)
}

// Backend is the facade implementation over a single versioned repository.
type Backend struct {
	driver       Driver
	refreshState RefreshState
	resolver     *resolver.Resolver
	mirrorPath   string
	searchPaths  []string
	logger       *slog.Logger
}

// New constructs a Backend reading candidate files from mirrorPath.
func New(driver Driver, refreshState RefreshState, res *resolver.Resolver, mirrorPath string, searchPaths []string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		driver:       driver,
		refreshState: refreshState,
		resolver:     res,
		mirrorPath:   mirrorPath,
		searchPaths:  searchPaths,
		logger:       logger,
	}
}

// Fetch implements the facade operation.
func (b *Backend) Fetch(ctx context.Context, q Query) (*ResponseDocument, error) {
	if q.Application == "" || len(q.Profiles) == 0 {
		return nil, apierrors.NotFoundError("empty application or profiles")
	}

	label, version, err := b.resolveLabel(ctx, q.Label)
	if err != nil {
		return nil, err
	}

	candidates, resolveErr := b.resolver.Resolve(b.mirrorPath, q.Application, q.Profiles, b.searchPaths)
	if resolveErr != nil {
		var perr *parser.ParseError
		if errors.As(resolveErr, &perr) {
			return nil, apierrors.ParseErrorFrom(perr.Path, perr.Detail)
		}
		return nil, apierrors.InternalError(resolveErr.Error())
	}
	if len(candidates) == 0 {
		return nil, apierrors.NotFoundError(fmt.Sprintf("%s/%s", q.Application, strings.Join(q.Profiles, ",")))
	}

	merged := property.New()
	sources := make([]PropertySource, 0, len(candidates))
	for _, c := range candidates {
		data, readErr := os.ReadFile(c.AbsPath)
		if readErr != nil {
			return nil, apierrors.InternalError(fmt.Sprintf("failed to read %s", c.Path))
		}

		doc, parseErr := parser.Parse(c.Path, data)
		if parseErr != nil {
			var perr *parser.ParseError
			if errors.As(parseErr, &perr) {
				return nil, apierrors.ParseErrorFrom(perr.Path, perr.Detail)
			}
			return nil, apierrors.InternalError(parseErr.Error())
		}

		if collisions := property.Collisions(merged, doc); len(collisions) > 0 {
			b.logger.Warn("backend: overlapping scalar and nested keys across sources, last writer wins",
				"application", q.Application, "source", c.Path, "keys", collisions)
		}
		merged = property.Merge(merged, doc)
		sources = append(sources, PropertySource{
			Name:   fmt.Sprintf("git:%s:%s", label, c.Path),
			Source: property.ToNestedMap(doc),
		})
	}

	reverse(sources)

	return &ResponseDocument{
		Name:            q.Application,
		Profiles:        q.Profiles,
		Label:           label,
		Version:         version,
		State:           nil,
		PropertySources: sources,
		Merged:          merged,
	}, nil
}

// resolveLabel implements step 1 of the facade sequence: absent labels use
// the worker's currently tracked default label and commit (no checkout is
// issued, since the refresh worker keeps the mirror checked out there
// already); an explicit label triggers checkout, stamping version with the
// checked-out label's commit, never the worker's separately tracked default.
func (b *Backend) resolveLabel(ctx context.Context, queryLabel string) (label, version string, err error) {
	if queryLabel == "" {
		state, _ := b.refreshState.Snapshot()
		return state.CurrentLabel, state.CurrentCommit, nil
	}

	if err := gitrepo.ValidateLabel(queryLabel); err != nil {
		return "", "", apierrors.InvalidLabelError(queryLabel)
	}

	commit, err := b.driver.Checkout(ctx, queryLabel)
	if err != nil {
		return "", "", mapDriverErr(err, queryLabel)
	}
	return queryLabel, commit, nil
}

func mapDriverErr(err error, label string) error {
	switch {
	case errors.Is(err, gitrepo.ErrUnknownLabel):
		return apierrors.UnknownLabelError(label)
	case errors.Is(err, gitrepo.ErrInvalidLabel):
		return apierrors.InvalidLabelError(label)
	case errors.Is(err, gitrepo.ErrNetworkTimeout):
		return apierrors.NetworkTimeoutError("checkout")
	default:
		return apierrors.BackendUnavailableError(err.Error())
	}
}

func reverse(s []PropertySource) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
