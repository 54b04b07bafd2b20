package manifest

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/aweris/assetsync/internal/transport"
)

const DefaultVersionRange = "^2.0.0"

// Resolver fetches a manifest and gates it on a supported version range.
// It never retries; callers re-run the whole pipeline instead.
type Resolver struct {
	transport  transport.Transport
	constraint *semver.Constraints
	rangeExpr  string
}

// NewResolver fails when versionRange is not a valid semver range.
func NewResolver(t transport.Transport, versionRange string) (*Resolver, error) {
	if versionRange == "" {
		versionRange = DefaultVersionRange
	}
	c, err := semver.NewConstraint(versionRange)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest version range %q: %w", versionRange, err)
	}
	return &Resolver{transport: t, constraint: c, rangeExpr: versionRange}, nil
}

func (r *Resolver) Resolve(ctx context.Context, url string) (*Manifest, error) {
	resp, err := r.transport.Fetch(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	m, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := r.Check(m.Version); err != nil {
		return nil, err
	}
	return m, nil
}

// Check reports whether version satisfies the resolver's range.
func (r *Resolver) Check(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q is not a semantic version", ErrIncompatible, version)
	}
	if !r.constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatible, version, r.rangeExpr)
	}
	return nil
}
