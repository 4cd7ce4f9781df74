package workflows

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/envcrypt/envcrypt/internal/audit"
	"github.com/envcrypt/envcrypt/internal/configs"
	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/secrets"
)

// project bundles what every workflow needs to know about a directory.
type project struct {
	dir      string
	settings *configs.Settings
	log      logger.Logger
}

func loadProject(dir string, log logger.Logger) (*project, error) {
	if dir == "" {
		dir = "."
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory %s: %w", dir, err)
	}

	settings, err := configs.LoadSettings(abs)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded settings for %s (bundle %s, state %s)", abs, settings.Bundle.Name, settings.Bundle.State)

	return &project{dir: abs, settings: settings, log: log}, nil
}

func (p *project) bundlePath() string {
	return p.settings.BundlePath(p.dir)
}

// stateHash returns the last decrypted hash, or "" when none is recorded.
func (p *project) stateHash() (string, *configs.StateRecord, error) {
	state, err := configs.ReadState(p.dir, p.settings.Bundle.State, p.log)
	if err != nil {
		return "", nil, fmt.Errorf("reading state: %w", err)
	}
	if !state.HasHash() {
		return "", state, nil
	}
	return state.LastDecryptedHash, state, nil
}

// bundleHash returns the current bundle's hash, or "" when there is no usable
// bundle. A corrupt bundle is treated like a missing one here.
func (p *project) bundleHash() string {
	bundle, err := secrets.ReadBundle(p.bundlePath())
	if err != nil {
		if !errors.Is(err, kerrors.ErrBundleNotFound) {
			p.log.Warnf("Ignoring unreadable %s: %v", p.settings.Bundle.Name, err)
		}
		return ""
	}
	return bundle.ContentHash
}

func (p *project) writeStateHash(hash string) error {
	if err := configs.WriteStateHash(p.dir, p.settings.Bundle.State, hash, p.log); err != nil {
		return fmt.Errorf("updating state: %w", err)
	}
	return nil
}

func (p *project) audit(entry audit.Entry) {
	if !p.settings.Audit.Enabled {
		return
	}
	audit.Log(p.settings.AuditLogPath(p.dir), entry)
}

// parallelism picks the worker limit: an explicit override, then settings,
// then GOMAXPROCS.
func (p *project) parallelism(override int) int {
	if override > 0 {
		return override
	}
	if n := p.settings.Workers.Parallelism; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// forEachFile runs fn for every name with at most limit calls in flight. The
// first error cancels the remaining work and is returned.
func forEachFile(ctx context.Context, limit int, names []string, fn func(i int, name string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(i, name)
		})
	}

	return g.Wait()
}
