package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/secrets"
	"github.com/envcrypt/envcrypt/internal/utils"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	// Dir is the project directory. Empty means the working directory.
	Dir string

	Logger logger.Logger
}

// StatusResult describes how the local directory relates to the bundle.
type StatusResult struct {
	ProjectName string `json:"project"`
	Dir         string `json:"dir"`
	BundlePath  string `json:"bundle_path"`

	// BundleExists is true when the bundle file is present, even if unusable.
	BundleExists bool `json:"bundle_exists"`

	// BundleError describes why an existing bundle could not be decoded.
	BundleError string `json:"bundle_error,omitempty"`

	BundleHash string `json:"bundle_hash,omitempty"`

	// HashVerified is true when the stored hash matches the bundle's records.
	HashVerified bool `json:"hash_verified"`

	StateHash        string `json:"state_hash,omitempty"`
	HasRememberedKey bool   `json:"has_remembered_key"`

	// InSync is true when the last decrypt saw the current bundle.
	InSync bool `json:"in_sync"`

	// Stale is true when encrypt would refuse to run without --force.
	Stale bool `json:"stale"`

	LocalFiles     []string `json:"local_files"`
	BundleFiles    []string `json:"bundle_files"`
	MissingLocally []string `json:"missing_locally"`
	NotInBundle    []string `json:"not_in_bundle"`
}

// Status inspects the project directory without writing anything.
//
// A missing bundle is not an error. A bundle that fails to decode is reported
// through BundleError so the caller can still show the local side.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	log := opts.Logger

	p, err := loadProject(opts.Dir, log)
	if err != nil {
		return nil, err
	}

	projectName, err := utils.GetProjectName(p.dir)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		ProjectName:    projectName,
		Dir:            p.dir,
		BundlePath:     p.bundlePath(),
		LocalFiles:     []string{},
		BundleFiles:    []string{},
		MissingLocally: []string{},
		NotInBundle:    []string{},
	}

	stateHash, state, err := p.stateHash()
	if err != nil {
		return nil, err
	}
	result.StateHash = stateHash
	result.HasRememberedKey = state != nil && state.Key != ""

	local, err := secrets.FindSecretFiles(p.dir, p.settings.Selector())
	if err != nil {
		return nil, err
	}
	result.LocalFiles = local

	bundle, err := secrets.ReadBundle(result.BundlePath)
	switch {
	case errors.Is(err, kerrors.ErrBundleNotFound):
		log.Debugf("No bundle at %s", result.BundlePath)
		result.NotInBundle = local
		return result, nil
	case err != nil:
		result.BundleExists = true
		result.BundleError = err.Error()
		result.NotInBundle = local
		return result, nil
	}

	result.BundleExists = true
	result.BundleHash = bundle.ContentHash
	result.HashVerified = bundle.Verify()
	result.InSync = stateHash != "" && stateHash == bundle.ContentHash
	result.Stale = stateHash != "" && bundle.ContentHash != "" && stateHash != bundle.ContentHash

	inBundle := make(map[string]bool, len(bundle.Files))
	for name := range bundle.Files {
		inBundle[name] = true
		result.BundleFiles = append(result.BundleFiles, name)
	}
	sort.Strings(result.BundleFiles)

	isLocal := make(map[string]bool, len(local))
	for _, name := range local {
		isLocal[name] = true
		if !inBundle[name] {
			result.NotInBundle = append(result.NotInBundle, name)
		}
	}
	for _, name := range result.BundleFiles {
		if isLocal[name] {
			continue
		}
		if !secrets.IsSafeFileName(name) || !utils.FileExists(filepath.Join(p.dir, name)) {
			result.MissingLocally = append(result.MissingLocally, name)
		}
	}

	return result, nil
}
