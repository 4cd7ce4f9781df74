package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/envcrypt/envcrypt/internal/audit"
	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/secrets"
	"github.com/envcrypt/envcrypt/internal/utils"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// Dir is the project directory. Empty means the working directory.
	Dir string

	// Passphrase protects every file in the bundle.
	Passphrase string

	// Force skips the staleness check against the last decrypted state.
	Force bool

	// DryRun selects files and checks staleness without writing anything.
	DryRun bool

	// Parallelism caps concurrent file encryptions. 0 uses the project
	// settings, falling back to GOMAXPROCS.
	Parallelism int

	Logger logger.Logger
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// BundlePath is the bundle that was (or would be) written.
	BundlePath string

	// SourceFiles lists the plaintext files included, sorted.
	SourceFiles []string

	// ContentHash is the hash of the new bundle. Empty on a dry run.
	ContentHash string

	// PreviousHash is the hash of the bundle that was replaced, if any.
	PreviousHash string

	// Forced is true when the staleness check was skipped and would have failed.
	Forced bool

	DryRun bool
}

// Encrypt encrypts every selected plaintext file in the project directory into
// a single bundle.
//
// Before anything is read it compares the hash recorded at the last decrypt
// with the hash of the bundle on disk. When both exist and differ, someone
// else has re-encrypted since this checkout last decrypted, and Encrypt
// returns ErrStaleState unless Force is set.
//
// Every file is encrypted before the bundle is written, so a failure leaves
// the existing bundle and state untouched.
func Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
	log := opts.Logger

	p, err := loadProject(opts.Dir, log)
	if err != nil {
		return nil, err
	}

	stateHash, _, err := p.stateHash()
	if err != nil {
		return nil, err
	}
	bundleHash := p.bundleHash()
	log.Debugf("State hash %q, bundle hash %q", stateHash, bundleHash)

	stale := stateHash != "" && bundleHash != "" && stateHash != bundleHash
	if stale && !opts.Force {
		return nil, fmt.Errorf("%w: %s was re-encrypted after the last decrypt, run decrypt first or use --force",
			kerrors.ErrStaleState, p.settings.Bundle.Name)
	}
	if stale {
		log.WarnfAlways("Overwriting %s even though local state is outdated", p.settings.Bundle.Name)
	}

	files, err := secrets.FindSecretFiles(p.dir, p.settings.Selector())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrEncryptFailed, err)
	}
	log.Infof("Selected %d file(s) for encryption", len(files))

	result := &EncryptResult{
		BundlePath:   p.bundlePath(),
		SourceFiles:  files,
		PreviousHash: bundleHash,
		Forced:       stale,
		DryRun:       opts.DryRun,
	}

	if opts.DryRun {
		return result, nil
	}

	records := make([]*secrets.CipherRecord, len(files))
	err = forEachFile(ctx, p.parallelism(opts.Parallelism), files, func(i int, name string) error {
		// #nosec G304 -- name comes from a listing of p.dir.
		plaintext, err := os.ReadFile(filepath.Join(p.dir, name))
		if err != nil {
			return fmt.Errorf("%w: reading %s: %w", kerrors.ErrEncryptFailed, name, err)
		}

		rec, err := secrets.EncryptBytes(plaintext, opts.Passphrase)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", kerrors.ErrEncryptFailed, name, err)
		}

		records[i] = rec
		log.Debugf("Encrypted %s (%d bytes)", name, len(plaintext))
		return nil
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*secrets.CipherRecord, len(files))
	for i, name := range files {
		byName[name] = records[i]
	}

	bundle := secrets.NewBundle(byName)
	data, err := bundle.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrEncryptFailed, err)
	}

	// #nosec G306 -- the bundle is ciphertext and meant to be committed.
	if err := utils.WriteFileAtomic(result.BundlePath, data, 0644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %w", kerrors.ErrEncryptFailed, p.settings.Bundle.Name, err)
	}
	log.Infof("Wrote %s", result.BundlePath)

	if err := p.writeStateHash(bundle.ContentHash); err != nil {
		return nil, err
	}

	result.ContentHash = bundle.ContentHash

	entry := audit.NewEntry("encrypt")
	entry.Files = files
	entry.Hash = bundle.ContentHash
	entry.PreviousHash = bundleHash
	entry.Forced = stale
	p.audit(entry)

	return result, nil
}
