package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/envcrypt/envcrypt/internal/audit"
	kerrors "github.com/envcrypt/envcrypt/internal/errors"
	logger "github.com/envcrypt/envcrypt/internal/logging"
	"github.com/envcrypt/envcrypt/internal/secrets"
	"github.com/envcrypt/envcrypt/internal/utils"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// Dir is the project directory. Empty means the working directory.
	Dir string

	// Passphrase the bundle was encrypted with.
	Passphrase string

	// DryRun decrypts in memory to check the passphrase but writes nothing.
	DryRun bool

	// Parallelism caps concurrent file decryptions. 0 uses the project
	// settings, falling back to GOMAXPROCS.
	Parallelism int

	Logger logger.Logger
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	// BundlePath is the bundle that was read.
	BundlePath string

	// DecryptedFiles lists the plaintext files restored, sorted.
	DecryptedFiles []string

	// ExistingFiles lists the subset of DecryptedFiles that already existed
	// and were (or would be) overwritten.
	ExistingFiles []string

	// ContentHash is the bundle's hash, now recorded as the last decrypted hash.
	ContentHash string

	DryRun bool
}

// Decrypt restores every file in the project's bundle.
//
// All records are decrypted in memory before the first write, so a wrong
// passphrase or a tampered record leaves the directory exactly as it was.
// Errors from reading or decoding the bundle are returned unchanged. Any
// record failure is wrapped in ErrDecryptFailed.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	log := opts.Logger

	p, err := loadProject(opts.Dir, log)
	if err != nil {
		return nil, err
	}

	bundle, err := secrets.ReadBundle(p.bundlePath())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(bundle.Files))
	for name := range bundle.Files {
		if !secrets.IsSafeFileName(name) || p.settings.IsReserved(name) {
			return nil, fmt.Errorf("%w: refusing to write %q", kerrors.ErrInvalidFormat, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	result := &DecryptResult{
		BundlePath:     p.bundlePath(),
		DecryptedFiles: names,
		ContentHash:    bundle.ContentHash,
		DryRun:         opts.DryRun,
	}

	plaintexts := make([][]byte, len(names))
	err = forEachFile(ctx, p.parallelism(opts.Parallelism), names, func(i int, name string) error {
		rec, err := secrets.DecodeRecord(bundle.Files[name])
		if err != nil {
			return fmt.Errorf("%w: %s: %w", kerrors.ErrDecryptFailed, name, err)
		}

		plaintext, err := secrets.DecryptRecord(rec, opts.Passphrase)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", kerrors.ErrDecryptFailed, name, err)
		}

		plaintexts[i] = plaintext
		log.Debugf("Decrypted %s (%d bytes)", name, len(plaintext))
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if utils.FileExists(filepath.Join(p.dir, name)) {
			result.ExistingFiles = append(result.ExistingFiles, name)
		}
	}

	if opts.DryRun {
		return result, nil
	}

	for i, name := range names {
		path := writeTarget(filepath.Join(p.dir, name))
		if err := utils.WriteFileAtomic(path, plaintexts[i], fileMode(path)); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %w", kerrors.ErrDecryptFailed, name, err)
		}
		log.Infof("Wrote %s", path)
	}

	if err := p.writeStateHash(bundle.ContentHash); err != nil {
		return nil, err
	}

	entry := audit.NewEntry("decrypt")
	entry.Files = names
	entry.Hash = bundle.ContentHash
	p.audit(entry)

	return result, nil
}

// writeTarget follows a symlinked plaintext file so the link itself survives
// the atomic rename.
func writeTarget(path string) string {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return path
	}
	if target, err := filepath.EvalSymlinks(path); err == nil {
		return target
	}
	return path
}

// fileMode keeps the permissions of an existing file, defaulting to 0644.
func fileMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return info.Mode().Perm()
	}
	return 0644
}
