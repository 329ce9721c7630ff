// Package gitrepo implements the repository driver: it maintains a local
// mirror of an upstream git repository and exposes ensure-mirror, fetch,
// and checkout, serialized by an internal lock so concurrent callers never
// observe a half-applied checkout.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Driver owns a single local repository mirror exclusively; only its
// methods may mutate HEAD or the working tree.
type Driver struct {
	mu           sync.Mutex
	path         string
	remoteURL    string
	creds        Credentials
	cloneTimeout time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	repo *git.Repository
}

// New returns a Driver for the mirror at path tracking remoteURL.
func New(path, remoteURL string, creds Credentials, cloneTimeout, fetchTimeout time.Duration, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		path:         path,
		remoteURL:    remoteURL,
		creds:        creds,
		cloneTimeout: cloneTimeout,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// EnsureMirror opens the local mirror if it already exists, or clones it if
// the directory is absent or empty. A directory that exists, is non-empty,
// and is not a valid repository is never destructively repaired.
func (d *Driver) EnsureMirror(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureMirrorLocked(ctx)
}

func (d *Driver) ensureMirrorLocked(ctx context.Context) error {
	if d.repo != nil {
		return nil
	}

	repo, err := git.PlainOpen(d.path)
	if err == nil {
		d.repo = repo
		return nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return fmt.Errorf("%w: %v", ErrNotARepository, err)
	}

	if info, statErr := os.Stat(d.path); statErr == nil && info.IsDir() {
		entries, readErr := os.ReadDir(d.path)
		if readErr == nil && len(entries) > 0 {
			return ErrNotARepository
		}
	}

	cctx, cancel := context.WithTimeout(ctx, d.cloneTimeout)
	defer cancel()

	repo, err = git.PlainCloneContext(cctx, d.path, false, &git.CloneOptions{
		URL:  d.remoteURL,
		Auth: d.creds.AuthMethod(),
	})
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return ErrNetworkTimeout
		}
		return fmt.Errorf("clone: %w", err)
	}

	d.logger.Info("gitrepo: cloned mirror", "path", d.path)
	d.repo = repo
	return nil
}

// Fetch updates remote-tracking references without touching HEAD or the
// working tree. hadChanges reports whether the tracked references moved.
func (d *Driver) Fetch(ctx context.Context) (hadChanges bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureMirrorLocked(ctx); err != nil {
		return false, err
	}

	fctx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	defer cancel()

	err = d.repo.FetchContext(fctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       d.creds.AuthMethod(),
		Force:      true,
	})
	if err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return false, nil
		}
		if fctx.Err() == context.DeadlineExceeded {
			return false, ErrNetworkTimeout
		}
		return false, fmt.Errorf("fetch: %w", err)
	}
	return true, nil
}

// Checkout resolves label to a commit and updates HEAD and the working
// tree to it. If HEAD already points at the resolved commit, it is a
// no-op. On failure, the prior commit is restored so the checkout is
// atomic from the consumer's perspective.
func (d *Driver) Checkout(ctx context.Context, label string) (string, error) {
	if err := ValidateLabel(label); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureMirrorLocked(ctx); err != nil {
		return "", err
	}

	hash, err := d.resolveLabelLocked(label)
	if err != nil {
		return "", err
	}

	head, headErr := d.repo.Head()
	if headErr == nil && head.Hash() == hash {
		return hash.String(), nil
	}

	wt, err := d.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	prevHash := plumbing.ZeroHash
	if headErr == nil {
		prevHash = head.Hash()
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		if prevHash != plumbing.ZeroHash {
			_ = wt.Checkout(&git.CheckoutOptions{Hash: prevHash, Force: true})
		}
		return "", fmt.Errorf("checkout: %w", err)
	}

	return hash.String(), nil
}

// CurrentCommit returns HEAD's commit hash, or the zero value if the
// mirror has never been checked out.
func (d *Driver) CurrentCommit() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.repo == nil {
		return "", false
	}
	head, err := d.repo.Head()
	if err != nil {
		return "", false
	}
	return head.Hash().String(), true
}

// resolveLabelLocked implements the label resolution order: a full
// 40-character commit bypasses lookup; otherwise local branch, then
// remote-tracking branch under "origin", then tag.
func (d *Driver) resolveLabelLocked(label string) (plumbing.Hash, error) {
	if isFullCommit(label) {
		return plumbing.NewHash(label), nil
	}

	if ref, err := d.repo.Reference(plumbing.NewBranchReferenceName(label), true); err == nil {
		return ref.Hash(), nil
	}
	if ref, err := d.repo.Reference(plumbing.NewRemoteReferenceName("origin", label), true); err == nil {
		return ref.Hash(), nil
	}
	if ref, err := d.repo.Reference(plumbing.NewTagReferenceName(label), true); err == nil {
		return ref.Hash(), nil
	}

	return plumbing.Hash{}, ErrUnknownLabel
}
