package repository

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/dotvault/pkg/errors"
	"github.com/arthur-debert/dotvault/pkg/logging"
)

// Options configure a GitRepository
type Options struct {
	// Branch is used for new repositories and as a fallback when HEAD does
	// not name a branch.
	Branch      string
	Remote      string
	AuthorName  string
	AuthorEmail string

	// Auth overrides credential discovery
	Auth transport.AuthMethod
}

func (o Options) withDefaults() Options {
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.Remote == "" {
		o.Remote = DefaultRemote
	}
	return o
}

// GitRepository implements Repository with go-git
type GitRepository struct {
	path   string
	repo   *git.Repository
	opts   Options
	logger zerolog.Logger
}

var _ Repository = (*GitRepository)(nil)

// Init creates a new repository at path. When url is not empty it is added
// as the remote.
func Init(ctx context.Context, path, url string, opts Options) (*GitRepository, error) {
	opts = opts.withDefaults()

	repo, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(opts.Branch),
		},
	})
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryAlreadyExists) {
			return nil, errors.Wrapf(err, errors.ErrAlreadyInitialized, "repository already exists at %s", path)
		}
		return nil, errors.Wrapf(err, errors.ErrRepository, "failed to initialize repository at %s", path)
	}

	r := newGitRepository(path, repo, opts)
	if url != "" {
		if err := r.SetRemote(url); err != nil {
			return nil, err
		}
	}
	r.logger.Info().Str("path", path).Str("branch", opts.Branch).Msg("Initialized repository")
	return r, nil
}

// Clone clones url into path. Cloning an empty remote initializes a fresh
// repository pointing at it instead.
func Clone(ctx context.Context, url, path string, opts Options) (*GitRepository, error) {
	opts = opts.withDefaults()
	logger := logging.GetLogger("repository")

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:        url,
		RemoteName: opts.Remote,
		Auth:       authFor(url, opts),
	})
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		// remote HEAD names a branch that was never pushed
		logger.Debug().Str("url", url).Str("branch", opts.Branch).Msg("Remote HEAD is dangling, cloning configured branch")
		repo, err = git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
			URL:           url,
			RemoteName:    opts.Remote,
			ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
			Auth:          authFor(url, opts),
		})
	}
	if err != nil {
		if stderrors.Is(err, transport.ErrEmptyRemoteRepository) {
			logger.Info().Str("url", url).Msg("Remote is empty, initializing a new repository")
			return Init(ctx, path, url, opts)
		}
		return nil, errors.Wrapf(err, errors.ErrRepository, "failed to clone %s", url).
			WithDetail("url", url)
	}

	r := newGitRepository(path, repo, opts)
	logger.Info().Str("url", url).Str("path", path).Str("branch", r.branch()).Msg("Cloned repository")
	return r, nil
}

// Open opens an existing repository
func Open(ctx context.Context, path string, opts Options) (*GitRepository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if stderrors.Is(err, git.ErrRepositoryNotExists) {
			return nil, errors.Wrapf(err, errors.ErrNotInitialized, "no repository at %s", path)
		}
		return nil, errors.Wrapf(err, errors.ErrRepository, "failed to open repository at %s", path)
	}
	return newGitRepository(path, repo, opts.withDefaults()), nil
}

func newGitRepository(path string, repo *git.Repository, opts Options) *GitRepository {
	return &GitRepository{
		path:   path,
		repo:   repo,
		opts:   opts,
		logger: logging.GetLogger("repository"),
	}
}

func (r *GitRepository) Path() string {
	return r.path
}

func (r *GitRepository) HasRemote() bool {
	return r.RemoteURL() != ""
}

func (r *GitRepository) RemoteURL() string {
	remote, err := r.repo.Remote(r.opts.Remote)
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func (r *GitRepository) SetRemote(url string) error {
	if err := r.repo.DeleteRemote(r.opts.Remote); err != nil && !stderrors.Is(err, git.ErrRemoteNotFound) {
		return errors.Wrapf(err, errors.ErrRepository, "failed to replace remote %s", r.opts.Remote)
	}
	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: r.opts.Remote,
		URLs: []string{url},
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrRepository, "failed to add remote %s", url).WithDetail("url", url)
	}
	r.logger.Info().Str("remote", r.opts.Remote).Str("url", url).Msg("Configured remote")
	return nil
}

// branch is the branch HEAD points at, even when it has no commits yet
func (r *GitRepository) branch() string {
	ref, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err == nil && ref.Type() == plumbing.SymbolicReference && ref.Target().IsBranch() {
		return ref.Target().Short()
	}
	return r.opts.Branch
}

func (r *GitRepository) CommitAll(ctx context.Context, message string) (CommitID, bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrRepository, "failed to open worktree")
	}

	status, err := wt.Status()
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrRepository, "failed to read worktree status")
	}
	if status.IsClean() {
		r.logger.Debug().Msg("Nothing to commit")
		return "", false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", false, errors.Wrap(err, errors.ErrRepository, "failed to stage changes")
	}
	for path, s := range status {
		if s.Worktree == git.Deleted {
			// already staged by the add above on recent go-git versions
			if _, err := wt.Remove(path); err != nil {
				r.logger.Trace().Err(err).Str("path", path).Msg("Deletion already staged")
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	sig := r.signature()
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		if stderrors.Is(err, git.ErrEmptyCommit) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, errors.ErrRepository, "failed to commit")
	}

	r.logger.Info().Str("commit", hash.String()).Int("files", len(status)).Msg("Committed changes")
	return CommitID(hash.String()), true, nil
}

// signature prefers configured identity, then the user's git config
func (r *GitRepository) signature() *object.Signature {
	name, email := r.opts.AuthorName, r.opts.AuthorEmail
	if name == "" || email == "" {
		if cfg, err := r.repo.ConfigScoped(config.GlobalScope); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		name = DefaultAuthorName
	}
	if email == "" {
		email = DefaultAuthorEmail
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

func (r *GitRepository) Pull(ctx context.Context) (PullResult, error) {
	if !r.HasRemote() {
		return PullResult{Message: "no remote configured"}, nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return PullResult{}, errors.Wrap(err, errors.ErrRepository, "failed to open worktree")
	}

	branch := r.branch()
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    r.opts.Remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          authFor(r.RemoteURL(), r.opts),
	})

	var noMatch git.NoMatchingRefSpecError
	switch {
	case err == nil:
		head, _ := r.head()
		r.logger.Info().Str("head", string(head)).Msg("Pulled remote changes")
		return PullResult{Updated: true, Head: head, Message: "fast-forwarded to " + head.Short()}, nil
	case stderrors.Is(err, git.NoErrAlreadyUpToDate):
		return PullResult{Message: "already up to date"}, nil
	case stderrors.Is(err, transport.ErrEmptyRemoteRepository),
		stderrors.Is(err, plumbing.ErrReferenceNotFound),
		stderrors.As(err, &noMatch):
		return PullResult{Message: "remote has no " + branch + " branch yet"}, nil
	case stderrors.Is(err, git.ErrNonFastForwardUpdate):
		return PullResult{}, &ConflictReport{
			Remote: r.opts.Remote,
			Branch: branch,
			Reason: "local and remote histories have diverged",
			Err:    err,
		}
	case stderrors.Is(err, git.ErrUnstagedChanges):
		return PullResult{}, &ConflictReport{
			Remote: r.opts.Remote,
			Branch: branch,
			Reason: "working tree has uncommitted changes",
			Err:    err,
		}
	default:
		return PullResult{}, errors.Wrapf(err, errors.ErrRepository, "failed to pull from %s", r.opts.Remote)
	}
}

func (r *GitRepository) Push(ctx context.Context) (PushResult, error) {
	if !r.HasRemote() {
		return PushResult{Message: "no remote configured"}, nil
	}
	if _, err := r.head(); err != nil {
		return PushResult{Message: "nothing to push"}, nil
	}

	branch := r.branch()
	ref := plumbing.NewBranchReferenceName(branch)
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: r.opts.Remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref.String() + ":" + ref.String())},
		Auth:       authFor(r.RemoteURL(), r.opts),
	})

	switch {
	case err == nil:
		r.logger.Info().Str("branch", branch).Msg("Pushed local commits")
		return PushResult{Pushed: true, Message: "pushed " + branch}, nil
	case stderrors.Is(err, git.NoErrAlreadyUpToDate):
		return PushResult{Message: "already up to date"}, nil
	case isNonFastForward(err):
		return PushResult{}, &RejectionReport{
			Remote: r.opts.Remote,
			Branch: branch,
			Reason: "remote has commits that are not present locally, pull first",
			Err:    err,
		}
	default:
		return PushResult{}, errors.Wrapf(err, errors.ErrRepository, "failed to push to %s", r.opts.Remote)
	}
}

// isNonFastForward matches the ways go-git reports a push the remote would
// have to force: the local check on advertised refs returns a plain
// "non-fast-forward update: <ref>" error, and servers answer with a failed
// ref status.
func isNonFastForward(err error) bool {
	if stderrors.Is(err, git.ErrNonFastForwardUpdate) || stderrors.Is(err, git.ErrForceNeeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "fetch first")
}

func (r *GitRepository) Status(ctx context.Context) ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRepository, "failed to open worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRepository, "failed to read worktree status")
	}

	changed := make([]string, 0, len(status))
	for path, s := range status {
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func (r *GitRepository) Undo(ctx context.Context) (CommitID, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidInput, "repository has no commits")
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRepository, "failed to read HEAD commit")
	}
	if commit.NumParents() == 0 {
		return "", errors.New(errors.ErrInvalidInput, "cannot undo the initial commit")
	}

	pushed, err := r.isPushed(commit)
	if err != nil {
		return "", err
	}
	if pushed {
		return "", errors.Newf(errors.ErrInvalidInput, "commit %s has already been pushed", head.Hash().String()[:7])
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRepository, "failed to read parent commit")
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrRepository, "failed to open worktree")
	}
	if err := wt.Reset(&git.ResetOptions{Commit: parent.Hash, Mode: git.MixedReset}); err != nil {
		return "", errors.Wrap(err, errors.ErrRepository, "failed to reset to parent commit")
	}

	r.logger.Info().
		Str("undone", head.Hash().String()).
		Str("head", parent.Hash.String()).
		Msg("Undid last commit")
	return CommitID(parent.Hash.String()), nil
}

// isPushed reports whether commit is reachable from the remote tracking
// branch
func (r *GitRepository) isPushed(commit *object.Commit) (bool, error) {
	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.opts.Remote, r.branch()), true)
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrRepository, "failed to read remote tracking branch")
	}
	if remoteRef.Hash() == commit.Hash {
		return true, nil
	}
	remoteCommit, err := r.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return false, errors.Wrap(err, errors.ErrRepository, "failed to read remote commit")
	}
	ancestor, err := commit.IsAncestor(remoteCommit)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrRepository, "failed to compare with remote")
	}
	return ancestor, nil
}

func (r *GitRepository) head() (CommitID, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	return CommitID(ref.Hash().String()), nil
}

// Head returns the current commit, or "" before the first commit
func (r *GitRepository) Head() CommitID {
	h, _ := r.head()
	return h
}
