package git

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	appcfg "git.home.luguber.info/inful/subsync/internal/config"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transportOnce sync.Once

// useInProcessTransport routes file-protocol remotes through go-git's server
// package so tests never shell out to a git binary.
func useInProcessTransport(t *testing.T) {
	t.Helper()
	transportOnce.Do(func() {
		client.InstallProtocol("file", server.NewClient(server.NewFilesystemLoader(osfs.New("/"))))
	})
}

func testSignature() *object.Signature {
	return &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()}
}

// seedRemote creates a bare repository and pushes one commit containing the
// given files to its master branch. It returns the remote path and head hash.
func seedRemote(t *testing.T, files map[string]string) (string, plumbing.Hash) {
	t.Helper()
	useInProcessTransport(t)

	remotePath := filepath.Join(t.TempDir(), "remote.git")
	_, err := gogit.PlainInit(remotePath, true)
	require.NoError(t, err)

	return remotePath, pushCommit(t, remotePath, files, "seed remote\n")
}

// pushCommit commits the given files in a scratch clone-equivalent and pushes
// the result to the remote's master branch.
func pushCommit(t *testing.T, remotePath string, files map[string]string, message string) plumbing.Hash {
	t.Helper()

	workDir := t.TempDir()
	repo, err := gogit.PlainInit(workDir, false)
	require.NoError(t, err)

	// Bring in existing remote history first so the push fast-forwards.
	remote := gogit.NewRemote(repo.Storer, &gitcfg.RemoteConfig{Name: "origin", URLs: []string{remotePath}})
	err = remote.Fetch(&gogit.FetchOptions{RefSpecs: []gitcfg.RefSpec{"+refs/heads/master:refs/heads/master"}})
	if err == nil {
		wt, werr := repo.Worktree()
		require.NoError(t, werr)
		require.NoError(t, wt.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("master"), Force: true}))
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		path := filepath.Join(workDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: testSignature()})
	require.NoError(t, err)

	err = remote.Push(&gogit.PushOptions{RefSpecs: []gitcfg.RefSpec{"refs/heads/master:refs/heads/master"}})
	require.NoError(t, err)
	return hash
}

// shareObjects copies every object from the working repository into the bare
// remote's store. The in-process transport resolves fetch negotiation "have"
// lines against the remote's object database and errors on hashes the remote
// has never seen, so a remote that diverged from a local snapshot commit must
// learn the snapshot's objects before the local side can fetch from it. Only
// objects are copied; the remote's refs stay untouched.
func shareObjects(t *testing.T, local *gogit.Repository, remotePath string) {
	t.Helper()
	remote, err := gogit.PlainOpen(remotePath)
	require.NoError(t, err)
	iter, err := local.Storer.IterEncodedObjects(plumbing.AnyObject)
	require.NoError(t, err)
	defer iter.Close()
	require.NoError(t, iter.ForEach(func(obj plumbing.EncodedObject) error {
		_, serr := remote.Storer.SetEncodedObject(obj)
		return serr
	}))
}

func localCfg(t *testing.T, remotePath string) appcfg.Subtree {
	t.Helper()
	return appcfg.Subtree{
		Path:   "site",
		Dir:    filepath.Join(t.TempDir(), "work"),
		Repo:   remotePath,
		Branch: "master",
	}
}

func TestOpenInitializesMissingRepository(t *testing.T) {
	cfg := appcfg.Subtree{Path: "site", Dir: filepath.Join(t.TempDir(), "work"), Repo: "org/docs", Branch: "master"}

	r, err := Open(cfg)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.Dir, ".git"))
	require.NoError(t, err, "expected version-control metadata after Open")

	head, err := r.Head()
	require.NoError(t, err)
	assert.Empty(t, head, "fresh repository has no HEAD commit")
}

func TestOpenExistingRepository(t *testing.T) {
	cfg := appcfg.Subtree{Path: "site", Dir: t.TempDir(), Repo: "org/docs", Branch: "master"}
	_, err := gogit.PlainInit(cfg.Dir, false)
	require.NoError(t, err)

	_, err = Open(cfg)
	require.NoError(t, err)
}

func TestResetHardDiscardsLocalModifications(t *testing.T) {
	cfg := appcfg.Subtree{Path: "site", Dir: t.TempDir(), Repo: "org/docs", Branch: "master"}
	r, err := Open(cfg)
	require.NoError(t, err)

	path := filepath.Join(cfg.Dir, "site", "index.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	require.NoError(t, r.StageSubtree())
	_, err = r.Commit("initial\n", "Test", "test@example.com", false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("dirty"), 0o600))
	require.NoError(t, r.ResetHard())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))
}

func TestResetHardNoopWithoutCommits(t *testing.T) {
	cfg := appcfg.Subtree{Path: "site", Dir: t.TempDir(), Repo: "org/docs", Branch: "master"}
	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ResetHard())
}

func TestStageSubtreeLeavesRestOfTreeUnstaged(t *testing.T) {
	cfg := appcfg.Subtree{Path: "site", Dir: t.TempDir(), Repo: "org/docs", Branch: "master"}
	r, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Dir, "site"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "site", "index.html"), []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "notes.txt"), []byte("scratch"), 0o600))

	require.NoError(t, r.StageSubtree())
	hash, err := r.Commit("site only\n", "Test", "test@example.com", false)
	require.NoError(t, err)

	commit, err := r.repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	_, err = tree.File("site/index.html")
	assert.NoError(t, err, "subtree file must be committed")
	_, err = tree.File("notes.txt")
	assert.Error(t, err, "file outside the subtree must not be committed")
}

func TestCommitEmptyTree(t *testing.T) {
	cfg := appcfg.Subtree{Path: "site", Dir: t.TempDir(), Repo: "org/docs", Branch: "master"}
	r, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Dir, "site"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "site", "index.html"), []byte("hello"), 0o600))
	require.NoError(t, r.StageSubtree())
	_, err = r.Commit("initial\n", "Test", "test@example.com", false)
	require.NoError(t, err)

	_, err = r.Commit("noop\n", "Test", "test@example.com", false)
	assert.ErrorIs(t, err, ErrNothingToCommit)

	hash, err := r.Commit("allowed noop\n", "Test", "test@example.com", true)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestForcePullSynchronizesWithRemote(t *testing.T) {
	remotePath, remoteHead := seedRemote(t, map[string]string{
		"site/index.html": "published",
		"README.md":       "readme",
	})
	cfg := localCfg(t, remotePath)

	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ForcePull(false))

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, remoteHead.String(), head)

	content, err := os.ReadFile(filepath.Join(cfg.Dir, "site", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "published", string(content))
}

// TestSyncIsIdempotent: reset+pull twice yields the same state as once.
func TestSyncIsIdempotent(t *testing.T) {
	remotePath, remoteHead := seedRemote(t, map[string]string{"site/index.html": "published"})
	cfg := localCfg(t, remotePath)

	r, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, r.ResetHard())
	require.NoError(t, r.ForcePull(false))
	first, err := r.Head()
	require.NoError(t, err)

	// Dirty the tree, then sync again.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "site", "index.html"), []byte("dirty"), 0o600))
	require.NoError(t, r.ResetHard())
	require.NoError(t, r.ForcePull(false))
	second, err := r.Head()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, remoteHead.String(), second)
	content, err := os.ReadFile(filepath.Join(cfg.Dir, "site", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "published", string(content))
}

func TestForcePullSparseCheckout(t *testing.T) {
	remotePath, _ := seedRemote(t, map[string]string{
		"site/index.html": "published",
		"README.md":       "readme",
	})
	cfg := localCfg(t, remotePath)

	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ForcePull(true))

	_, err = os.Stat(filepath.Join(cfg.Dir, "site", "index.html"))
	assert.NoError(t, err, "subtree must be materialized")
	_, err = os.Stat(filepath.Join(cfg.Dir, "README.md"))
	assert.True(t, os.IsNotExist(err), "paths outside the subtree must not be materialized")
}

func TestForcePullEmptyRemoteIsNoop(t *testing.T) {
	useInProcessTransport(t)
	remotePath := filepath.Join(t.TempDir(), "remote.git")
	_, err := gogit.PlainInit(remotePath, true)
	require.NoError(t, err)

	cfg := localCfg(t, remotePath)
	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ForcePull(false))

	head, err := r.Head()
	require.NoError(t, err)
	assert.Empty(t, head)
}

func TestPushUpdatesRemoteBranch(t *testing.T) {
	remotePath, _ := seedRemote(t, map[string]string{"site/index.html": "v1"})
	cfg := localCfg(t, remotePath)

	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ForcePull(false))

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "site", "index.html"), []byte("v2"), 0o600))
	require.NoError(t, r.StageSubtree())
	hash, err := r.Commit("update site\n\nAutomatic update", "CI", "ci@example.com", false)
	require.NoError(t, err)

	require.NoError(t, r.Push(PushMode{}, ""))

	remote, err := gogit.PlainOpen(remotePath)
	require.NoError(t, err)
	ref, err := remote.Reference(plumbing.NewBranchReferenceName("master"), true)
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash().String())
}

// TestPullRebaseReplaysLocalCommit: when the remote moves underneath a local
// snapshot commit, the snapshot is replayed on top of the new remote head.
func TestPullRebaseReplaysLocalCommit(t *testing.T) {
	remotePath, _ := seedRemote(t, map[string]string{
		"site/index.html": "v1",
		"other.txt":       "one",
	})
	cfg := localCfg(t, remotePath)

	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ForcePull(false))

	// Local snapshot commit.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "site", "index.html"), []byte("v2"), 0o600))
	require.NoError(t, r.StageSubtree())
	_, err = r.Commit("update site\n\nAutomatic update", "CI", "ci@example.com", false)
	require.NoError(t, err)

	// Remote advances concurrently.
	newRemoteHead := pushCommit(t, remotePath, map[string]string{"other.txt": "two"}, "concurrent change\n")

	shareObjects(t, r.repo, remotePath)
	require.NoError(t, r.PullRebase())

	headRef, err := r.repo.Head()
	require.NoError(t, err)
	head, err := r.repo.CommitObject(headRef.Hash())
	require.NoError(t, err)

	assert.Equal(t, "update site\n\nAutomatic update", head.Message)
	require.Len(t, head.ParentHashes, 1)
	assert.Equal(t, newRemoteHead, head.ParentHashes[0])

	// Remote changes outside the subtree survive the replay.
	tree, err := head.Tree()
	require.NoError(t, err)
	other, err := tree.File("other.txt")
	require.NoError(t, err)
	otherContent, err := other.Contents()
	require.NoError(t, err)
	assert.Equal(t, "two", otherContent)

	// The replayed snapshot keeps the local change; the push now fast-forwards.
	content, err := os.ReadFile(filepath.Join(cfg.Dir, "site", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))
	require.NoError(t, r.Push(PushMode{}, ""))
}

// TestPullRebaseNoopWhenUpToDate: an unchanged remote leaves the local tip alone.
func TestPullRebaseNoopWhenUpToDate(t *testing.T) {
	remotePath, _ := seedRemote(t, map[string]string{"site/index.html": "v1"})
	cfg := localCfg(t, remotePath)

	r, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, r.ForcePull(false))

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Dir, "site", "index.html"), []byte("v2"), 0o600))
	require.NoError(t, r.StageSubtree())
	hash, err := r.Commit("update site\n", "CI", "ci@example.com", false)
	require.NoError(t, err)

	require.NoError(t, r.PullRebase())
	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, hash, head)
}
