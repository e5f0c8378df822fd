// Package checkpoint implements the git-backed checkpoint manager (C4):
// snapshot and restore of tool side effects under a private ref
// namespace, never touching the user's own branch or HEAD.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const refPrefix = "refs/rustant/checkpoints/"

var ErrNoCheckpoints = errors.New("checkpoint: no checkpoints recorded")

// Checkpoint describes one recorded snapshot.
type Checkpoint struct {
	OID          string
	Label        string
	Timestamp    time.Time
	ChangedFiles []string
}

// Manager snapshots and restores a workspace's working tree using a git
// repository as the backing store. It never moves HEAD and never writes
// to any ref outside refPrefix.
type Manager struct {
	repo      *git.Repository
	root      string
	checkpoints []Checkpoint
	Now       func() time.Time
}

// Open opens (or initializes, if absent) a git repository rooted at dir
// and returns a Manager over it.
func Open(dir string) (*Manager, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open repository: %w", err)
	}
	m := &Manager{repo: repo, root: dir, Now: time.Now}
	m.loadExisting()
	return m, nil
}

func (m *Manager) loadExisting() {
	refs, err := m.repo.References()
	if err != nil {
		return
	}
	var found []Checkpoint
	_ = refs.ForEach(func(r *plumbing.Reference) error {
		name := r.Name().String()
		if !strings.HasPrefix(name, refPrefix) {
			return nil
		}
		commit, err := m.repo.CommitObject(r.Hash())
		if err != nil {
			return nil
		}
		found = append(found, Checkpoint{
			OID:       r.Hash().String(),
			Label:     commit.Message,
			Timestamp: commit.Author.When,
		})
		return nil
	})
	sort.Slice(found, func(i, j int) bool { return found[i].Timestamp.Before(found[j].Timestamp) })
	m.checkpoints = found
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// CreateCheckpoint stages the full working tree, writes a commit under
// refs/rustant/checkpoints/<N>, and never moves HEAD. Creation is
// idempotent in the sense that an unchanged tree still records a commit
// (per spec, suppression is a caller's choice, not this manager's).
func (m *Manager) CreateCheckpoint(label string) (Checkpoint, error) {
	treeHash, changed, err := m.writeTreeFromWorkdir()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: build tree: %w", err)
	}

	var parents []plumbing.Hash
	if len(m.checkpoints) > 0 {
		last := m.checkpoints[len(m.checkpoints)-1]
		parents = []plumbing.Hash{plumbing.NewHash(last.OID)}
	}

	now := m.now()
	sig := object.Signature{Name: "rustant", Email: "rustant@localhost", When: now}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      label,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := m.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: encode commit: %w", err)
	}
	commitHash, err := m.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: store commit: %w", err)
	}

	refName := plumbing.ReferenceName(fmt.Sprintf("%s%d", refPrefix, len(m.checkpoints)))
	ref := plumbing.NewHashReference(refName, commitHash)
	if err := m.repo.Storer.SetReference(ref); err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: set ref: %w", err)
	}

	cp := Checkpoint{OID: commitHash.String(), Label: label, Timestamp: now, ChangedFiles: changed}
	m.checkpoints = append(m.checkpoints, cp)
	return cp, nil
}

// RestoreCheckpoint resets the working tree to the stored commit's tree
// at the given index (0-based, oldest first). HEAD is untouched.
func (m *Manager) RestoreCheckpoint(index int) error {
	if index < 0 || index >= len(m.checkpoints) {
		return fmt.Errorf("checkpoint: index %d out of range (have %d)", index, len(m.checkpoints))
	}
	cp := m.checkpoints[index]
	commit, err := m.repo.CommitObject(plumbing.NewHash(cp.OID))
	if err != nil {
		return fmt.Errorf("checkpoint: load commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("checkpoint: load tree: %w", err)
	}
	return m.writeWorkdirFromTree(tree)
}

// Undo restores the most recently created checkpoint.
func (m *Manager) Undo() error {
	if len(m.checkpoints) == 0 {
		return ErrNoCheckpoints
	}
	return m.RestoreCheckpoint(len(m.checkpoints) - 1)
}

// DiffFromLast returns a unified-diff-shaped text comparing the working
// tree against the latest checkpoint (or an empty baseline if none
// exist). This is a line-level summary, not a full patch renderer.
func (m *Manager) DiffFromLast() (string, error) {
	var baseline *object.Tree
	if len(m.checkpoints) > 0 {
		last := m.checkpoints[len(m.checkpoints)-1]
		commit, err := m.repo.CommitObject(plumbing.NewHash(last.OID))
		if err != nil {
			return "", err
		}
		baseline, err = commit.Tree()
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(path, filepath.Join(m.root, ".git")) {
			return nil
		}
		rel, _ := filepath.Rel(m.root, path)
		rel = filepath.ToSlash(rel)

		var before string
		if baseline != nil {
			if f, err := baseline.File(rel); err == nil {
				before, _ = f.Contents()
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if string(data) != before {
			fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", rel, rel)
		}
		return nil
	})
	return b.String(), err
}

// Checkpoints returns a snapshot of the recorded checkpoint list,
// oldest first.
func (m *Manager) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(m.checkpoints))
	copy(out, m.checkpoints)
	return out
}

// writeTreeFromWorkdir walks the working directory (skipping .git),
// writes a blob per file and a tree object per directory, and returns
// the root tree hash plus the list of changed files relative to root.
func (m *Manager) writeTreeFromWorkdir() (plumbing.Hash, []string, error) {
	var changed []string
	hash, err := m.writeDir(m.root, &changed)
	return hash, changed, err
}

func (m *Manager) writeDir(dir string, changed *[]string) (plumbing.Hash, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	tree := &object.Tree{}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		rel, _ := filepath.Rel(m.root, full)
		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			hash, err := m.writeDir(full, changed)
			if err != nil {
				return plumbing.ZeroHash, err
			}
			tree.Entries = append(tree.Entries, object.TreeEntry{
				Name: entry.Name(), Mode: filemode.Dir, Hash: hash,
			})
			continue
		}

		f, err := os.Open(full)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		obj := m.repo.Storer.NewEncodedObject()
		obj.SetType(plumbing.BlobObject)
		w, err := obj.Writer()
		if err != nil {
			f.Close()
			return plumbing.ZeroHash, err
		}
		_, err = io.Copy(w, f)
		f.Close()
		w.Close()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		blobHash, err := m.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		*changed = append(*changed, rel)
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: entry.Name(), Mode: filemode.Regular, Hash: blobHash,
		})
	}

	sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Name < tree.Entries[j].Name })

	obj := m.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return m.repo.Storer.SetEncodedObject(obj)
}

// writeWorkdirFromTree writes every blob in tree to the working
// directory, recreating directories as needed.
func (m *Manager) writeWorkdirFromTree(tree *object.Tree) error {
	return tree.Files().ForEach(func(f *object.File) error {
		dest := filepath.Join(m.root, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		r, err := f.Reader()
		if err != nil {
			return err
		}
		defer r.Close()
		out, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, r)
		return err
	})
}
