package publish

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/eringen/mdblog/content"
)

// LocalPublisher writes posts through the repository write path.
type LocalPublisher struct {
	repo *content.Repository
	// GitDir, when set, is a git work tree the new file is added and
	// committed in after it is written.
	GitDir string
	// OnPublish runs after a successful write, e.g. to drop cached lists.
	OnPublish func()
	Logger    *slog.Logger
}

// NewLocalPublisher returns a LocalPublisher over repo.
func NewLocalPublisher(repo *content.Repository) *LocalPublisher {
	return &LocalPublisher{repo: repo}
}

// Publish implements Publisher. A failed commit fails the publish even
// though the file has already been written.
func (p *LocalPublisher) Publish(ctx context.Context, in content.NewPost) (content.Draft, error) {
	d, err := p.repo.CreatePost(ctx, in)
	if err != nil {
		return content.Draft{}, err
	}
	if p.OnPublish != nil {
		p.OnPublish()
	}
	if p.GitDir != "" {
		if err := commitFile(ctx, p.GitDir, d.Filename); err != nil {
			return content.Draft{}, err
		}
		if p.Logger != nil {
			p.Logger.Info("post committed", "file", d.Filename)
		}
	}
	return d, nil
}

func commitFile(ctx context.Context, dir, file string) error {
	if err := git(ctx, dir, "add", "--", file); err != nil {
		return err
	}
	return git(ctx, dir, "commit", "-m", "Add new post: "+file, "--", file)
}

func git(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("publish: git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return nil
}
