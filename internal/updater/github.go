package updater

import (
	"context"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
)

func executablePath() (string, error) {
	return selfupdate.ExecutablePath()
}

// GitHubSource finds releases of a GitHub repository.
type GitHubSource struct {
	updater *selfupdate.Updater
	repo    selfupdate.Repository

	// last detected release, needed by Install
	release *selfupdate.Release
}

// NewGitHubSource creates a release source for slug ("owner/name").
func NewGitHubSource(slug string, prerelease bool) (*GitHubSource, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create GitHub source: %w", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("create updater: %w", err)
	}
	return &GitHubSource{updater: up, repo: selfupdate.ParseSlug(slug)}, nil
}

// Latest implements Source. Development builds are always outdated.
func (g *GitHubSource) Latest(ctx context.Context, current string) (Release, error) {
	rel, found, err := g.updater.DetectLatest(ctx, g.repo)
	if err != nil {
		return Release{}, fmt.Errorf("detect latest release: %w", err)
	}
	if !found {
		return Release{}, ErrNoRelease
	}
	g.release = rel
	return Release{
		Version:     rel.Version(),
		Notes:       rel.ReleaseNotes,
		URL:         rel.URL,
		PublishedAt: rel.PublishedAt,
		AssetSize:   rel.AssetByteSize,
		Newer:       current == "dev" || rel.GreaterThan(current),
	}, nil
}

// Install implements Source.
func (g *GitHubSource) Install(ctx context.Context, rel Release, exe string) error {
	if g.release == nil || g.release.Version() != rel.Version {
		return fmt.Errorf("release %s was not detected by this source", rel.Version)
	}
	return g.updater.UpdateTo(ctx, g.release, exe)
}
