// Package tracker closes a release's issues in the issue tracker once the
// release is done. This is best-effort telemetry for the workflow: callers
// log failures and move on.
package tracker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"shipit.dev/shipit/internal/version"
)

// Client closes release issues
type Client interface {
	CloseReleaseIssues(ctx context.Context, v version.Version) (int, error)
}

// GitHubClient implements Client against the GitHub Issues API. Issues are
// matched by the release label, e.g. "release-1.4.0".
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubClient creates a GitHubClient for owner/repo. It returns
// (nil, nil) when no token is configured: an absent tracker is not an error.
func NewGitHubClient(ctx context.Context, owner, repo string) (*GitHubClient, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GH_TOKEN")
	}
	if token == "" {
		return nil, nil
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("issue tracker requires owner and repo")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	return &GitHubClient{client: client, owner: owner, repo: repo}, nil
}

// CloseReleaseIssues closes every open issue carrying the release label and
// returns how many were closed
func (c *GitHubClient) CloseReleaseIssues(ctx context.Context, v version.Version) (int, error) {
	label := "release-" + v.String()
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{label},
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var numbers []int
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return 0, fmt.Errorf("failed to list issues labeled %s: %w", label, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			numbers = append(numbers, issue.GetNumber())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	closed := 0
	var failures []string
	comment := fmt.Sprintf("Closed by release %s.", v.TagName())
	for _, number := range numbers {
		_, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
			Body: github.String(comment),
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("#%d: %v", number, err))
			continue
		}
		_, _, err = c.client.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
			State: github.String("closed"),
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("#%d: %v", number, err))
			continue
		}
		closed++
	}

	if len(failures) > 0 {
		return closed, fmt.Errorf("failed to close some issues: %s", strings.Join(failures, "; "))
	}
	return closed, nil
}
