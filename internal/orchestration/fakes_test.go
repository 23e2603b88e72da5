package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielolaszy/covalynce/internal/integrations"
	"github.com/danielolaszy/covalynce/pkg/models"
)

var errRemote = errors.New("remote failure")

type fakeCreds struct {
	token   string
	baseURL string
	err     error
}

func (f *fakeCreds) Resolve(ctx context.Context, userID string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	if f.token == "" || f.baseURL == "" {
		return "", "", fmt.Errorf("user %s: %w", userID, integrations.ErrNotConfigured)
	}
	return f.token, f.baseURL, nil
}

func configured() *fakeCreds {
	return &fakeCreds{token: "jira-token", baseURL: "https://example.atlassian.net"}
}

// fakeTracker is an in-memory issue tracker that counts calls.
type fakeTracker struct {
	issues         map[string]models.RemoteIssue
	issueErrs      map[string]error
	transitions    []models.Transition
	transitionsErr error
	doErr          error
	commentErr     error

	getIssueCalls  map[string]int
	transitionsHit int
	executed       []string
	comments       []string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		issues:        map[string]models.RemoteIssue{},
		issueErrs:     map[string]error{},
		getIssueCalls: map[string]int{},
	}
}

func (f *fakeTracker) GetIssue(ctx context.Context, key string, fields ...string) (models.RemoteIssue, error) {
	f.getIssueCalls[key]++
	if err := f.issueErrs[key]; err != nil {
		return models.RemoteIssue{}, err
	}
	issue, ok := f.issues[key]
	if !ok {
		return models.RemoteIssue{}, fmt.Errorf("issue %s: %w", key, errRemote)
	}
	return issue, nil
}

func (f *fakeTracker) GetTransitions(ctx context.Context, key string) ([]models.Transition, error) {
	f.transitionsHit++
	if f.transitionsErr != nil {
		return nil, f.transitionsErr
	}
	return f.transitions, nil
}

func (f *fakeTracker) DoTransition(ctx context.Context, key string, transitionID string) error {
	if f.doErr != nil {
		return f.doErr
	}
	f.executed = append(f.executed, key+":"+transitionID)
	return nil
}

func (f *fakeTracker) AddComment(ctx context.Context, key string, body string) error {
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, key+":"+body)
	return nil
}

func (f *fakeTracker) totalGetIssueCalls() int {
	total := 0
	for _, n := range f.getIssueCalls {
		total += n
	}
	return total
}

// factoryFor returns a TrackerFactory handing out tracker and counting opens.
func factoryFor(tracker Tracker, opened *int) TrackerFactory {
	return func(baseURL, token string) (Tracker, error) {
		if opened != nil {
			*opened++
		}
		return tracker, nil
	}
}

type setterCall struct {
	ticketID string
	status   string
	userID   string
	comment  string
}

// fakeSetter records status updates and answers from results.
type fakeSetter struct {
	results map[string]UpdateResult
	calls   []setterCall
	panics  bool
}

func (f *fakeSetter) UpdateStatus(ctx context.Context, ticketID, desiredStatus, userID, comment string) UpdateResult {
	if f.panics {
		panic("boom")
	}
	f.calls = append(f.calls, setterCall{ticketID: ticketID, status: desiredStatus, userID: userID, comment: comment})
	if res, ok := f.results[ticketID]; ok {
		return res
	}
	return UpdateResult{Updated: true}
}

// fakeChecker answers completion from a per-ticket script of answers.
type fakeChecker struct {
	answers map[string][]bool
	calls   map[string]int
	panicOn string
}

func (f *fakeChecker) IsStoryComplete(ctx context.Context, storyKey, userID string) bool {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	if storyKey == f.panicOn {
		panic("checker exploded")
	}
	n := f.calls[storyKey]
	f.calls[storyKey]++
	script := f.answers[storyKey]
	if n < len(script) {
		return script[n]
	}
	if len(script) > 0 {
		return script[len(script)-1]
	}
	return false
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) FetchToken(ctx context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.token == "" {
		return "", fmt.Errorf("github token: %w", integrations.ErrNotConfigured)
	}
	return f.token, nil
}

type fakeSource struct {
	prs       []models.PullRequestRecord
	err       error
	lastLimit int
}

func (f *fakeSource) RecentMergedPullRequests(ctx context.Context, limit int) ([]models.PullRequestRecord, error) {
	f.lastLimit = limit
	return f.prs, f.err
}

func sourceFactory(source *fakeSource) PullRequestSourceFactory {
	return func(ctx context.Context, token string) (PullRequestSource, error) {
		return source, nil
	}
}
