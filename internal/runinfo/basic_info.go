// Package runinfo collects CI and grading metadata from the environment so
// that run reports can be traced back to the build that produced them.
package runinfo

import (
	"os"
	"regexp"
	"strings"
)

var githubPullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// EnvPrefix prefixes the explicit overrides, e.g. STRUCTEST_CI_COMMIT.
const EnvPrefix = "STRUCTEST_"

// BasicInfo captures CI/run metadata for logs and run reports.
type BasicInfo struct {
	CI          bool   `json:"ci,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Workflow    string `json:"workflow,omitempty"`
	Job         string `json:"job,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	BuildURL    string `json:"build_url,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
	Actor       string `json:"actor,omitempty"`

	// Exercise and Participation identify the graded submission.
	Exercise      string `json:"exercise,omitempty"`
	Participation string `json:"participation,omitempty"`
}

// FromEnv builds run metadata from environment variables. Explicit
// STRUCTEST_* values take precedence over provider defaults. It returns nil
// when nothing is known.
func FromEnv() *BasicInfo {
	info := detectBase()
	applyOverrides(&info)
	normalize(&info)
	if info.IsZero() {
		return nil
	}
	return &info
}

// IsZero reports whether all fields are empty.
func (b BasicInfo) IsZero() bool {
	return b == BasicInfo{}
}

func detectBase() BasicInfo {
	info := BasicInfo{}
	switch {
	case isTruthy(env("GITHUB_ACTIONS")):
		info.CI = true
		info.Provider = "github_actions"
		info.Repository = env("GITHUB_REPOSITORY")
		info.Branch = envFirst("GITHUB_HEAD_REF", "GITHUB_REF_NAME")
		info.Commit = env("GITHUB_SHA")
		info.Workflow = env("GITHUB_WORKFLOW")
		info.Job = env("GITHUB_JOB")
		info.RunID = env("GITHUB_RUN_ID")
		info.Actor = env("GITHUB_ACTOR")
		info.PullRequest = githubPullRequestFromRef(env("GITHUB_REF"))
		if info.Repository != "" && info.RunID != "" {
			server := strings.TrimRight(envFirst("GITHUB_SERVER_URL"), "/")
			if server == "" {
				server = "https://github.com"
			}
			info.BuildURL = server + "/" + info.Repository + "/actions/runs/" + info.RunID
		}
	case isTruthy(env("GITLAB_CI")):
		info.CI = true
		info.Provider = "gitlab_ci"
	case env("bamboo_buildKey") != "":
		// Artemis build plans run on Bamboo and expose its variables in lower camel case.
		info.CI = true
		info.Provider = "bamboo"
		info.Job = env("bamboo_buildKey")
		info.RunID = env("bamboo_buildNumber")
		info.BuildURL = env("bamboo_buildResultsUrl")
		info.Repository = env("bamboo_planRepository_repositoryUrl")
		info.Commit = env("bamboo_planRepository_revision")
		info.Branch = env("bamboo_planRepository_branchName")
	case env("JENKINS_URL") != "":
		info.CI = true
		info.Provider = "jenkins"
	}
	if isTruthy(env("CI")) {
		info.CI = true
	}

	setIfEmpty(&info.Repository, envFirst("CI_PROJECT_PATH", "BUILD_REPOSITORY_NAME"))
	setIfEmpty(&info.Branch, envFirst("CI_COMMIT_REF_NAME", "BRANCH_NAME", "GIT_BRANCH"))
	setIfEmpty(&info.Commit, envFirst("CI_COMMIT_SHA", "GIT_COMMIT"))
	setIfEmpty(&info.Job, envFirst("CI_JOB_NAME", "JOB_NAME"))
	setIfEmpty(&info.RunID, envFirst("CI_PIPELINE_ID", "BUILD_ID"))
	setIfEmpty(&info.Actor, envFirst("GITLAB_USER_LOGIN"))
	setIfEmpty(&info.BuildURL, envFirst("CI_JOB_URL", "BUILD_URL"))
	return info
}

// overrides maps STRUCTEST_* suffixes to the fields they set.
func overrides(info *BasicInfo) map[string]*string {
	return map[string]*string{
		"CI_PROVIDER":     &info.Provider,
		"CI_REPOSITORY":   &info.Repository,
		"CI_BRANCH":       &info.Branch,
		"CI_COMMIT":       &info.Commit,
		"CI_WORKFLOW":     &info.Workflow,
		"CI_JOB":          &info.Job,
		"CI_RUN_ID":       &info.RunID,
		"CI_BUILD_URL":    &info.BuildURL,
		"CI_PULL_REQUEST": &info.PullRequest,
		"CI_ACTOR":        &info.Actor,
		"EXERCISE":        &info.Exercise,
		"PARTICIPATION":   &info.Participation,
	}
}

func applyOverrides(info *BasicInfo) {
	explicitCI := false
	if v, ok := lookupTrimmed(EnvPrefix + "CI"); ok && v != "" {
		info.CI = isTruthy(v)
		explicitCI = true
	}
	explicit := false
	for suffix, dst := range overrides(info) {
		if v, ok := lookupTrimmed(EnvPrefix + suffix); ok && v != "" {
			*dst = v
			explicit = true
		}
	}
	if explicit && !explicitCI && (info.Provider != "" || info.RunID != "") {
		info.CI = true
	}
}

func normalize(info *BasicInfo) {
	for _, dst := range overrides(info) {
		*dst = strings.TrimSpace(*dst)
	}
	info.Provider = strings.ToLower(info.Provider)
	info.Branch = strings.TrimPrefix(strings.TrimPrefix(info.Branch, "refs/heads/"), "origin/")
	if info.CI && info.Provider == "" {
		info.Provider = "generic"
	}
}

func githubPullRequestFromRef(ref string) string {
	if m := githubPullRefPattern.FindStringSubmatch(strings.TrimSpace(ref)); len(m) > 1 {
		return m[1]
	}
	return ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value := env(key); value != "" {
			return value
		}
	}
	return ""
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
