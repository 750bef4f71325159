package runinfo

import "testing"

func TestFromEnvGitHubActions(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_SERVER_URL", "https://github.com/")
	t.Setenv("GITHUB_REPOSITORY", "tum/exercise-01")
	t.Setenv("GITHUB_HEAD_REF", "refs/heads/submission")
	t.Setenv("GITHUB_REF", "refs/pull/108/merge")
	t.Setenv("GITHUB_SHA", "deadbeef")
	t.Setenv("GITHUB_RUN_ID", "123456")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if !info.CI || info.Provider != "github_actions" {
		t.Fatalf("ci=%v provider=%q", info.CI, info.Provider)
	}
	if info.Branch != "submission" {
		t.Fatalf("branch=%q", info.Branch)
	}
	if info.PullRequest != "108" {
		t.Fatalf("pull_request=%q", info.PullRequest)
	}
	if info.BuildURL != "https://github.com/tum/exercise-01/actions/runs/123456" {
		t.Fatalf("build_url=%q", info.BuildURL)
	}
}

func TestFromEnvBamboo(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("bamboo_buildKey", "EX01-STUDENT1-JOB1")
	t.Setenv("bamboo_buildNumber", "7")
	t.Setenv("bamboo_planRepository_revision", "cafe01")

	info := FromEnv()
	if info == nil || info.Provider != "bamboo" || info.RunID != "7" || info.Commit != "cafe01" {
		t.Fatalf("bamboo info=%+v", info)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("STRUCTEST_CI_PROVIDER", "Manual")
	t.Setenv("STRUCTEST_CI_BRANCH", "origin/nightly")
	t.Setenv("STRUCTEST_CI_COMMIT", " abc123 ")
	t.Setenv("STRUCTEST_CI_RUN_ID", "run-77")
	t.Setenv("STRUCTEST_EXERCISE", "ex01")
	t.Setenv("STRUCTEST_PARTICIPATION", "student42")

	info := FromEnv()
	if info == nil {
		t.Fatalf("expected run info")
	}
	if !info.CI {
		t.Fatalf("expected ci=true when overrides are set")
	}
	if info.Provider != "manual" || info.Branch != "nightly" || info.Commit != "abc123" {
		t.Fatalf("info=%+v", *info)
	}
	if info.Exercise != "ex01" || info.Participation != "student42" {
		t.Fatalf("grading metadata=%+v", *info)
	}
}

func TestFromEnvExplicitlyNotCI(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("STRUCTEST_CI", "false")
	t.Setenv("STRUCTEST_CI_RUN_ID", "local-1")

	info := FromEnv()
	if info == nil || info.CI || info.Provider != "" {
		t.Fatalf("info=%+v", info)
	}
}

func TestFromEnvEmpty(t *testing.T) {
	clearKnownEnv(t)
	if info := FromEnv(); info != nil {
		t.Fatalf("expected nil run info, got %+v", *info)
	}
}

func clearKnownEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CI",
		"CI_PROJECT_PATH",
		"CI_COMMIT_REF_NAME",
		"CI_COMMIT_SHA",
		"CI_JOB_NAME",
		"CI_PIPELINE_ID",
		"CI_JOB_URL",
		"GITLAB_CI",
		"GITLAB_USER_LOGIN",
		"JENKINS_URL",
		"BUILD_REPOSITORY_NAME",
		"BUILD_URL",
		"BUILD_ID",
		"JOB_NAME",
		"BRANCH_NAME",
		"GIT_BRANCH",
		"GIT_COMMIT",
		"GITHUB_ACTIONS",
		"GITHUB_SERVER_URL",
		"GITHUB_REPOSITORY",
		"GITHUB_REF",
		"GITHUB_REF_NAME",
		"GITHUB_HEAD_REF",
		"GITHUB_SHA",
		"GITHUB_WORKFLOW",
		"GITHUB_JOB",
		"GITHUB_RUN_ID",
		"GITHUB_ACTOR",
		"bamboo_buildKey",
		"bamboo_buildNumber",
		"bamboo_buildResultsUrl",
		"bamboo_planRepository_repositoryUrl",
		"bamboo_planRepository_revision",
		"bamboo_planRepository_branchName",
		EnvPrefix + "CI",
	}
	for suffix := range overrides(&BasicInfo{}) {
		keys = append(keys, EnvPrefix+suffix)
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
