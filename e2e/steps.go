//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"roster/internal/users/models"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the roster service is running$`, tc.serviceIsRunning)

	// Source bucket steps
	ctx.Step(`^a source file for user "([^"]*)" with header "([^"]*)" and values "([^"]*)"$`, tc.seedUserFile)
	ctx.Step(`^a portrait for user "([^"]*)"$`, tc.seedPortrait)

	// Request steps
	ctx.Step(`^I trigger a pass$`, tc.triggerPass)
	ctx.Step(`^I trigger a pass without the admin token$`, tc.triggerPassWithoutToken)
	ctx.Step(`^I GET "([^"]*)"$`, tc.get)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the users response should include "([^"]*)" with img_path "([^"]*)"$`, tc.usersShouldInclude)
	ctx.Step(`^the users response should not include "([^"]*)"$`, tc.usersShouldNotInclude)
	ctx.Step(`^the published snapshot should contain a row for "([^"]*)"$`, tc.snapshotShouldContain)
	ctx.Step(`^the published snapshot should not contain "([^"]*)"$`, tc.snapshotShouldNotContain)
}

func (tc *TestContext) serviceIsRunning(ctx context.Context) error {
	if err := tc.Do("GET", "/health/live", nil); err != nil {
		return err
	}
	return tc.responseStatusShouldBe(ctx, 200)
}

func (tc *TestContext) seedUserFile(ctx context.Context, alias, header, values string) error {
	body := strings.ReplaceAll(header, "|", ",") + "\n" + strings.ReplaceAll(values, "|", ",") + "\n"
	return tc.Seed(ctx, tc.UserID(alias)+".csv", []byte(body))
}

func (tc *TestContext) seedPortrait(ctx context.Context, alias string) error {
	return tc.Seed(ctx, tc.UserID(alias)+".png", []byte("\x89PNG\r\n\x1a\n"))
}

func (tc *TestContext) triggerPass(ctx context.Context) error {
	var headers map[string]string
	if tc.AdminToken != "" {
		headers = map[string]string{"X-Admin-Token": tc.AdminToken}
	}
	return tc.Do("POST", "/data", headers)
}

func (tc *TestContext) triggerPassWithoutToken(ctx context.Context) error {
	if tc.AdminToken == "" {
		return godog.ErrSkip
	}
	return tc.Do("POST", "/data", nil)
}

func (tc *TestContext) get(ctx context.Context, path string) error {
	return tc.Do("GET", path, nil)
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d", expectedStatus, actualStatus)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain: %s\nResponse: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(value) != expected {
		return fmt.Errorf("expected %s=%s but got %v", field, expected, value)
	}
	return nil
}

func (tc *TestContext) users() (map[string]models.UserView, error) {
	var users map[string]models.UserView
	if err := json.Unmarshal(tc.LastResponseBody, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (tc *TestContext) usersShouldInclude(ctx context.Context, alias, imgPath string) error {
	users, err := tc.users()
	if err != nil {
		return err
	}
	id := tc.UserID(alias)
	u, ok := users[id]
	if !ok {
		return fmt.Errorf("user %s missing from response", id)
	}
	want := strings.ReplaceAll(imgPath, "<id>", id)
	if u.ImagePath != want {
		return fmt.Errorf("expected img_path %q for %s but got %q", want, id, u.ImagePath)
	}
	return nil
}

func (tc *TestContext) usersShouldNotInclude(ctx context.Context, alias string) error {
	users, err := tc.users()
	if err != nil {
		return err
	}
	if _, ok := users[tc.UserID(alias)]; ok {
		return fmt.Errorf("user %s should not be in the response", tc.UserID(alias))
	}
	return nil
}

func (tc *TestContext) snapshotShouldContain(ctx context.Context, alias string) error {
	snap, err := tc.Snapshot(ctx)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(snap, "user_id,first_name,last_name,birthts,img_path\n") {
		return fmt.Errorf("snapshot header mismatch: %q", firstLine(snap))
	}
	if !strings.Contains(snap, "\n"+tc.UserID(alias)+",") {
		return fmt.Errorf("snapshot has no row for %s", tc.UserID(alias))
	}
	return nil
}

func (tc *TestContext) snapshotShouldNotContain(ctx context.Context, alias string) error {
	snap, err := tc.Snapshot(ctx)
	if err != nil {
		return err
	}
	if strings.Contains(snap, "\n"+tc.UserID(alias)+",") {
		return fmt.Errorf("snapshot unexpectedly has a row for %s", tc.UserID(alias))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
