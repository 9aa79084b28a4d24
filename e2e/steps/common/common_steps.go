package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is what generic request and assertion steps need.
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	DELETE(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers request and response assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &commonSteps{tc: tc}
	ctx.Step(`^I GET "([^"]*)"$`, s.get)
	ctx.Step(`^I DELETE "([^"]*)"$`, s.delete)
	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should have (\d+) items?$`, s.fieldShouldHaveItems)
	ctx.Step(`^the response should not contain "([^"]*)"$`, s.bodyShouldNotContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) get(_ context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) delete(_ context.Context, path string) error {
	return s.tc.DELETE(path)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldHaveItems(_ context.Context, field string, want int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("%s is not a list", field)
	}
	if len(items) != want {
		return fmt.Errorf("expected %s to have %d items, got %d", field, want, len(items))
	}
	return nil
}

func (s *commonSteps) bodyShouldNotContain(_ context.Context, text string) error {
	if strings.Contains(string(s.tc.GetLastResponseBody()), text) {
		return fmt.Errorf("response unexpectedly contains %q", text)
	}
	return nil
}
