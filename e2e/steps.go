package e2e

import (
	"github.com/cucumber/godog"

	"agrimarket/e2e/steps/common"
	"agrimarket/e2e/steps/discovery"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	discovery.RegisterSteps(ctx, tc)
}
