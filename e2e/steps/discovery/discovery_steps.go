package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is what discovery steps need from the scenario.
type TestContext interface {
	SetUpstream(path string, status int, body string)
	LastUpstreamToken() string
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
}

var kindPaths = map[string]string{
	"farmers":   "/api/farmers/public",
	"suppliers": "/api/suppliers/public",
	"vets":      "/api/vets/public",
	"events":    "/api/training-events/public",
	"listings":  "/api/listings/public",
}

// RegisterSteps registers marketplace and map steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &discoverySteps{tc: tc}
	ctx.Step(`^the marketplace lists these (\w+):$`, s.marketplaceLists)
	ctx.Step(`^the marketplace fails (\w+) with status (\d+)$`, s.marketplaceFails)
	ctx.Step(`^I open a session with token "([^"]*)" as "([^"]*)"$`, s.openSession)
	ctx.Step(`^the marketplace should have received token "([^"]*)"$`, s.upstreamTokenShouldBe)
	ctx.Step(`^the records should be "([^"]*)"$`, s.recordsShouldBe)
	ctx.Step(`^the map zoom should be (\d+)$`, s.zoomShouldBe)
}

type discoverySteps struct {
	tc TestContext
}

func kindPath(kind string) (string, error) {
	path, ok := kindPaths[kind]
	if !ok {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	return path, nil
}

// marketplaceLists turns a table with columns id, name, verified, lat, lng
// and any extra attributes into the upstream envelope for kind.
func (s *discoverySteps) marketplaceLists(_ context.Context, kind string, table *godog.Table) error {
	path, err := kindPath(kind)
	if err != nil {
		return err
	}
	if len(table.Rows) == 0 {
		return fmt.Errorf("table needs a header row")
	}
	header := table.Rows[0].Cells
	data := make([]map[string]any, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		rec := map[string]any{}
		for i, cell := range row.Cells {
			col, val := header[i].Value, cell.Value
			switch {
			case val == "":
			case col == "verified":
				rec["isVerified"] = val == "true"
			case col == "lat":
				rec["latitude"] = val
			case col == "lng":
				rec["longitude"] = val
			case strings.Contains(val, ","):
				rec[col] = strings.Split(val, ",")
			default:
				rec[col] = val
			}
		}
		data = append(data, rec)
	}
	body, err := json.Marshal(map[string]any{"success": true, "data": data})
	if err != nil {
		return err
	}
	s.tc.SetUpstream(path, http.StatusOK, string(body))
	return nil
}

func (s *discoverySteps) marketplaceFails(_ context.Context, kind string, status int) error {
	path, err := kindPath(kind)
	if err != nil {
		return err
	}
	s.tc.SetUpstream(path, status, `{"success":false,"message":"upstream exploded"}`)
	return nil
}

func (s *discoverySteps) openSession(_ context.Context, token, role string) error {
	return s.tc.POST("/api/session", map[string]any{
		"token": token,
		"user":  map[string]string{"id": "u-" + role, "role": role},
	})
}

func (s *discoverySteps) upstreamTokenShouldBe(_ context.Context, want string) error {
	if got := s.tc.LastUpstreamToken(); got != want {
		return fmt.Errorf("expected upstream token %q, got %q", want, got)
	}
	return nil
}

func (s *discoverySteps) recordsShouldBe(_ context.Context, want string) error {
	v, err := s.tc.GetResponseField("records")
	if err != nil {
		return err
	}
	items, _ := v.([]any)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		rec, _ := item.(map[string]any)
		ids = append(ids, fmt.Sprint(rec["id"]))
	}
	if got := strings.Join(ids, ","); got != want {
		return fmt.Errorf("expected records %q, got %q", want, got)
	}
	return nil
}

func (s *discoverySteps) zoomShouldBe(_ context.Context, want int) error {
	v, err := s.tc.GetResponseField("viewport.zoom")
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != strconv.Itoa(want) {
		return fmt.Errorf("expected zoom %d, got %s", want, got)
	}
	return nil
}
