package gateway

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/models"
)

var notFoundPage = template.Must(template.New("notFound").Parse(`<!DOCTYPE html>
<html>
<head><title>Not Found</title></head>
<body><h1>404</h1><p>The page you are looking for does not exist.</p></body>
</html>
`))

var blockedPage = template.Must(template.New("blocked").Parse(`<!DOCTYPE html>
<html>
<head><title>Access Denied</title></head>
<body><h1>Access denied</h1><p>{{.Message}}</p></body>
</html>
`))

var approvedPage = template.Must(template.New("approved").Parse(`<!DOCTYPE html>
<html>
<head><title>Approved</title></head>
<body><h1>Request approved</h1><p>The client may now retry their request.</p></body>
</html>
`))

// challengePage embeds the machine-readable payload the challenge UI
// renders from; json.Marshal HTML-escapes angle brackets so the blob is
// safe inside the script tag.
var challengePage = template.Must(template.New("challenge").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<div id="gw-challenge"></div>
<script id="gw-challenge-data" type="application/json">{{.Payload}}</script>
</body>
</html>
`))

// stepView is one pending or solved step on the challenge page.
type stepView struct {
	ChallengeTypeID    string                 `json:"challengeTypeId"`
	State              string                 `json:"state"`
	DisplayModel       map[string]interface{} `json:"displayModel,omitempty"`
	ConditionSummaries []string               `json:"conditionSummaries,omitempty"`
}

// unmetStepView is a surfaced step whose conditions do not hold.
type unmetStepView struct {
	ChallengeTypeID    string   `json:"challengeTypeId"`
	ConditionSummaries []string `json:"conditionSummaries,omitempty"`
}

type challengePagePayload struct {
	Title                    string          `json:"title"`
	Description              string          `json:"description"`
	StepsWithUnmetConditions []unmetStepView `json:"stepsWithUnmetConditions"`
	Steps                    []stepView      `json:"steps"`
}

func (g *Gateway) renderChallengePage(c *gin.Context, route *models.ProxyRoute, outcome challenge.Outcome) {
	payload := challengePagePayload{
		Title:                    route.Title,
		Description:              route.Description,
		StepsWithUnmetConditions: []unmetStepView{},
		Steps:                    []stepView{},
	}

	for _, step := range outcome.Steps {
		if !step.Visible {
			continue
		}
		if step.State == challenge.StateConditionsInactive {
			payload.StepsWithUnmetConditions = append(payload.StepsWithUnmetConditions, unmetStepView{
				ChallengeTypeID:    step.Step.ChallengeTypeID,
				ConditionSummaries: step.ConditionSummaries,
			})
			continue
		}
		payload.Steps = append(payload.Steps, stepView{
			ChallengeTypeID:    step.Step.ChallengeTypeID,
			State:              string(step.State),
			DisplayModel:       step.DisplayModel,
			ConditionSummaries: step.ConditionSummaries,
		})
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		logger.Log().WithError(err).Error("failed to marshal challenge payload")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = challengePage.Execute(c.Writer, map[string]interface{}{
		"Title":   route.Title,
		"Payload": template.JS(blob),
	})
}

func (g *Gateway) renderNotFound(c *gin.Context) {
	c.Status(http.StatusNotFound)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = notFoundPage.Execute(c.Writer, nil)
}

func renderBlockedPage(c *gin.Context, status int, message string) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = blockedPage.Execute(c.Writer, map[string]string{"Message": message})
}

func (g *Gateway) renderApproved(c *gin.Context) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = approvedPage.Execute(c.Writer, nil)
}
