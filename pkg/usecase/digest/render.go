package digest

import (
	"context"
	_ "embed"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/model"
	"google.golang.org/genai"
)

//go:embed prompt/report.md
var reportPromptRaw string

// Render turns a strategic report into an executive briefing in prose via
// the LLM collaborator.
func (u *UseCase) Render(ctx context.Context, report *model.StrategicReport) (string, error) {
	if u.gemini == nil {
		return "", goerr.New("no LLM configured for rendering")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode report")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(reportPromptRaw+"\n\n"+string(data), genai.RoleUser),
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", goerr.Wrap(err, "failed to render report")
	}

	text := resp.Text()
	if text == "" {
		return "", goerr.New("report rendering returned empty response")
	}
	return text, nil
}
