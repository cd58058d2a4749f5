package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/timecalc"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"

	scheduleFunction = "parseTodaysSchedule"
)

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

var _ Completer = (*Client)(nil)

// NewClient returns a client authenticating with apiKey as bearer token.
func NewClient(ctx context.Context, baseURL, model, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &Client{
		httpClient: oauth2.NewClient(ctx, ts),
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools"`
	ToolChoice  chatTool      `json:"tool_choice"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func itemSchema(what string) map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"description": map[string]any{"type": "string", "description": what},
				"time":        map[string]any{"type": "number", "description": "time allotted in hours"},
			},
			"required": []string{"description", "time"},
		},
	}
}

// scheduleSchema mirrors model.Schedule.
func scheduleSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"schedule": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string", "description": "name of the main task"},
						"priority": map[string]any{
							"type": "string",
							"enum": []string{string(model.PriorityHigh), string(model.PriorityMedium), string(model.PriorityLow)},
						},
						"subtasks": itemSchema("detailed step of the main task"),
						"breaks":   itemSchema("short break activity"),
					},
					"required": []string{"name", "priority", "subtasks", "breaks"},
				},
			},
		},
		"required": []string{"schedule"},
	}
}

func prompt(hours float64, taskList []model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I will work %s today. These are my tasks with estimated durations:\n", timecalc.FormatHours(hours))
	for _, t := range taskList {
		fmt.Fprintf(&b, "- %s (%s)\n", t.Description, timecalc.FormatHours(t.Time))
	}
	b.WriteString("Prioritize the tasks, split each into subtasks and add breaks so the plan fits the hours I work.")
	return b.String()
}

// Complete issues one chat request forcing the schedule function and returns
// the function arguments as received.
func (c *Client) Complete(ctx context.Context, hours float64, taskList []model.Task) (string, error) {
	fn := chatTool{Type: "function", Function: chatFunction{
		Name:        scheduleFunction,
		Description: "plan the day's tasks with subtasks and breaks",
		Parameters:  scheduleSchema(),
	}}
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a productivity assistant that plans a single work day."},
			{Role: "user", Content: prompt(hours, taskList)},
		},
		Tools:       []chatTool{fn},
		ToolChoice:  chatTool{Type: "function", Function: chatFunction{Name: scheduleFunction}},
		Temperature: 1,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("chat API error %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("chat API error %d: %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decoding chat response: %w", decodeErr)
	}
	if len(out.Choices) == 0 || len(out.Choices[0].Message.ToolCalls) == 0 {
		return "", fmt.Errorf("chat API returned no schedule")
	}
	return out.Choices[0].Message.ToolCalls[0].Function.Arguments, nil
}
