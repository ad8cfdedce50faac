package services

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ============================================================================
// CREW - sequential agents sharing a search tool and a language model
// ============================================================================

// Agent is a role-playing LLM worker.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
	LLM       LLMProvider
	Search    SearchProvider
}

// Task is one unit of work assigned to an agent. SearchQueries run through
// the agent's search tool before the model is called; their results are
// included in the prompt.
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	SearchQueries  []string
	Agent          *Agent
}

// TaskOutput is the raw Markdown produced for one task.
type TaskOutput struct {
	Name        string  `json:"name"`
	Agent       string  `json:"agent"`
	Description string  `json:"description"`
	Raw         string  `json:"raw"`
	Cost        float64 `json:"cost"`
}

// CrewOutput holds task outputs in execution order.
type CrewOutput struct {
	TasksOutput []TaskOutput `json:"tasks_output"`
	TotalCost   float64      `json:"total_cost"`
}

// TaskHook is called before each task starts.
type TaskHook func(index int, task Task)

type taskHookKey struct{}

// WithTaskHook attaches a per-call hook to ctx. Kickoff calls it in addition
// to the crew's own BeforeTask.
func WithTaskHook(ctx context.Context, hook TaskHook) context.Context {
	return context.WithValue(ctx, taskHookKey{}, hook)
}

// Crew runs its tasks sequentially. Every task sees the outputs of the
// tasks before it.
type Crew struct {
	Tasks       []Task
	BeforeTask  TaskHook
	MaxSnippets int
	log         zerolog.Logger
}

func NewCrew(tasks []Task, log zerolog.Logger) *Crew {
	return &Crew{Tasks: tasks, MaxSnippets: 5, log: log}
}

// Kickoff interpolates inputs into every task and runs them in order.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*CrewOutput, error) {
	if len(c.Tasks) == 0 {
		return nil, errors.New("crew has no tasks")
	}

	out := &CrewOutput{}
	for i, task := range c.Tasks {
		if task.Agent == nil || task.Agent.LLM == nil {
			return nil, errors.Errorf("task %q has no agent model", task.Name)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		task = task.interpolate(inputs)
		if c.BeforeTask != nil {
			c.BeforeTask(i, task)
		}
		if hook, ok := ctx.Value(taskHookKey{}).(TaskHook); ok && hook != nil {
			hook(i, task)
		}

		c.log.Info().Str("task", task.Name).Str("agent", task.Agent.Role).Msg("[Crew] task started")

		result, err := c.runTask(ctx, task, out.TasksOutput)
		if err != nil {
			return nil, errors.Wrapf(err, "task %s", task.Name)
		}
		out.TasksOutput = append(out.TasksOutput, result)
		out.TotalCost += result.Cost
	}

	c.log.Info().Int("tasks", len(out.TasksOutput)).Float64("cost_usd", out.TotalCost).Msg("[Crew] kickoff complete")
	return out, nil
}

func (c *Crew) runTask(ctx context.Context, task Task, previous []TaskOutput) (TaskOutput, error) {
	agent := task.Agent

	var findings []searchFinding
	if agent.Search != nil {
		for _, q := range task.SearchQueries {
			results, err := agent.Search.Search(ctx, q)
			if err != nil {
				// the model can still answer from its own knowledge
				c.log.Warn().Err(err).Str("query", q).Msg("[Crew] search failed")
				continue
			}
			if c.MaxSnippets > 0 && len(results) > c.MaxSnippets {
				results = results[:c.MaxSnippets]
			}
			findings = append(findings, searchFinding{Query: q, Results: results})
		}
	}

	system := buildAgentSystemPrompt(agent)
	user := buildTaskPrompt(task, previous, findings)

	resp, err := agent.LLM.Generate(ctx, system, user)
	if err != nil {
		return TaskOutput{}, err
	}

	raw := cleanModelText(resp.Text)
	if raw == "" {
		return TaskOutput{}, &UpstreamError{Service: "llm", Message: "model returned only reasoning, no answer"}
	}

	return TaskOutput{
		Name:        task.Name,
		Agent:       agent.Role,
		Description: task.Description,
		Raw:         raw,
		Cost:        resp.Cost,
	}, nil
}

// interpolate returns a copy of t with {key} placeholders replaced in the
// description, queries and the agent's goal.
func (t Task) interpolate(inputs map[string]string) Task {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", inputs[k])
	}
	r := strings.NewReplacer(pairs...)

	out := t
	out.Description = r.Replace(t.Description)
	out.ExpectedOutput = r.Replace(t.ExpectedOutput)
	out.SearchQueries = make([]string, len(t.SearchQueries))
	for i, q := range t.SearchQueries {
		out.SearchQueries[i] = r.Replace(q)
	}
	if t.Agent != nil {
		agent := *t.Agent
		agent.Goal = r.Replace(agent.Goal)
		out.Agent = &agent
	}
	return out
}

// Output returns the raw text of the named task.
func (o *CrewOutput) Output(name string) (string, bool) {
	for _, t := range o.TasksOutput {
		if t.Name == name {
			return t.Raw, true
		}
	}
	return "", false
}
