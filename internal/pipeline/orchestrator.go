// Package pipeline runs one agent invocation end to end: context gathering,
// planning, optional research and illustration, generation, persistence.
package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"para/internal/db"
	"para/internal/llm"
	"para/internal/memory"
	"para/internal/models"
	"para/internal/prompt"
)

const (
	contextPosts    = 20
	contextComments = 20
)

type TextModel interface {
	GenerateStructured(ctx context.Context, model, system, user string) (json.RawMessage, error)
}

type ImageModel interface {
	GenerateImage(ctx context.Context, model, prompt string) *models.ImageAsset
}

type Researcher interface {
	Search(ctx context.Context, queries []string) []models.ResearchResult
}

type Notifier interface {
	Emit(event string, data map[string]any)
}

type ModelNames struct {
	Pro   string
	Light string
	Image string
}

type Options struct {
	Models   ModelNames
	Logger   *zap.Logger
	Notifier Notifier
	Now      func() time.Time
}

type Orchestrator struct {
	db       *sql.DB
	text     TextModel
	images   ImageModel
	research Researcher
	models   ModelNames
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time
}

func New(database *sql.DB, text TextModel, images ImageModel, research Researcher, opts Options) *Orchestrator {
	o := &Orchestrator{
		db:       database,
		text:     text,
		images:   images,
		research: research,
		models:   opts.Models,
		logger:   opts.Logger,
		notifier: opts.Notifier,
		now:      opts.Now,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

type Request struct {
	AgentID     string `json:"agent_id"`
	Task        string `json:"task"`
	Audience    string `json:"audience,omitempty"`
	Constraints string `json:"constraints,omitempty"`
}

type Result struct {
	RunID         string            `json:"run_id"`
	PostID        string            `json:"post_id"`
	Plan          models.Plan       `json:"plan"`
	Post          models.PostOutput `json:"post"`
	MemorySummary memory.Summary    `json:"memory_summary"`
}

// Run executes the pipeline. Cancellation of ctx is ignored once the run
// starts so that a disconnected caller does not leave a half-written run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(req.AgentID) == "" || strings.TrimSpace(req.Task) == "" {
		return nil, newError(KindBadRequest, "agent_id and task are required", nil)
	}

	agent, err := db.GetAgent(ctx, o.db, req.AgentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newError(KindNotFound, "Agent not found", err)
		}
		return nil, newError(KindPersistence, "Failed to load agent", err)
	}

	run, err := db.CreateRun(ctx, o.db, agent.ID, req.Task)
	if err != nil {
		return nil, newError(KindPersistence, "Failed to create run", err)
	}
	log := o.logger.With(zap.String("run_id", run.ID), zap.String("agent_id", agent.ID))
	log.Info("run started")

	summary := memory.Summarize(o.loadContext(ctx, log, agent.ID), o.now())

	plan, err := o.plan(ctx, agent, req, summary)
	if err != nil {
		return nil, o.fail(ctx, log, run.ID, err)
	}
	log.Debug("plan ready", zap.String("target_format", plan.TargetFormat), zap.Int("search_queries", len(plan.SearchQueries)))

	research := o.researchStage(ctx, plan)
	image := o.imageStage(ctx, agent, plan)

	post, err := o.generate(ctx, agent, req.Task, plan, research, image)
	if err != nil {
		return nil, o.fail(ctx, log, run.ID, err)
	}

	created, err := db.InsertPost(ctx, o.db, agent.ID, post.Title, post.Payload.Raw, o.now())
	if err != nil {
		return nil, o.fail(ctx, log, run.ID, newError(KindPersistence, "Failed to create post", err))
	}

	o.finalize(ctx, log, run.ID, agent.ID, plan, post, summary)
	log.Info("run completed", zap.String("post_id", created.ID), zap.String("kind", string(created.Kind)))
	o.emit(db.EventRunCompleted, map[string]any{
		"run_id":   run.ID,
		"agent_id": agent.ID,
		"post_id":  created.ID,
		"title":    post.Title,
	})

	return &Result{
		RunID:         run.ID,
		PostID:        created.ID,
		Plan:          plan,
		Post:          post,
		MemorySummary: summary,
	}, nil
}

// loadContext reads prior memory, recent posts and their engagement. Any read
// failure is logged and treated as missing data.
func (o *Orchestrator) loadContext(ctx context.Context, log *zap.Logger, agentID string) memory.Input {
	in := memory.Input{Previous: map[string]any{}}

	if m, err := db.GetMemory(ctx, o.db, agentID); err == nil {
		in.Previous = memory.Decode(m.Summary)
	} else if !errors.Is(err, sql.ErrNoRows) {
		log.Warn("load memory failed", zap.Error(err))
	}

	posts, err := db.RecentPosts(ctx, o.db, agentID, contextPosts)
	if err != nil {
		log.Warn("load recent posts failed", zap.Error(err))
		return in
	}
	if len(posts) == 0 {
		return in
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		in.Posts = append(in.Posts, memory.PostRef{ID: p.ID, Title: p.Title})
	}

	if feedback, err := db.FeedbackForPosts(ctx, o.db, ids); err != nil {
		log.Warn("load feedback failed", zap.Error(err))
	} else {
		for _, f := range feedback {
			in.Feedback = append(in.Feedback, memory.FeedbackEvent{PostID: f.PostID, Signal: f.Signal, Meta: f.Meta})
		}
	}

	if comments, err := db.RecentComments(ctx, o.db, ids, contextComments); err != nil {
		log.Warn("load comments failed", zap.Error(err))
	} else {
		for _, c := range comments {
			in.Comments = append(in.Comments, memory.CommentRef{PostID: c.PostID, Body: c.Body})
		}
	}
	return in
}

func (o *Orchestrator) plan(ctx context.Context, agent *models.Agent, req Request, summary memory.Summary) (models.Plan, error) {
	user := prompt.Planner(prompt.PlannerInput{
		ChannelName:   agent.ChannelName,
		Mission:       agent.Mission,
		Task:          req.Task,
		Audience:      req.Audience,
		Constraints:   req.Constraints,
		MemorySummary: summary,
	})
	raw, err := o.text.GenerateStructured(ctx, o.models.Pro, prompt.PlannerSystem, user)
	if err != nil {
		return models.Plan{}, upstreamError("Planner failed", err)
	}
	return models.ParsePlan(raw), nil
}

func (o *Orchestrator) researchStage(ctx context.Context, plan models.Plan) []models.ResearchResult {
	if len(plan.SearchQueries) == 0 || o.research == nil {
		return []models.ResearchResult{}
	}
	return o.research.Search(ctx, plan.SearchQueries)
}

func (o *Orchestrator) imageStage(ctx context.Context, agent *models.Agent, plan models.Plan) *models.ImageAsset {
	if !plan.WantsImage() || o.images == nil {
		return nil
	}
	p := strings.TrimSpace(plan.ImagePrompt)
	if p == "" {
		p = agent.Mission + ". " + plan.ContentBrief
	}
	return o.images.GenerateImage(ctx, o.models.Image, p)
}

func (o *Orchestrator) generate(ctx context.Context, agent *models.Agent, task string, plan models.Plan, research []models.ResearchResult, image *models.ImageAsset) (models.PostOutput, error) {
	user := prompt.Generator(prompt.GeneratorInput{
		ChannelName: agent.ChannelName,
		Mission:     agent.Mission,
		Plan:        plan,
		Research:    research,
		Image:       image,
	})
	model := llm.ChooseModel(task, plan, o.models.Pro, o.models.Light)
	raw, err := o.text.GenerateStructured(ctx, model, prompt.GeneratorSystem, user)
	if err != nil {
		return models.PostOutput{}, upstreamError("Generator failed", err)
	}
	return models.ParsePostOutput(raw), nil
}

// finalize marks the run completed and stores the new memory summary. A
// failure here does not undo the persisted post.
func (o *Orchestrator) finalize(ctx context.Context, log *zap.Logger, runID, agentID string, plan models.Plan, post models.PostOutput, summary memory.Summary) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		log.Warn("encode plan snapshot failed", zap.Error(err))
	}
	postJSON, err := json.Marshal(post)
	if err != nil {
		log.Warn("encode post snapshot failed", zap.Error(err))
	}
	if err := db.FinishRun(ctx, o.db, runID, planJSON, postJSON); err != nil {
		log.Error("complete run failed", zap.Error(err))
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		log.Error("encode memory summary failed", zap.Error(err))
		return
	}
	if err := db.UpsertMemory(ctx, o.db, agentID, summaryJSON, o.now()); err != nil {
		log.Error("store memory failed", zap.Error(err))
	}
}

// fail records cause on the run and returns it with the run id attached.
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, runID string, cause error) error {
	var pe *Error
	if !errors.As(cause, &pe) {
		pe = newError(KindUpstream, cause.Error(), cause)
	}
	pe.RunID = runID
	recorded := pe.Message
	if pe.Kind == KindPersistence && pe.Err != nil {
		recorded = pe.Err.Error()
	}
	if err := db.FailRun(ctx, o.db, runID, recorded); err != nil {
		log.Error("record run failure failed", zap.Error(err))
	}
	log.Warn("run failed", zap.String("kind", pe.Kind.String()), zap.String("error", pe.Message))
	o.emit(db.EventRunFailed, map[string]any{
		"run_id": runID,
		"error":  recorded,
		"kind":   pe.Kind.String(),
	})
	return pe
}

func (o *Orchestrator) emit(event string, data map[string]any) {
	if o.notifier != nil {
		o.notifier.Emit(event, data)
	}
}

// upstreamError surfaces the provider's message, or fallback when it is empty.
func upstreamError(fallback string, err error) error {
	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		msg = fallback
	}
	return newError(KindUpstream, msg, err)
}
