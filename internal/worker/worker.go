package worker

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pixelmint/pixelmint/internal/clock"
	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/observability/metrics"
	"github.com/pixelmint/pixelmint/internal/providers/genai"
	"github.com/pixelmint/pixelmint/internal/providers/storage"
	"github.com/pixelmint/pixelmint/internal/ratelimit"
	"github.com/pixelmint/pixelmint/internal/task/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockKey = "pixelmint:worker:process-tasks"
	lockTTL = 4 * time.Minute

	// Results that fail to upload are kept inline as a data URL up to this
	// size; anything larger fails the task.
	maxInlineResult = 3 * 1024 * 1024
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Tasks    domain.Repository
	Provider genai.Provider
	Store    storage.BlobStore
	Locker   *ratelimit.Locker `optional:"true"`
	Metrics  *metrics.Metrics  `optional:"true"`
}

// Worker drains the generation queue: claim a batch, run each task through
// the model and storage, finalize. One failing task never takes down the
// batch.
type Worker struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	tasks    domain.Repository
	provider genai.Provider
	store    storage.BlobStore
	locker   *ratelimit.Locker
	metrics  *metrics.Metrics

	batchSize      int
	downloadClient *http.Client

	uploadPolicy   retryPolicy
	generatePolicy retryPolicy
}

func New(p Params) *Worker {
	batch := p.Cfg.WorkerBatchSize
	if batch <= 0 {
		batch = 5
	}
	generateTimeout := p.Cfg.GenAITimeout
	if generateTimeout <= 0 {
		generateTimeout = 2 * time.Minute
	}

	return &Worker{
		db:       p.DB,
		log:      p.Log.Named("worker"),
		clock:    p.Clock,
		tasks:    p.Tasks,
		provider: p.Provider,
		store:    p.Store,
		locker:   p.Locker,
		metrics:  p.Metrics,

		batchSize:      batch,
		downloadClient: &http.Client{Timeout: 30 * time.Second},

		uploadPolicy: retryPolicy{
			name:       "upload",
			retries:    2,
			perAttempt: 60 * time.Second,
			backoff:    time.Second,
		},
		generatePolicy: retryPolicy{
			name:       "generate",
			retries:    1,
			perAttempt: generateTimeout,
			backoff:    time.Second,
		},
	}
}

// RunResult summarizes one drain pass.
type RunResult struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// RunOnce claims up to one batch of pending tasks and processes them
// sequentially. When a distributed lock is configured and another instance
// holds it, the pass is skipped.
func (w *Worker) RunOnce(ctx context.Context) (RunResult, error) {
	token, acquired, err := w.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		// A broken lock backend must not stall the queue.
		w.log.Warn("worker lock unavailable, proceeding without it", zap.Error(err))
	} else if !acquired {
		w.log.Debug("worker lock held elsewhere, skipping pass")
		return RunResult{}, nil
	} else {
		defer func() {
			if err := w.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				w.log.Warn("worker lock release failed", zap.Error(err))
			}
		}()
	}

	claimed, err := w.tasks.ClaimPending(ctx, w.db, w.batchSize, w.clock.Now())
	if err != nil {
		return RunResult{}, fmt.Errorf("claim pending tasks: %w", err)
	}
	w.metrics.AddTasksClaimed(len(claimed))

	result := RunResult{Claimed: len(claimed)}
	for i := range claimed {
		task := &claimed[i]
		start := time.Now()

		if err := w.processTask(ctx, task); err != nil {
			w.onTaskFailed(ctx, task, err)
			result.Failed++
		} else {
			w.metrics.IncTaskProcessed(string(domain.StatusCompleted))
			result.Completed++
		}
		w.metrics.ObserveTaskDuration(time.Since(start))

		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	if result.Claimed > 0 {
		w.log.Info("drain pass finished",
			zap.Int("claimed", result.Claimed),
			zap.Int("completed", result.Completed),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// Run loops RunOnce on the configured interval until the context ends.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("drain pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task) error {
	settings := domain.SettingsFromMap(task.Settings)
	prompt := buildPrompt(task.Type, task.Prompt, settings)

	req := genai.GenerateRequest{
		Prompt:      prompt,
		AspectRatio: settings.AspectRatio,
		Resolution:  settings.Resolution,
	}
	if task.Type != domain.TypeTextToImage && task.InputImageURL != "" {
		input, err := w.downloadInput(ctx, task.InputImageURL)
		if err != nil {
			return err
		}
		req.InputImage = input
	}

	image, err := runWithRetry(ctx, w.generatePolicy, w.metrics.IncCallRetry,
		func(callCtx context.Context) (*genai.Image, error) {
			return w.provider.Generate(callCtx, req)
		})
	if err != nil {
		return err
	}

	resultURL, err := w.storeResult(ctx, task.UserID, image)
	if err != nil {
		return err
	}

	if err := w.tasks.MarkCompleted(ctx, w.db, task.ID, resultURL, w.clock.Now()); err != nil {
		return fmt.Errorf("finalize task %s: %w", task.ID, err)
	}
	w.log.Info("task completed", zap.String("task_id", task.ID), zap.String("type", task.Type))
	return nil
}

// onTaskFailed is the single place a task failure is decided. The charge
// taken at enqueue time stays consumed; only the failure reason is recorded.
func (w *Worker) onTaskFailed(ctx context.Context, task *domain.Task, cause error) {
	w.log.Error("task failed",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type),
		zap.Error(cause),
	)
	w.metrics.IncTaskProcessed(string(domain.StatusFailed))

	if err := w.tasks.MarkFailed(ctx, w.db, task.ID, cause.Error(), w.clock.Now()); err != nil {
		w.log.Error("recording task failure failed", zap.String("task_id", task.ID), zap.Error(err))
	}
}

// storeResult uploads the generated image with bounded retries. A failed
// upload of a small image falls back to an inline data URL so the result is
// not lost; a large one fails the task.
func (w *Worker) storeResult(ctx context.Context, userID string, image *genai.Image) (string, error) {
	url, err := runWithRetry(ctx, w.uploadPolicy, w.metrics.IncCallRetry,
		func(callCtx context.Context) (string, error) {
			return w.store.Upload(callCtx, userID, image.Bytes, image.Mime)
		})
	if err == nil {
		return url, nil
	}

	if len(image.Bytes) <= maxInlineResult {
		w.log.Warn("upload failed, keeping inline result", zap.Error(err))
		return "data:" + image.Mime + ";base64," + base64.StdEncoding.EncodeToString(image.Bytes), nil
	}
	return "", fmt.Errorf("result upload failed: %w", err)
}

func (w *Worker) downloadInput(ctx context.Context, rawURL string) (*genai.InlineImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("input image request: %w", err)
	}
	resp, err := w.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download input image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download input image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read input image: %w", err)
	}

	return &genai.InlineImage{Bytes: data, Mime: mimeFromURL(rawURL)}, nil
}

func mimeFromURL(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"):
		return "image/jpeg"
	case strings.Contains(lower, ".webp"):
		return "image/webp"
	case strings.Contains(lower, ".gif"):
		return "image/gif"
	default:
		return "image/png"
	}
}
