package capture

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jo-hoe/classwatch/internal/metrics"
)

type evaluationRun struct {
	id      int
	pending int
	score   int
	result  chan int
}

// Evaluate scores the session's captures: one point per image in which the
// detector finds a face. It is only allowed once the quota is reached and not
// while another evaluation runs. Detection errors count as no face.
//
// Evaluate blocks until the score is published. If ctx ends first the batch
// keeps running and its score is still published to the session.
func (c *Controller) Evaluate(ctx context.Context) (int, error) {
	var (
		result   <-chan int
		startErr error
	)
	if err := c.do(ctx, func() {
		result, startErr = c.startEvaluation()
	}); err != nil {
		return 0, err
	}
	if startErr != nil {
		return 0, startErr
	}

	select {
	case score := <-result:
		return score, nil
	case <-c.stopped:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *Controller) startEvaluation() (<-chan int, error) {
	s := &c.session
	if s.captureCount() < c.config.Quota {
		return nil, ErrQuotaNotReached
	}
	if s.evaluating {
		return nil, ErrEvaluationInProgress
	}

	s.evaluating = true
	c.evalSeq++
	run := &evaluationRun{
		id:      c.evalSeq,
		pending: len(s.captures),
		result:  make(chan int, 1),
	}
	c.evaluation = run

	slog.Info("evaluating attentiveness", "captures", run.pending)
	go c.evaluate(run.id, slices.Clone(s.captures))
	return run.result, nil
}

// evaluate runs off-loop, sequentially and in session order
func (c *Controller) evaluate(run int, captures []Capture) {
	for i, capture := range captures {
		found := c.detectFace(i, capture)
		if err := c.post(context.Background(), detectionCompleteEvent{run: run, index: i, found: found}); err != nil {
			return
		}
	}
}

func (c *Controller) detectFace(index int, capture Capture) bool {
	img, err := c.detector.FetchImage(c.ctx, capture.Image)
	if err != nil {
		c.metrics.Detection(metrics.DetectionError)
		slog.Error("failed to decode capture for detection", "index", index, "error", err)
		return false
	}
	detection, err := c.detector.DetectSingleFace(c.ctx, img)
	if err != nil {
		c.metrics.Detection(metrics.DetectionError)
		slog.Error("error detecting face", "index", index, "error", err)
		return false
	}
	if detection == nil {
		c.metrics.Detection(metrics.DetectionNoFace)
		slog.Debug("no face detected", "index", index)
		return false
	}
	c.metrics.Detection(metrics.DetectionFace)
	slog.Debug("face detected", "index", index, "score", detection.Score)
	return true
}

type detectionCompleteEvent struct {
	run   int
	index int
	found bool
}

func (e detectionCompleteEvent) apply(c *Controller) {
	run := c.evaluation
	if run == nil || run.id != e.run {
		return
	}
	if e.found {
		run.score++
	}
	run.pending--
	if run.pending > 0 {
		return
	}

	score := run.score
	c.session.score = &score
	c.session.evaluating = false
	c.evaluation = nil
	run.result <- score
	c.metrics.EvaluationCompleted()
	slog.Info("attentiveness evaluated", "score", score, "quota", c.config.Quota)
}
