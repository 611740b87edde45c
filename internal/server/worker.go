package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/shadowcast/internal/shadow"
	"github.com/cwbudde/shadowcast/internal/store"
)

// runJob executes a render job. When st is not nil the record and the
// composite artifacts are persisted under the job ID.
func runJob(ctx context.Context, jm *JobManager, st store.Store, defaults shadow.Params, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "foreground", job.Config.Foreground, "background", job.Config.Background)

	params := job.Config.params(defaults)

	setStage(jm, jobID, StageLoading)
	in, err := loadInputs(job.Config, params.SkipBadDepth)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	if ctx.Err() != nil {
		markJobCancelled(jm, jobID)
		return ctx.Err()
	}

	setStage(jm, jobID, StageRendering)
	res, err := shadow.Synthesize(ctx, in, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			markJobCancelled(jm, jobID)
			return err
		}
		markJobFailed(jm, jobID, err)
		return err
	}
	if res == nil {
		err := errors.New("foreground and background are required")
		markJobFailed(jm, jobID, err)
		return err
	}

	if st != nil {
		setStage(jm, jobID, StageSaving)
		rec := store.NewRecord(job.ID, job.Config.Foreground, job.Config.Background, job.Config.Depth, res)
		if err := store.SaveRender(st, rec, res.Composite); err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
	}

	endTime := time.Now()
	light := res.Mapping.Light
	placement := res.Placement
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Stage = StageDone
		j.Light = &light
		j.Placement = &placement
		j.DropShadow = res.DropShadow.String()
		j.DepthApplied = res.DepthApplied
		j.Elapsed = res.Elapsed
		j.EndTime = &endTime
		j.composite = res.Composite
		j.background = in.Background
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", res.Elapsed,
		"width", res.Composite.Width,
		"height", res.Composite.Height,
		"depth", res.DepthApplied,
	)

	jm.publish(jobID)
	return nil
}

// setStage records the current stage and broadcasts it
func setStage(jm *JobManager, jobID, stage string) {
	jm.UpdateJob(jobID, func(j *Job) {
		j.Stage = stage
	})
	jm.publish(jobID)
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	jm.publish(jobID)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)

	jm.publish(jobID)
}
