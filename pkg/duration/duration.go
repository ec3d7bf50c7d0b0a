// Package duration implements the DurationEstimator: given a job's sequence
// file and any frames already captured, it estimates how long the job's
// remaining work will take, or tags the estimate as unbounded/complete when
// a plain second count doesn't apply.
package duration

import (
	"log/slog"
	"math"
	"time"

	"astroscheduler/pkg/config"
	"astroscheduler/pkg/job"
)

// SequenceLoader parses a job's opaque sequence file into its capture
// subjobs. The parsing itself (and the sequence file format) is an external
// collaborator this package only consumes the result of.
type SequenceLoader interface {
	Load(sequenceFile string) ([]job.CaptureSubjob, error)
}

// Estimator computes job duration estimates.
type Estimator struct {
	loader SequenceLoader
	cfg    *config.Config
}

// New returns an Estimator backed by loader and cfg.
func New(loader SequenceLoader, cfg *config.Config) *Estimator {
	return &Estimator{loader: loader, cfg: cfg}
}

// EstimateJobTime loads j's sequence, combines it with frames already
// captured, and sets j.Estimate (plus the supporting
// EstimatedTimePerRepeat/EstimatedTimeLeftThisRepeat/EstimatedStartupTime
// fields and j.CaptureRequestMap, the per-pass signature -> remaining-count
// request). Returns false if the sequence failed to load, in which case the
// caller (GreedySelector.prepareJobsForEvaluation) moves the job to
// INVALID.
func (e *Estimator) EstimateJobTime(j *job.Job, now time.Time, logger *slog.Logger) bool {
	subjobs, err := e.loader.Load(j.SequenceFile)
	if err != nil {
		j.Estimate = job.EstimateNotEstimated()
		j.CaptureRequestMap = nil
		if logger != nil {
			logger.Warn("failed to load sequence", "job", j.Name, "sequence", j.SequenceFile, "error", err)
		}
		return false
	}

	expected := calculateExpectedCapturesMap(subjobs)
	allCapturesPerRepeat := 0
	for _, n := range expected {
		allCapturesPerRepeat += n
	}

	completedIterations := fillCompletedIterations(j, expected, e.cfg.Scheduler.RememberJobProgress)
	j.CompletedIterations = completedIterations

	requestMap := make(job.CapturedFramesMap, len(subjobs))
	var totalImagingTime float64
	var lightFramesRequired bool

	for _, sub := range subjobs {
		capturesLeft := capturesRemaining(sub, j, e.cfg.Scheduler.RememberJobProgress)
		requestMap[sub.Signature] += capturesLeft

		if sub.Upload == job.UploadRemote {
			j.CaptureRequestMap = requestMap
			j.Estimate = job.EstimateUnbounded()
			return true
		}

		if capturesLeft <= 0 {
			continue
		}

		secsPerCapture := sub.ExposureSeconds + sub.DelaySeconds
		totalImagingTime += float64(capturesLeft) * secsPerCapture

		if sub.FrameType == job.FrameLight {
			lightFramesRequired = true
			if j.GetStepPipeline().Has(job.UseFocus) {
				totalImagingTime += 10 * float64(capturesLeft)
			}
			if j.GetStepPipeline().Has(job.UseGuide) && e.cfg.Scheduler.DitherEnabled && e.cfg.Scheduler.DitherFrames > 0 {
				totalImagingTime += 15 * float64(capturesLeft) / float64(e.cfg.Scheduler.DitherFrames)
			}
		}
	}

	j.CaptureRequestMap = requestMap
	j.LightFramesRequired = lightFramesRequired
	j.SequenceCount = allCapturesPerRepeat * maxInt(j.RepeatsRequired, 1)
	j.EstimatedTimePerRepeat = int(math.Ceil(totalImagingTime))
	j.EstimatedTimeLeftThisRepeat = int(math.Ceil(totalImagingTime))
	if lightFramesRequired {
		j.EstimatedStartupTime = timeHeuristics(j, e.cfg)
	}

	e.consolidate(j, now, totalImagingTime, lightFramesRequired)
	return true
}

func (e *Estimator) consolidate(j *job.Job, now time.Time, totalImagingTime float64, lightFramesRequired bool) {
	switch {
	case j.CompletionCondition == job.FinishLoop:
		j.Estimate = job.EstimateUnbounded()

	case j.GetStartupCondition() == job.StartAt && j.CompletionCondition == job.FinishAt:
		secs := int(j.FinishAtTime.Sub(j.GetStartAtTime()).Seconds())
		j.Estimate = job.EstimateSeconds(maxInt(secs, 0))

	case j.GetStartupCondition() != job.StartAt && j.CompletionCondition == job.FinishAt && !e.cfg.Scheduler.PreferSequenceTimeOverFinish:
		secs := int(j.FinishAtTime.Sub(now).Seconds())
		j.Estimate = job.EstimateSeconds(maxInt(secs, 0))

	case totalImagingTime <= 0:
		j.Estimate = job.EstimateComplete()
		j.EstimatedTimePerRepeat = 1
		j.EstimatedTimeLeftThisRepeat = 0

	default:
		total := totalImagingTime
		if lightFramesRequired {
			total += float64(j.EstimatedStartupTime)
		}
		j.Estimate = job.EstimateSeconds(int(math.Ceil(total)))
	}
}

// timeHeuristics accounts for the fixed per-session overhead of the steps a
// job runs before imaging: tracking settle, focus, plate-solve align, and
// guiding (including calibration when requested).
func timeHeuristics(j *job.Job, cfg *config.Config) int {
	pipeline := j.GetStepPipeline()
	total := 0

	if pipeline.Has(job.UseTrack) {
		total += 30
	}
	if pipeline.Has(job.UseFocus) {
		total += 120
	}
	if pipeline.Has(job.UseAlign) {
		total += 60
	}
	if pipeline.Has(job.UseGuide) {
		total += 15
		total += int(time.Duration(cfg.Scheduler.DitherSettle).Seconds())
		total += int(time.Duration(cfg.Scheduler.GuidingSettle).Seconds())
		if cfg.Scheduler.ResetGuideCalibration {
			total += 120
		}
	}

	return total
}

func calculateExpectedCapturesMap(subjobs []job.CaptureSubjob) map[string]int {
	expected := make(map[string]int, len(subjobs))
	for _, s := range subjobs {
		expected[s.Signature] += s.Count
	}
	return expected
}

// fillCompletedIterations computes how many full repeat cycles are already
// on disk, the way SchedulerUtils::fillCapturedFramesMap does: the minimum,
// across all capture signatures, of captured/expected. When progress isn't
// remembered between runs, the job's own in-memory counter is used instead
// (Open Question decision: on-disk progress is ignored in that mode).
func fillCompletedIterations(j *job.Job, expected map[string]int, remember bool) int {
	if !remember {
		return j.CompletedIterations
	}

	if len(expected) == 0 {
		return j.CompletedIterations
	}

	minIterations := math.MaxInt32
	for sig, want := range expected {
		if want <= 0 {
			continue
		}
		have := j.CapturedFramesMap[sig]
		iterations := have / want
		if iterations < minIterations {
			minIterations = iterations
		}
	}
	if minIterations == math.MaxInt32 {
		return j.CompletedIterations
	}

	if j.CompletionCondition == job.FinishRepeat && minIterations > j.RepeatsRequired+1 {
		minIterations = j.RepeatsRequired + 1
	}
	return minIterations
}

// capturesRemaining returns how many more frames of sub's signature are
// needed this repeat.
func capturesRemaining(sub job.CaptureSubjob, j *job.Job, remember bool) int {
	if !remember {
		return sub.Count
	}
	have := j.CapturedFramesMap[sub.Signature]
	needThisRepeat := have % maxInt(sub.Count, 1)
	if needThisRepeat == 0 && have > 0 {
		return 0
	}
	remaining := sub.Count - needThisRepeat
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
