// Package scheduler implements the GreedySelector and TimelineSimulator:
// the priority-first, preemption-tolerant algorithm that picks which job
// should run next, and the forward simulation that previews a whole
// night's schedule before committing to it.
package scheduler

import (
	"log/slog"
	"time"

	"astroscheduler/pkg/config"
	"astroscheduler/pkg/constraint"
	"astroscheduler/pkg/duration"
	"astroscheduler/pkg/job"
	"astroscheduler/pkg/modulestate"
)

// MinRunSecs is the shortest stretch a newly selected job is allowed to run
// before a lower-priority job may preempt it.
const MinRunSecs = 600

// MaxInterruptSecs is how much sooner a competing candidate must start to
// be allowed to preempt the job currently running.
const MaxInterruptSecs = 30

// SimType controls how much lookahead selectNextJob performs.
type SimType int

const (
	// DontSimulate picks the next job without previewing the rest of the
	// night.
	DontSimulate SimType = iota
	// SimulateOnce previews the timeline only until every eligible job has
	// been given a startup time once.
	SimulateOnce
	// SimulateFull previews the timeline to the search horizon (or until
	// the iteration cap is hit).
	SimulateFull
)

// Selector implements scheduleJobs/checkJob/selectNextJob against a shared
// ModuleState, ConstraintEvaluator and DurationEstimator.
type Selector struct {
	cfg       *config.Config
	evaluator *constraint.Evaluator
	estimator *duration.Estimator
	state     *modulestate.State
	logger    *slog.Logger

	lastCheckJob     *job.Job
	lastCheckAt      time.Time
	simCheckInterval time.Duration
}

// New returns a Selector. logger may be nil, in which case scheduling
// decisions are not logged.
func New(cfg *config.Config, evaluator *constraint.Evaluator, estimator *duration.Estimator, state *modulestate.State, logger *slog.Logger) *Selector {
	return &Selector{
		cfg:              cfg,
		evaluator:        evaluator,
		estimator:        estimator,
		state:            state,
		logger:           logger,
		simCheckInterval: 60 * time.Second,
	}
}

// FilterLeadJobs returns the subset of jobs that are leads (standalone or
// group leaders), preserving relative order. Followers are scheduled
// implicitly alongside their lead.
func FilterLeadJobs(jobs []*job.Job) []*job.Job {
	leads := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.IsLead() {
			leads = append(leads, j)
		}
	}
	return leads
}

// ScheduleJobs clears every job's start-time cache, re-evaluates the whole
// set, and greedily selects the next job to run. It returns the selected
// lead job and its startup time, and false if nothing is runnable.
func (s *Selector) ScheduleJobs(jobs []*job.Job, now time.Time) (*job.Job, time.Time, bool) {
	for _, j := range jobs {
		j.ClearCache()
	}

	s.prepareJobsForEvaluation(jobs, now, true)
	leads := FilterLeadJobs(jobs)

	selected, startTime, nextInterruption, interruptReason, entries := s.selectNextJob(leads, now, nil, SimulateFull)

	if selected == nil {
		s.logNoJobsRunnable(leads, now)
		for _, j := range jobs {
			j.ClearCache()
		}
		return nil, time.Time{}, false
	}

	selected.State = job.StateScheduled
	selected.StartupTime = startTime
	selected.StopTime = nextInterruption
	selected.StopReason = interruptReason
	selected.SimulatedSchedule = entries

	if s.logger != nil {
		s.logger.Info("selected next job", "job", selected.GetName(), "start", startTime, "stop", nextInterruption, "stopReason", interruptReason)
	}

	for _, j := range jobs {
		j.ClearCache()
	}

	return selected, startTime, true
}

// CheckJob re-evaluates whether current is still the right job to be
// running. A job that only just started is given a 5 second grace period
// before it can be preempted, to avoid thrashing on simultaneous triggers.
func (s *Selector) CheckJob(jobs []*job.Job, now time.Time, current *job.Job) bool {
	if current != nil && !current.StartupTime.IsZero() && now.Sub(current.StartupTime) < 5*time.Second {
		return true
	}

	simType := SimulateOnce
	if current == s.lastCheckJob && now.Sub(s.lastCheckAt) < s.simCheckInterval {
		simType = DontSimulate
	}
	s.lastCheckJob = current
	s.lastCheckAt = now

	leads := FilterLeadJobs(jobs)
	next, _, _, _, _ := s.selectNextJob(leads, now, current, simType)
	return next == current
}

// prepareJobsForEvaluation retires finished jobs, leaves INVALID/COMPLETE
// jobs alone, keeps ERROR/ABORTED jobs around for allowJob to judge, and
// moves everything else to EVALUATION; when reestimate is true it also
// refreshes each job's duration estimate.
func (s *Selector) prepareJobsForEvaluation(jobs []*job.Job, now time.Time, reestimate bool) {
	for _, j := range jobs {
		switch {
		case j.CompletionCondition == job.FinishAt && j.FinishAtTime.Before(now):
			j.State = job.StateComplete
			continue
		case j.CompletionCondition == job.FinishRepeat && j.RepeatsRemaining == 0:
			j.State = job.StateComplete
			j.Estimate = job.EstimateComplete()
			continue
		}

		switch j.State {
		case job.StateInvalid, job.StateComplete:
			continue
		case job.StateError, job.StateAborted:
			// retained as-is; allowJob decides whether they're eligible
		default:
			j.State = job.StateEvaluation
		}

		if reestimate {
			if ok := s.estimator.EstimateJobTime(j, now, s.logger); !ok {
				j.State = job.StateInvalid
				continue
			}
			if j.Estimate.Kind == job.EstimateCompleteKind {
				j.State = job.StateComplete
				j.RepeatsRemaining = 0
			}
		}
	}
}

// allowJob reports whether j's current state permits it to be considered
// at all: INVALID and COMPLETE jobs never are; ABORTED/ERROR jobs are
// gated by the reschedule flags.
func allowJob(j *job.Job, cfg *config.Config) bool {
	switch j.State {
	case job.StateInvalid, job.StateComplete:
		return false
	case job.StateAborted:
		return cfg.Scheduler.RescheduleAbortsImmediately || cfg.Scheduler.RescheduleAbortsQueue
	case job.StateError:
		return cfg.Scheduler.RescheduleErrors
	default:
		return true
	}
}

// firstPossibleStart returns the earliest instant j may start, applying
// the abort/error retry delays (the later of the two, if both apply) and
// flooring at now.
func firstPossibleStart(j *job.Job, now time.Time, cfg *config.Config) time.Time {
	start := now

	if !j.LastAbortTime.IsZero() {
		t := j.LastAbortTime.Add(time.Duration(cfg.Scheduler.AbortDelaySeconds) * time.Second)
		if t.After(start) {
			start = t
		}
	}
	if !j.LastErrorTime.IsZero() {
		t := j.LastErrorTime.Add(time.Duration(cfg.Scheduler.ErrorDelaySeconds) * time.Second)
		if t.After(start) {
			start = t
		}
	}
	if start.Before(now) {
		start = now
	}
	return start
}

// selectNextJob is the greedy priority loop: it walks jobs in priority
// order (index 0 highest), skipping any that allowJob rejects, and picks
// the first with a feasible start time. A later (lower-priority) candidate
// only preempts that pick when greedy scheduling is enabled and it can
// start meaningfully sooner — by more than runSecs, which is
// MaxInterruptSecs while evaluating the job already running and
// MinRunSecs otherwise — so the mount isn't left idle waiting on a
// higher-priority job that isn't ready yet. Two overlays run after the
// priority pass: a START_AT promotion (a job with an explicit start time
// close enough to cut in line) and a group-fairness swap (a same-group job
// with fewer completed iterations that can start within
// MaxInterruptSecs).
func (s *Selector) selectNextJob(jobs []*job.Job, now time.Time, current *job.Job, simType SimType) (selected *job.Job, startTime, nextInterruption time.Time, interruptReason string, simulatedSchedule []job.SimulatedScheduleEntry) {
	for _, j := range jobs {
		if !allowJob(j, s.cfg) {
			continue
		}

		earliest := firstPossibleStart(j, now, s.cfg)
		candidateStart, ok := s.evaluator.NextPossibleStartTime(j, earliest, time.Time{}, s.cfg.Scheduler.ScheduleResolutionMinutes)
		if !ok {
			continue
		}

		if selected == nil {
			selected, startTime = j, candidateStart
			continue
		}

		if !s.cfg.Scheduler.GreedyScheduling {
			continue
		}

		runSecs := time.Duration(MinRunSecs) * time.Second
		if current != nil && selected == current {
			runSecs = time.Duration(MaxInterruptSecs) * time.Second
		}

		keepsCurrentStartAt := current != nil && selected == current && selected.GetStartupCondition() == job.StartAt
		if !keepsCurrentStartAt && startTime.Sub(candidateStart) > runSecs {
			selected, startTime = j, candidateStart
		}
	}

	if selected == nil {
		return nil, time.Time{}, time.Time{}, "", nil
	}

	s.applyStartAtOverlay(jobs, now, current, &selected, &startTime)
	s.applyGroupFairnessOverlay(jobs, &selected, &startTime)

	if simType != DontSimulate {
		simulatedSchedule, nextInterruption, interruptReason = s.simulate(jobs, startTime, startTime.Add(constraintSearchHorizon), simType)
	}

	return selected, startTime, nextInterruption, interruptReason, simulatedSchedule
}

const constraintSearchHorizon = 3 * 24 * time.Hour

// applyStartAtOverlay promotes a job with an explicit START_AT time if it
// is close enough behind the otherwise-selected job's start that cutting
// in line costs little idle time.
func (s *Selector) applyStartAtOverlay(jobs []*job.Job, now time.Time, current *job.Job, selected **job.Job, startTime *time.Time) {
	for _, j := range jobs {
		if j == *selected || j.GetStartupCondition() != job.StartAt {
			continue
		}
		if !allowJob(j, s.cfg) {
			continue
		}

		atStart, ok := s.evaluator.NextPossibleStartTime(j, j.GetStartAtTime(), time.Time{}, s.cfg.Scheduler.ScheduleResolutionMinutes)
		if !ok {
			continue
		}

		gap := time.Duration(MinRunSecs) * time.Second
		if current != nil && *selected == current {
			gap = 30 * time.Second
		}

		delta := atStart.Sub(j.GetStartAtTime())
		if delta < 0 {
			delta = -delta
		}

		if delta < 20*time.Minute && (*startTime).Sub(atStart) <= gap && atStart.Before(*startTime) {
			*selected = j
			*startTime = atStart
		}
	}
}

// applyGroupFairnessOverlay swaps in a same-group job that trails selected
// in priority order but has completed fewer iterations, provided it can
// start within MaxInterruptSecs of the same moment — so round-robin group
// members don't starve while one member's priority dominates.
func (s *Selector) applyGroupFairnessOverlay(jobs []*job.Job, selected **job.Job, startTime *time.Time) {
	group := (*selected).Group
	if group == "" {
		return
	}

	foundIdx := -1
	for i, j := range jobs {
		if j == *selected {
			foundIdx = i
			break
		}
	}
	if foundIdx < 0 {
		return
	}

	for _, j := range jobs[foundIdx+1:] {
		if j.Group != group || j == *selected {
			continue
		}
		if j.CompletedIterations >= (*selected).CompletedIterations {
			continue
		}
		if !allowJob(j, s.cfg) {
			continue
		}

		candidateStart, ok := s.evaluator.NextPossibleStartTime(j, *startTime, time.Time{}, s.cfg.Scheduler.ScheduleResolutionMinutes)
		if !ok {
			continue
		}

		delta := candidateStart.Sub(*startTime)
		if delta < 0 {
			delta = -delta
		}
		if delta <= MaxInterruptSecs*time.Second {
			if s.logger != nil {
				s.logger.Debug("group fairness swap", "from", (*selected).Name, "fromIterations", (*selected).CompletedIterations, "to", j.Name, "toIterations", j.CompletedIterations)
			}
			*selected = j
			*startTime = candidateStart
			return
		}
	}
}

func (s *Selector) logNoJobsRunnable(jobs []*job.Job, now time.Time) {
	if s.logger == nil {
		return
	}
	s.logger.Info("no jobs runnable", "at", now)
	for _, probeAt := range []time.Time{now, now.Add(12 * time.Hour)} {
		for _, j := range jobs {
			if !allowJob(j, s.cfg) {
				s.logger.Debug("job not runnable", "job", j.Name, "probe", probeAt, "reason", "state disallows scheduling: "+string(j.State))
				continue
			}
			if _, ok := s.evaluator.NextPossibleStartTime(j, probeAt, time.Time{}, s.cfg.Scheduler.ScheduleResolutionMinutes); !ok {
				s.logger.Debug("job not runnable", "job", j.Name, "probe", probeAt, "reason", "no feasible window found")
			}
		}
	}
}
