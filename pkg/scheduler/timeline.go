package scheduler

import (
	"time"

	"astroscheduler/pkg/job"
)

// maxSimulationIterations bounds the forward preview regardless of
// configuration, guarding against a misconfigured job set producing an
// infinite loop of zero-length selections.
const maxSimulationIterations = 2000

// simulate previews the timeline from `from` to `until` by repeatedly
// selecting the next job on deep copies of the input set, never mutating
// the caller's jobs. It returns every (re)start it previewed as
// SimulatedScheduleEntry values, plus the first instant at which the
// preview found nothing runnable (or the horizon, if every slot was
// filled) and why — both of which the caller persists onto the job it
// actually selected (its StopTime/StopReason and SimulatedSchedule, per
// spec.md §4.5 step f and §6 Outputs).
//
// The deep-copy-before-mutate discipline (Job.Clone) matches the original
// greedy scheduler's "simulate on a throwaway copy" approach: previewing
// must never leave side effects (cache entries aside, which are legitimate
// to retain) on the real job objects.
func (s *Selector) simulate(jobs []*job.Job, from, until time.Time, simType SimType) ([]job.SimulatedScheduleEntry, time.Time, string) {
	copies := make([]*job.Job, len(jobs))
	for i, j := range jobs {
		copies[i] = j.Clone()
	}

	repeatsLeft := 1
	if s.cfg.Scheduler.SchedulerRepeatEverything && !s.cfg.Scheduler.RememberJobProgress && s.cfg.Scheduler.MaxSimulationRepeats > 0 {
		repeatsLeft = s.cfg.Scheduler.MaxSimulationRepeats
	}

	now := from
	entries := make([]job.SimulatedScheduleEntry, 0, 32)
	onceDone := make(map[*job.Job]bool, len(copies))

	for iteration := 0; iteration < maxSimulationIterations; iteration++ {
		if now.After(until) || now.Equal(until) {
			return entries, until, ""
		}

		s.prepareJobsForEvaluation(copies, now, false)
		next, startTime, _, _, _ := s.selectNextJob(copies, now, nil, DontSimulate)

		if next == nil {
			if repeatsLeft > 1 && allComplete(copies) {
				repeatsLeft--
				for _, c := range copies {
					c.Reset()
				}
				continue
			}
			return entries, now, "no job runnable"
		}

		if simType == SimulateOnce {
			if onceDone[next] {
				return entries, startTime, ""
			}
			onceDone[next] = true
		}

		endTime, reason := s.evaluator.NextEndTime(next, startTime, until, s.cfg.Scheduler.ScheduleResolutionMinutes)

		entries = append(entries, job.SimulatedScheduleEntry{
			JobID:      next.ID,
			JobName:    next.GetName(),
			StartTime:  startTime,
			StopTime:   endTime,
			StopReason: reason,
		})

		advanceJobProgress(next, startTime, endTime)

		if simType == SimulateOnce && allAccountedFor(copies, onceDone) {
			return entries, endTime, reason
		}

		if endTime.Equal(startTime) {
			// Zero-length window: avoid spinning forever on a job that can
			// never make progress.
			return entries, endTime, "zero-length feasibility window"
		}

		now = endTime
	}

	return entries, now, "simulation iteration cap reached"
}

// advanceJobProgress applies the elapsed run as if it had actually
// happened, so the next selection pass in the preview sees updated
// progress counters instead of reselecting the same job forever.
func advanceJobProgress(j *job.Job, start, end time.Time) {
	ran := end.Sub(start)
	if ran <= 0 {
		return
	}

	switch {
	case j.Estimate.Kind == job.EstimateSecondsKind:
		remaining := j.Estimate.Seconds - int(ran.Seconds())
		if remaining <= 0 {
			j.Estimate = job.EstimateComplete()
			if j.CompletionCondition == job.FinishRepeat {
				if j.RepeatsRemaining > 0 {
					j.RepeatsRemaining--
				}
				j.CompletedIterations++
			} else {
				j.State = job.StateComplete
			}
		} else {
			j.Estimate = job.EstimateSeconds(remaining)
		}
	case j.Estimate.Kind == job.EstimateCompleteKind:
		if j.CompletionCondition == job.FinishRepeat && j.RepeatsRemaining > 0 {
			j.RepeatsRemaining--
			j.CompletedIterations++
		}
	}

	j.LastAbortTime = time.Time{}
	j.LastErrorTime = time.Time{}
}

func allComplete(jobs []*job.Job) bool {
	for _, j := range jobs {
		if j.State != job.StateComplete && j.State != job.StateInvalid {
			return false
		}
	}
	return true
}

func allAccountedFor(jobs []*job.Job, done map[*job.Job]bool) bool {
	for _, j := range jobs {
		if j.State == job.StateComplete || j.State == job.StateInvalid {
			continue
		}
		if !done[j] {
			return false
		}
	}
	return true
}
