package job

import (
	"testing"
	"time"
)

func TestLeadFollowerDelegation(t *testing.T) {
	lead := New("M42 Ha")
	lead.SetMinAltitude(30)
	lead.SetTargetCoords(Coordinates{RAHours: 5.59, DecDeg: -5.39})

	follower := New("M42 OIII")
	follower.SetLead(lead)

	if got := follower.GetMinAltitude(); got != 30 {
		t.Errorf("expected follower to read lead's min altitude 30, got %v", got)
	}

	// Changing the lead after the fact should still be visible to the
	// follower, since GetMinAltitude always re-reads through the lead.
	lead.SetMinAltitude(40)
	if got := follower.GetMinAltitude(); got != 40 {
		t.Errorf("expected follower to see updated lead min altitude 40, got %v", got)
	}

	if got := follower.GetTargetCoords(); got.RAHours != 5.59 {
		t.Errorf("expected follower to delegate target coords, got %+v", got)
	}
}

func TestCompletionConditionNotDelegated(t *testing.T) {
	lead := New("lead")
	lead.CompletionCondition = FinishLoop

	follower := New("follower")
	follower.SetLead(lead)
	follower.CompletionCondition = FinishSequence

	if follower.CompletionCondition != FinishSequence {
		t.Errorf("expected follower's own completion condition to stick, got %v", follower.CompletionCondition)
	}
}

func TestFollowerWithNoLeadPanicsOnDelegatedRead(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when a job's lead reference points at the job itself")
		}
	}()

	j := New("orphan")
	j.leadJob = j // simulate a corrupted invariant: a job pointing at itself
	j.GetMinAltitude()
}

func TestIsDuplicateOf(t *testing.T) {
	a := New("M31")
	a.SequenceFile = "seq://a"
	b := New("M31")
	b.SequenceFile = "seq://a"
	c := New("M31")
	c.SequenceFile = "seq://b"

	if !a.IsDuplicateOf(b) {
		t.Error("expected a and b to be duplicates (same name + sequence file)")
	}
	if a.IsDuplicateOf(c) {
		t.Error("expected a and c not to be duplicates (different sequence file)")
	}
	if a.IsDuplicateOf(a) {
		t.Error("a job is never a duplicate of itself")
	}
}

func TestCloneDetachesLeadAndDeepCopiesMaps(t *testing.T) {
	lead := New("lead")
	follower := New("follower")
	follower.SetLead(lead)
	follower.CapturedFramesMap["Ha:300"] = 5

	clone := follower.Clone()
	if clone.Lead() != nil {
		t.Error("expected clone to be detached from lead")
	}

	clone.CapturedFramesMap["Ha:300"] = 99
	if follower.CapturedFramesMap["Ha:300"] != 5 {
		t.Error("expected clone's captured frames map to be an independent copy")
	}
}

func TestResetClearsRunState(t *testing.T) {
	j := New("target")
	j.State = StateBusy
	j.StartupTime = time.Now()
	j.StopTime = time.Now()
	j.StopReason = "preempted"
	j.SimulatedSchedule = []SimulatedScheduleEntry{{JobName: "target"}}

	j.Reset()

	if j.State != StateIdle {
		t.Errorf("expected state IDLE after reset, got %v", j.State)
	}
	if !j.StartupTime.IsZero() {
		t.Error("expected startup time cleared after reset")
	}
	if !j.StopTime.IsZero() {
		t.Error("expected stop time cleared after reset")
	}
	if j.StopReason != "" {
		t.Error("expected stop reason cleared after reset")
	}
	if j.SimulatedSchedule != nil {
		t.Error("expected simulated schedule cleared after reset")
	}
}

func TestResetRestoresUserOriginalConfigAndClearsEstimates(t *testing.T) {
	j := New("target")
	j.SetFileStartupCondition(StartAt)
	j.SetStartupCondition(StartAt)
	j.RepeatsRequired = 5

	// A runtime promotion (e.g. the scheduler bumping a job to ASAP) should
	// not survive a reset: it reverts to what was loaded from the sequence
	// file.
	j.startupCondition = StartASAP

	j.Estimate = EstimateSeconds(120)
	j.EstimatedTimePerRepeat = 120
	j.EstimatedTimeLeftThisRepeat = 60
	j.EstimatedStartupTime = 30

	j.RepeatsRemaining = 2
	j.CapturedFramesMap["L:60"] = 7
	j.CaptureRequestMap = CapturedFramesMap{"L:60": 3}
	j.CompletedIterations = 4
	j.CompletedCount = 9

	j.Reset()

	if j.GetStartupCondition() != StartAt {
		t.Errorf("expected startup condition reverted to file original StartAt, got %v", j.GetStartupCondition())
	}
	if j.Estimate.Known() {
		t.Error("expected estimate reset to NotEstimated (unknown) after reset")
	}
	if j.EstimatedTimePerRepeat != 0 || j.EstimatedTimeLeftThisRepeat != 0 || j.EstimatedStartupTime != 0 {
		t.Error("expected supporting estimate fields zeroed after reset")
	}
	if j.RepeatsRemaining != j.RepeatsRequired {
		t.Errorf("expected repeatsRemaining restored to repeatsRequired (%d), got %d", j.RepeatsRequired, j.RepeatsRemaining)
	}
	if len(j.CapturedFramesMap) != 0 {
		t.Errorf("expected captured frames map cleared, got %v", j.CapturedFramesMap)
	}
	if j.CaptureRequestMap != nil {
		t.Errorf("expected capture request map cleared, got %v", j.CaptureRequestMap)
	}
	if j.CompletedIterations != 0 {
		t.Errorf("expected completed iterations reset to 0, got %d", j.CompletedIterations)
	}
	if j.CompletedCount != 0 {
		t.Errorf("expected completed count reset to 0, got %d", j.CompletedCount)
	}
}

func TestJobEstimateKindsAreDistinguishable(t *testing.T) {
	if EstimateNotEstimated().Known() {
		t.Error("NotEstimated should not be Known")
	}
	if EstimateUnbounded().Known() {
		t.Error("Unbounded should not be Known")
	}
	if !EstimateComplete().Known() {
		t.Error("Complete should be Known")
	}
	if !EstimateSeconds(120).Known() {
		t.Error("Seconds(120) should be Known")
	}
	if EstimateSeconds(120).Seconds != 120 {
		t.Error("expected Seconds value preserved")
	}
}

func TestRunsDuringAstronomicalNightTime(t *testing.T) {
	dusk := time.Date(2026, 7, 29, 21, 0, 0, 0, time.UTC)
	dawn := time.Date(2026, 7, 30, 4, 0, 0, 0, time.UTC)

	j := New("nightjob")
	j.SetEnforceTwilight(true)

	if ok, _ := j.RunsDuringAstronomicalNightTime(dusk.Add(-time.Hour), dawn, dusk); ok {
		t.Error("expected false before dusk")
	}
	if ok, _ := j.RunsDuringAstronomicalNightTime(dusk.Add(time.Hour), dawn, dusk); !ok {
		t.Error("expected true between dusk and dawn")
	}
	if ok, _ := j.RunsDuringAstronomicalNightTime(dawn.Add(time.Hour), dawn, dusk); ok {
		t.Error("expected false after dawn")
	}
}

func TestSatisfiesAltitudeConstraintMinAltitude(t *testing.T) {
	j := New("target")
	j.SetMinAltitude(30)

	if ok, _ := j.SatisfiesAltitudeConstraint(180, 20, nil); ok {
		t.Error("expected altitude 20 below minimum 30 to fail")
	}
	if ok, _ := j.SatisfiesAltitudeConstraint(180, 40, nil); !ok {
		t.Error("expected altitude 40 above minimum 30 to pass")
	}
}
