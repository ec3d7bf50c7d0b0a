package duration

import (
	"errors"
	"testing"
	"time"

	"astroscheduler/pkg/config"
	"astroscheduler/pkg/job"
)

type fakeLoader struct {
	subjobs map[string][]job.CaptureSubjob
	err     error
}

func (f *fakeLoader) Load(sequenceFile string) ([]job.CaptureSubjob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.subjobs[sequenceFile], nil
}

func TestEstimateJobTimeLoadFailureMarksNotEstimated(t *testing.T) {
	loader := &fakeLoader{err: errors.New("not found")}
	e := New(loader, config.DefaultConfig())

	j := job.New("broken")
	j.SequenceFile = "seq://missing"

	ok := e.EstimateJobTime(j, time.Now(), nil)
	if ok {
		t.Fatal("expected false on load failure")
	}
	if j.Estimate.Known() {
		t.Error("expected NotEstimated (unknown) after load failure")
	}
}

func TestEstimateJobTimeRemoteUploadIsUnbounded(t *testing.T) {
	loader := &fakeLoader{subjobs: map[string][]job.CaptureSubjob{
		"seq://remote": {
			{Filter: "L", FrameType: job.FrameLight, ExposureSeconds: 60, Count: 10, Upload: job.UploadRemote, Signature: "L:60"},
		},
	}}
	e := New(loader, config.DefaultConfig())

	j := job.New("remote job")
	j.SequenceFile = "seq://remote"

	ok := e.EstimateJobTime(j, time.Now(), nil)
	if !ok {
		t.Fatal("expected true")
	}
	if j.Estimate.Kind != job.EstimateUnboundedKind {
		t.Errorf("expected Unbounded estimate, got %+v", j.Estimate)
	}
}

func TestEstimateJobTimeSimpleSequence(t *testing.T) {
	loader := &fakeLoader{subjobs: map[string][]job.CaptureSubjob{
		"seq://simple": {
			{Filter: "L", FrameType: job.FrameLight, ExposureSeconds: 60, Count: 10, Signature: "L:60"},
		},
	}}
	cfg := config.DefaultConfig()
	cfg.Scheduler.DitherEnabled = false
	e := New(loader, cfg)

	j := job.New("simple")
	j.SequenceFile = "seq://simple"
	j.CompletionCondition = job.FinishSequence

	ok := e.EstimateJobTime(j, time.Now(), nil)
	if !ok {
		t.Fatal("expected true")
	}
	if j.Estimate.Kind != job.EstimateSecondsKind {
		t.Fatalf("expected a Seconds estimate, got %+v", j.Estimate)
	}
	if j.Estimate.Seconds != 600 {
		t.Errorf("expected 10x60s = 600s, got %d", j.Estimate.Seconds)
	}
	if got := j.CaptureRequestMap["L:60"]; got != 10 {
		t.Errorf("expected capture request map to record 10 remaining for L:60, got %d", got)
	}
}

func TestEstimateJobTimeAllFramesCapturedIsComplete(t *testing.T) {
	loader := &fakeLoader{subjobs: map[string][]job.CaptureSubjob{
		"seq://done": {
			{Filter: "L", FrameType: job.FrameLight, ExposureSeconds: 60, Count: 10, Signature: "L:60"},
		},
	}}
	cfg := config.DefaultConfig()
	e := New(loader, cfg)

	j := job.New("done")
	j.SequenceFile = "seq://done"
	j.CompletionCondition = job.FinishSequence
	j.CapturedFramesMap["L:60"] = 10

	ok := e.EstimateJobTime(j, time.Now(), nil)
	if !ok {
		t.Fatal("expected true")
	}
	if j.Estimate.Kind != job.EstimateCompleteKind {
		t.Errorf("expected Complete estimate once all frames captured, got %+v", j.Estimate)
	}
	if got := j.CaptureRequestMap["L:60"]; got != 0 {
		t.Errorf("expected 0 remaining in capture request map once all frames captured, got %d", got)
	}
}

func TestEstimateJobTimeLoopIsUnbounded(t *testing.T) {
	loader := &fakeLoader{subjobs: map[string][]job.CaptureSubjob{
		"seq://loop": {
			{Filter: "L", FrameType: job.FrameLight, ExposureSeconds: 30, Count: 5, Signature: "L:30"},
		},
	}}
	e := New(loader, config.DefaultConfig())

	j := job.New("loop")
	j.SequenceFile = "seq://loop"
	j.CompletionCondition = job.FinishLoop

	_ = e.EstimateJobTime(j, time.Now(), nil)
	if j.Estimate.Kind != job.EstimateUnboundedKind {
		t.Errorf("expected Unbounded for FINISH_LOOP, got %+v", j.Estimate)
	}
}

func TestEstimateJobTimeFinishAtWithASAPUsesWallClock(t *testing.T) {
	loader := &fakeLoader{subjobs: map[string][]job.CaptureSubjob{
		"seq://at": {
			{Filter: "L", FrameType: job.FrameLight, ExposureSeconds: 600, Count: 1, Signature: "L:600"},
		},
	}}
	e := New(loader, config.DefaultConfig())

	now := time.Date(2026, 7, 29, 20, 0, 0, 0, time.UTC)
	finish := now.Add(2 * time.Hour)

	j := job.New("at job")
	j.SequenceFile = "seq://at"
	j.CompletionCondition = job.FinishAt
	j.FinishAtTime = finish
	j.SetStartupCondition(job.StartASAP)

	_ = e.EstimateJobTime(j, now, nil)
	if j.Estimate.Kind != job.EstimateSecondsKind {
		t.Fatalf("expected Seconds estimate, got %+v", j.Estimate)
	}
	if j.Estimate.Seconds != 2*3600 {
		t.Errorf("expected 7200s (now->finishAt) to win over the 600s sequence, got %d", j.Estimate.Seconds)
	}
}
