// Package job implements the JobModel: the data and state machine for a
// single observation job, including the lead/follower delegation used by
// grouped jobs that share one mount slew but run independent sequences.
package job

import (
	"time"

	"github.com/google/uuid"
)

// State is a job's position in its lifecycle.
type State string

const (
	StateIdle       State = "IDLE"
	StateEvaluation State = "EVALUATION"
	StateScheduled  State = "SCHEDULED"
	StateBusy       State = "BUSY"
	StateComplete   State = "COMPLETE"
	StateAborted    State = "ABORTED"
	StateError      State = "ERROR"
	StateInvalid    State = "INVALID"
)

// StartupCondition controls when a job is first allowed to start.
type StartupCondition string

const (
	StartASAP StartupCondition = "ASAP"
	StartAt   StartupCondition = "AT"
)

// CompletionCondition controls when a job is considered done.
type CompletionCondition string

const (
	FinishSequence CompletionCondition = "SEQUENCE"
	FinishRepeat   CompletionCondition = "REPEAT"
	FinishLoop     CompletionCondition = "LOOP"
	FinishAt       CompletionCondition = "AT"
)

// UndefinedAltitude is the sentinel for "no minimum altitude constraint".
const UndefinedAltitude = -90.0

// StepPipeline is a bitmask of the capture steps a job runs before/around
// its exposures.
type StepPipeline uint8

const (
	UseNone  StepPipeline = 0
	UseTrack StepPipeline = 1 << 0
	UseFocus StepPipeline = 1 << 1
	UseAlign StepPipeline = 1 << 2
	UseGuide StepPipeline = 1 << 3
)

// Has reports whether step is set in the pipeline.
func (p StepPipeline) Has(step StepPipeline) bool { return p&step != 0 }

// FrameType is the capture frame type of a subjob.
type FrameType string

const (
	FrameLight    FrameType = "LIGHT"
	FrameDark     FrameType = "DARK"
	FrameFlat     FrameType = "FLAT"
	FrameBias     FrameType = "BIAS"
	FrameDarkFlat FrameType = "DARKFLAT"
)

// UploadMode controls where captured frames are stored.
type UploadMode string

const (
	UploadLocal  UploadMode = "LOCAL"
	UploadClient UploadMode = "CLIENT"
	UploadRemote UploadMode = "REMOTE"
)

// CaptureSubjob is one exposure group within a job's sequence (e.g. "20x
// 300s Ha"). Loaded externally from the job's opaque sequence file; this
// package only consumes the parsed result.
type CaptureSubjob struct {
	Filter          string
	FrameType       FrameType
	ExposureSeconds float64
	Count           int
	DelaySeconds    float64
	Upload          UploadMode
	Signature       string
}

// CapturedFramesMap counts frames already on disk, keyed by capture
// signature (filter/exposure/binning combination).
type CapturedFramesMap map[string]int

// Coordinates is a J2000 equatorial position.
type Coordinates struct {
	RAHours Hours
	DecDeg  Degrees
}

// Hours and Degrees are plain float64 aliases, so callers of pkg/job don't
// need to import pkg/astro's angle types just to build a Coordinates value.
type Hours = float64
type Degrees = float64

// EstimateKind tags the sentinel/known-value variants of a duration
// estimate, per the Design Notes: a raw int conflates "not yet computed"
// and "unbounded" with real second counts, so this is modeled as a small
// sum type instead.
type EstimateKind int

const (
	EstimateNotEstimatedKind EstimateKind = iota
	EstimateUnboundedKind
	EstimateCompleteKind
	EstimateSecondsKind
)

// JobEstimate is a tagged duration estimate.
type JobEstimate struct {
	Kind    EstimateKind
	Seconds int
}

func EstimateNotEstimated() JobEstimate { return JobEstimate{Kind: EstimateNotEstimatedKind} }
func EstimateUnbounded() JobEstimate    { return JobEstimate{Kind: EstimateUnboundedKind} }
func EstimateComplete() JobEstimate     { return JobEstimate{Kind: EstimateCompleteKind} }
func EstimateSeconds(s int) JobEstimate {
	return JobEstimate{Kind: EstimateSecondsKind, Seconds: s}
}

// Known reports whether the estimate carries a usable bound (Complete or
// Seconds); NotEstimated and Unbounded do not.
func (e JobEstimate) Known() bool {
	return e.Kind == EstimateCompleteKind || e.Kind == EstimateSecondsKind
}

// SimulatedScheduleEntry records one (re)start of a job during a timeline
// simulation pass.
type SimulatedScheduleEntry struct {
	JobID      uuid.UUID
	JobName    string
	StartTime  time.Time
	StopTime   time.Time
	StopReason string
}

// Job is a single observation request. Fields marked "lead-delegated" are
// read through GetX() accessors that forward to the lead job when one is
// set (schedulerjob.h's pattern for group members sharing one mount slew);
// completion-condition and in-sequence-focus are deliberately NOT
// delegated, matching the reference.
type Job struct {
	ID   uuid.UUID
	Name string

	Group        string
	OpticalTrain string

	TargetCoords  Coordinates
	PositionAngle float64
	SequenceFile  string

	startupCondition     StartupCondition
	fileStartupCondition StartupCondition
	StartAtTime          time.Time

	CompletionCondition CompletionCondition
	RepeatsRequired     int
	RepeatsRemaining    int
	FinishAtTime        time.Time

	minAltitude          float64
	minMoonSeparation    float64 // negative disables
	maxMoonAltitude      float64 // >=90 disables
	enforceTwilight      bool
	enforceArtificialHorizon bool
	enforceWeather       bool
	stepPipeline         StepPipeline

	InSequenceFocus bool

	CompletedIterations  int
	CompletedCount       int
	SequenceCount        int
	CapturedFramesMap    CapturedFramesMap
	LightFramesRequired  bool

	// CaptureRequestMap is the per-pass capture request: how many more
	// frames of each signature EstimateJobTime determined are still needed
	// this repeat. Populated by DurationEstimator.EstimateJobTime; cleared
	// on Reset.
	CaptureRequestMap CapturedFramesMap

	LastAbortTime time.Time
	LastErrorTime time.Time

	Estimate                    JobEstimate
	EstimatedTimePerRepeat      int
	EstimatedTimeLeftThisRepeat int
	EstimatedStartupTime        int

	State     State
	StateTime time.Time

	StartupTime time.Time
	StopTime    time.Time
	StopReason  string

	SimulatedSchedule []SimulatedScheduleEntry

	AltitudeAtStartup float64
	AltitudeAtStop    float64
	SettingAtStartup  bool
	SettingAtStop     bool

	leadJob      *Job
	followerJobs []*Job

	cache *StartTimeCache
}

// New creates a job with its own UUID, defaults, and a fresh start-time
// cache.
func New(name string) *Job {
	return &Job{
		ID:                   id(),
		Name:                 name,
		State:                StateIdle,
		startupCondition:     StartASAP,
		fileStartupCondition: StartASAP,
		minAltitude:       UndefinedAltitude,
		minMoonSeparation: -1,
		maxMoonAltitude:   90,
		CapturedFramesMap: CapturedFramesMap{},
		cache:             NewStartTimeCache(),
	}
}

func id() uuid.UUID { return uuid.New() }

// SetLead makes lead this job's lead, registering this job as a follower.
// A job cannot be its own lead.
func (j *Job) SetLead(lead *Job) {
	if lead == j {
		panic("job: a job cannot be its own lead")
	}
	j.leadJob = lead
	if lead != nil {
		lead.followerJobs = append(lead.followerJobs, j)
	}
}

// Lead returns this job's lead, or nil if this job is itself a lead (or
// standalone).
func (j *Job) Lead() *Job { return j.leadJob }

// IsLead reports whether this job has followers (or is standalone, i.e. not
// itself a follower).
func (j *Job) IsLead() bool { return j.leadJob == nil }

// Followers returns the jobs following this one. It never panics and
// returns nil for a job that has no followers.
func (j *Job) Followers() []*Job { return j.followerJobs }

// delegated returns the job whose shared fields should be read: the lead if
// one is set, else this job. Panics if the lead reference points at the job
// itself, which is a genuine invariant violation (schedulerjob.h's
// "follower with no lead" case).
func (j *Job) delegated() *Job {
	if j.leadJob == nil {
		return j
	}
	if j.leadJob == j {
		panic("job: follower has no lead")
	}
	return j.leadJob
}

// GetTargetCoords returns the lead-delegated target coordinates.
func (j *Job) GetTargetCoords() Coordinates { return j.delegated().TargetCoords }

// SetTargetCoords sets the target coordinates on this job and, if this job
// is a lead, propagates the change to every follower.
func (j *Job) SetTargetCoords(c Coordinates) {
	j.TargetCoords = c
	for _, f := range j.followerJobs {
		f.TargetCoords = c
	}
}

// GetMinAltitude returns the lead-delegated minimum altitude constraint.
func (j *Job) GetMinAltitude() float64 { return j.delegated().minAltitude }

// SetMinAltitude sets the minimum altitude constraint, propagating to
// followers.
func (j *Job) SetMinAltitude(alt float64) {
	j.minAltitude = alt
	for _, f := range j.followerJobs {
		f.minAltitude = alt
	}
}

// HasAltitudeConstraint reports whether a minimum altitude is configured.
func (j *Job) HasAltitudeConstraint() bool { return j.GetMinAltitude() > UndefinedAltitude }

// GetMinMoonSeparation returns the lead-delegated minimum Moon separation,
// in degrees; negative means disabled.
func (j *Job) GetMinMoonSeparation() float64 { return j.delegated().minMoonSeparation }

func (j *Job) SetMinMoonSeparation(deg float64) {
	j.minMoonSeparation = deg
	for _, f := range j.followerJobs {
		f.minMoonSeparation = deg
	}
}

// GetMaxMoonAltitude returns the lead-delegated maximum Moon altitude, in
// degrees; >=90 means disabled.
func (j *Job) GetMaxMoonAltitude() float64 { return j.delegated().maxMoonAltitude }

func (j *Job) SetMaxMoonAltitude(deg float64) {
	j.maxMoonAltitude = deg
	for _, f := range j.followerJobs {
		f.maxMoonAltitude = deg
	}
}

func (j *Job) GetEnforceTwilight() bool { return j.delegated().enforceTwilight }

func (j *Job) SetEnforceTwilight(v bool) {
	j.enforceTwilight = v
	for _, f := range j.followerJobs {
		f.enforceTwilight = v
	}
}

func (j *Job) GetEnforceArtificialHorizon() bool { return j.delegated().enforceArtificialHorizon }

func (j *Job) SetEnforceArtificialHorizon(v bool) {
	j.enforceArtificialHorizon = v
	for _, f := range j.followerJobs {
		f.enforceArtificialHorizon = v
	}
}

func (j *Job) GetEnforceWeather() bool { return j.delegated().enforceWeather }

func (j *Job) SetEnforceWeather(v bool) {
	j.enforceWeather = v
	for _, f := range j.followerJobs {
		f.enforceWeather = v
	}
}

func (j *Job) GetStepPipeline() StepPipeline { return j.delegated().stepPipeline }

func (j *Job) SetStepPipeline(p StepPipeline) {
	j.stepPipeline = p
	for _, f := range j.followerJobs {
		f.stepPipeline = p
	}
}

// GetStartupCondition returns the lead-delegated startup condition.
func (j *Job) GetStartupCondition() StartupCondition { return j.delegated().startupCondition }

func (j *Job) SetStartupCondition(c StartupCondition) {
	j.startupCondition = c
	for _, f := range j.followerJobs {
		f.startupCondition = c
	}
}

// GetFileStartupCondition returns the lead-delegated startup condition as
// originally loaded, before any runtime promotion (used to decide whether a
// START_AT job should revert after being preempted).
func (j *Job) GetFileStartupCondition() StartupCondition {
	return j.delegated().fileStartupCondition
}

func (j *Job) SetFileStartupCondition(c StartupCondition) {
	j.fileStartupCondition = c
	for _, f := range j.followerJobs {
		f.fileStartupCondition = c
	}
}

// GetStartAtTime returns the lead-delegated START_AT time.
func (j *Job) GetStartAtTime() time.Time { return j.delegated().StartAtTime }

func (j *Job) SetStartAtTime(t time.Time) {
	j.StartAtTime = t
	for _, f := range j.followerJobs {
		f.StartAtTime = t
	}
}

// GetName returns the lead-delegated display name.
func (j *Job) GetName() string { return j.delegated().Name }

// Cache returns this job's per-job start-time cache.
func (j *Job) Cache() *StartTimeCache {
	if j.cache == nil {
		j.cache = NewStartTimeCache()
	}
	return j.cache
}

// ClearCache discards all cached (from, until) -> result entries. Called at
// the start of every scheduling pass, since constraint results (twilight,
// Moon, altitude) depend on the current instant.
func (j *Job) ClearCache() { j.Cache().Clear() }

// Reset returns a job to IDLE and its user-original configuration: the
// startup condition reverts to what was loaded (undoing any runtime
// promotion), estimates go back to not-yet-estimated, repeatsRemaining is
// restored to repeatsRequired, and captured-frame bookkeeping is cleared,
// alongside run-specific state (start/stop times, simulated schedule,
// stage reasons). Identity, target and constraints are preserved.
func (j *Job) Reset() {
	j.State = StateIdle
	j.StartupTime = time.Time{}
	j.StopTime = time.Time{}
	j.StopReason = ""
	j.SimulatedSchedule = nil
	j.AltitudeAtStartup = 0
	j.AltitudeAtStop = 0
	j.SettingAtStartup = false
	j.SettingAtStop = false
	j.ClearCache()

	j.startupCondition = j.fileStartupCondition

	j.Estimate = EstimateNotEstimated()
	j.EstimatedTimePerRepeat = 0
	j.EstimatedTimeLeftThisRepeat = 0
	j.EstimatedStartupTime = 0

	j.RepeatsRemaining = j.RepeatsRequired

	j.CapturedFramesMap = CapturedFramesMap{}
	j.CaptureRequestMap = nil
	j.CompletedIterations = 0
	j.CompletedCount = 0
}

// IsDuplicateOf reports whether other is a different instance describing
// the same observation request: matching name and sequence file. Used by
// callers outside the scheduler to warn on accidental double-entry; the
// scheduler itself does not enforce uniqueness.
func (j *Job) IsDuplicateOf(other *Job) bool {
	if other == nil || other == j {
		return false
	}
	return j.Name == other.Name && j.SequenceFile == other.SequenceFile
}

// Clone returns a deep copy of the job, detached from any lead/follower
// relationship (the caller is responsible for re-wiring lead/follower links
// across a cloned job set, e.g. TimelineSimulator.simulate's deep-copy
// discipline).
func (j *Job) Clone() *Job {
	cp := *j
	cp.leadJob = nil
	cp.followerJobs = nil
	cp.cache = NewStartTimeCache()

	cp.CapturedFramesMap = make(CapturedFramesMap, len(j.CapturedFramesMap))
	for k, v := range j.CapturedFramesMap {
		cp.CapturedFramesMap[k] = v
	}

	if j.CaptureRequestMap != nil {
		cp.CaptureRequestMap = make(CapturedFramesMap, len(j.CaptureRequestMap))
		for k, v := range j.CaptureRequestMap {
			cp.CaptureRequestMap[k] = v
		}
	}

	cp.SimulatedSchedule = append([]SimulatedScheduleEntry(nil), j.SimulatedSchedule...)

	return &cp
}
