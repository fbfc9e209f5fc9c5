package proc

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

type VolumeMode string

const (
	VolumeDefault  VolumeMode = "default"
	VolumeSurprise VolumeMode = "surprise"
	VolumeRandom   VolumeMode = "random"
)

var VolumeModes = []VolumeMode{VolumeDefault, VolumeSurprise, VolumeRandom}

const (
	// MaxLevel is the "max" sentinel. No typed percentage reaches it.
	MaxLevel     = float64(1<<53 - 1)
	DefaultLevel = 0.5
	LevelFloor   = 0.01

	// SpikeGain is written straight to the live stream when a sound bomb
	// goes off.
	SpikeGain  = 1000.0
	SpikeDelay = 2 * time.Second

	decayMin = 0.04
	decayMax = 0.07
)

func ParseVolumeMode(s string) (VolumeMode, bool) {
	for _, m := range VolumeModes {
		if string(m) == strings.ToLower(strings.TrimSpace(s)) {
			return m, true
		}
	}
	return "", false
}

// ClampLevel bounds an operator level to [0, MaxLevel].
func ClampLevel(level float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	return math.Min(level, MaxLevel)
}

// TransportVolume maps a stored level onto the [0, 1] gain sent to the
// stream.
func TransportVolume(level float64) float64 {
	return math.Min(ClampLevel(level), 1)
}

// VolumePolicy holds the per-track volume strategy. It is owned by the
// engine goroutine and is not safe for concurrent use.
type VolumePolicy struct {
	Mode  VolumeMode
	Level float64
	// Baseline is the level surprise mode started from; a detonation
	// restores it.
	Baseline  float64
	SoundBomb int
	// armed is set between a countdown reaching zero and the spike firing.
	armed bool
	rng   *rand.Rand
}

func NewVolumePolicy(rng *rand.Rand) *VolumePolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &VolumePolicy{
		Mode:      VolumeDefault,
		Level:     DefaultLevel,
		Baseline:  DefaultLevel,
		SoundBomb: 5,
		rng:       rng,
	}
}

// SetLevel stores a clamped level and returns it.
func (v *VolumePolicy) SetLevel(level float64) float64 {
	v.Level = ClampLevel(level)
	return v.Level
}

func (v *VolumePolicy) SetMode(mode VolumeMode) {
	v.Mode = mode
	v.armed = false
	if mode == VolumeSurprise {
		v.Baseline = TransportVolume(v.Level)
		if v.Baseline < LevelFloor {
			v.Baseline = DefaultLevel
		}
		v.Level = v.Baseline
		v.SoundBomb = v.intn(2, 5)
	}
}

// NextTrack computes the stored level for the track about to start. spike
// reports that a sound bomb should be scheduled.
func (v *VolumePolicy) NextTrack() (level float64, spike bool) {
	switch v.Mode {
	case VolumeRandom:
		v.Level = float64(v.intn(5, 100)) / 100
	case VolumeSurprise:
		if v.Level > LevelFloor {
			v.Level -= decayMin + v.rng.Float64()*(decayMax-decayMin)
			if v.Level < LevelFloor {
				v.Level = LevelFloor
			}
		}
		if !v.armed {
			v.SoundBomb--
			if v.SoundBomb < 0 {
				v.armed = true
				spike = true
			}
		}
	}
	return v.Level, spike
}

// Detonate finishes a sound bomb: the countdown restarts and the decayed
// level returns to the baseline.
func (v *VolumePolicy) Detonate() {
	v.armed = false
	v.SoundBomb = v.intn(1, 10)
	v.Level = v.Baseline
}

// OnTrackStart pulls a surprise-mode level back into the transport range.
func (v *VolumePolicy) OnTrackStart() {
	if v.Mode == VolumeSurprise && v.Level > 1 {
		v.Level = 1
	}
}

// intn returns a uniform integer in [lo, hi].
func (v *VolumePolicy) intn(lo, hi int) int {
	return lo + v.rng.Intn(hi-lo+1)
}
