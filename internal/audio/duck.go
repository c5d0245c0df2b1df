package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type streamInfo struct {
	ID      int
	Volume  int
	AppName string
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

// Ducker fades down the volume of other applications' PulseAudio streams
// while the assistant is speaking, and restores them afterwards. Streams
// whose application.name is in selfNames are left alone.
type Ducker struct {
	mu          sync.Mutex
	active      bool
	selfNames   []string
	originalVol map[int]int
	minVolume   int
}

// NewDucker builds a Ducker. minVolume is the floor (in percent) other
// streams are faded down to.
func NewDucker(selfNames []string, minVolume int) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > 150 {
		minVolume = 150
	}
	return &Ducker{
		selfNames:   append([]string(nil), selfNames...),
		originalVol: make(map[int]int),
		minVolume:   minVolume,
	}
}

// Duck fades every foreign stream to current*factor (not below the floor)
// over duration. Idempotent while already ducked.
func (d *Ducker) Duck(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	d.originalVol = make(map[int]int)
	var targets []fadeTarget

	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		to := int(math.Round(float64(s.Volume) * factor))
		if to < d.minVolume {
			to = d.minVolume
		}
		if to > 150 {
			to = 150
		}
		d.originalVol[s.ID] = s.Volume
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: to})
	}

	if len(targets) > 0 {
		if err := fadeInputs(ctx, targets, duration); err != nil {
			return err
		}
	}
	d.active = true
	return nil
}

// Restore fades foreign streams back to the volumes recorded by Duck.
func (d *Ducker) Restore(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	var targets []fadeTarget
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		orig, ok := d.originalVol[s.ID]
		if !ok {
			// Appeared after the duck; leave it be.
			continue
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: orig})
	}

	if len(targets) > 0 {
		if err := fadeInputs(ctx, targets, duration); err != nil {
			return err
		}
	}
	d.originalVol = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s streamInfo) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

// fadeInputs steps a set of sink inputs from their current volumes to their
// targets over duration.
func fadeInputs(ctx context.Context, targets []fadeTarget, duration time.Duration) error {
	if duration <= 0 {
		for _, t := range targets {
			if err := setSinkInputVolume(ctx, t.id, t.to); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		return nil
	}

	const minStep = 10 * time.Millisecond
	steps := int(duration / minStep)
	if steps < 1 {
		steps = 1
	}
	stepDur := duration / time.Duration(steps)

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := setSinkInputVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}
		if i < steps {
			time.Sleep(stepDur)
		}
	}
	return nil
}

// --- pactl helpers ---

func listStreams(ctx context.Context) ([]streamInfo, error) {
	cmd := exec.CommandContext(ctx, "pactl", "list", "sink-inputs")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	parts := strings.Split(string(out), "Sink Input #")
	if len(parts) <= 1 {
		return nil, nil
	}

	var streams []streamInfo
	for _, part := range parts[1:] {
		lines := strings.Split(part, "\n")
		if len(lines) == 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}

		info := streamInfo{ID: id, Volume: 100}
		for _, line := range lines[1:] {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "Volume:") {
				if m := percentRe.FindStringSubmatch(trimmed); m != nil {
					if v, err := strconv.Atoi(m[1]); err == nil {
						info.Volume = v
					}
				}
			}
			if strings.HasPrefix(trimmed, "application.name = ") {
				info.AppName = strings.Trim(strings.TrimPrefix(trimmed, "application.name = "), `"`)
			}
		}
		streams = append(streams, info)
	}
	return streams, nil
}

func setSinkInputVolume(ctx context.Context, id, percent int) error {
	cmd := exec.CommandContext(ctx, "pactl", "set-sink-input-volume",
		strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	return cmd.Run()
}
