package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mediasearch/core/internal/apperr"
	"github.com/mediasearch/core/internal/logger"
)

// frameWidth is the fixed scale target (spec.md §4.5.1 "scaled to 480 px
// wide"). Height is derived per-source to preserve aspect ratio and must
// come out even, which ffmpeg's scale filter does not guarantee on its own
// for an arbitrary source, so the extractor computes and pins it itself.
const frameWidth = 480

// pairingTimeout is the fatal-desync window of spec.md §4.5.1: a PTS not
// available within this long after its pixel bytes means the two ffmpeg
// output streams have fallen out of sync.
const pairingTimeout = 10 * time.Second

// ptsLine matches ffmpeg's showinfo filter output, e.g.
// "[Parsed_showinfo_2 @ 0x...] n:   3 pts: 96000 pts_time:4 ...".
var ptsLine = regexp.MustCompile(`pts_time:([0-9.]+)`)

// Frame is one decoded, scaled-down frame paired with its PTS in seconds.
type Frame struct {
	PTS   float64
	Image *rgbImage
}

// FrameExtractor runs a single long-lived ffmpeg decode and pairs its raw
// pixel stream (stdout) with the per-frame PTS values emitted by the
// showinfo filter on stderr (spec.md §4.5.1 "the pairing contract").
type FrameExtractor struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	width, height int
	duration      float64

	ptsCh  chan float64
	frameN int

	g   *errgroup.Group
	log *logger.Logger
}

// NewFrameExtractor probes sourcePath for its native resolution and
// duration, then starts the persistent decode pipe. seekTo > 0 requests an
// input-level seek (spec.md §4.5.1 "Seek"); -copyts keeps PTS values on the
// source's original timeline across the seek, which the resume algorithm
// (§4.5.4) depends on to compare against previously-persisted end_ts values.
func NewFrameExtractor(ctx context.Context, ffmpegPath, ffprobePath, sourcePath string, seekTo float64, log *logger.Logger) (*FrameExtractor, error) {
	probed, err := probeVideo(ctx, ffprobePath, sourcePath)
	if err != nil {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: err}
	}
	if probed.Width <= 0 || probed.Height <= 0 {
		return nil, &apperr.CorruptSourceError{Path: sourcePath, Err: errors.New("ffprobe reported no video stream")}
	}

	height := int(math.Round(float64(frameWidth) * float64(probed.Height) / float64(probed.Width)))
	if height%2 != 0 {
		height++
	}
	if height < 2 {
		height = 2
	}

	args := []string{"-copyts", "-hide_banner"}
	if seekTo > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seekTo, 'f', 3, 64))
	}
	args = append(args,
		"-i", sourcePath,
		"-vf", fmt.Sprintf("fps=1,scale=%d:%d,showinfo", frameWidth, height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-loglevel", "info",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("frame extractor: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("frame extractor: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("frame extractor: start ffmpeg: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	fe := &FrameExtractor{
		cmd:      cmd,
		stdout:   stdout,
		width:    frameWidth,
		height:   height,
		duration: probed.Duration,
		ptsCh:    make(chan float64, 64),
		g:        g,
		log:      log.With("component", "FrameExtractor"),
	}
	fe.g.Go(func() error { return fe.readPTS(stderr) })
	return fe, nil
}

func (e *FrameExtractor) Width() int       { return e.width }
func (e *FrameExtractor) Height() int      { return e.height }
func (e *FrameExtractor) Duration() float64 { return e.duration }

// Next reads exactly one (frame_bytes, pts) pair, per the pairing contract.
// It returns io.EOF once the pixel stream ends cleanly; callers must then
// call CheckCompletion to distinguish a full decode from a truncated one.
func (e *FrameExtractor) Next(ctx context.Context) (Frame, error) {
	buf := make([]byte, e.width*e.height*3)
	_, err := io.ReadFull(e.stdout, buf)
	if errors.Is(err, io.EOF) {
		return Frame{}, io.EOF
	}
	if err != nil {
		return Frame{}, &apperr.CorruptSourceError{Err: fmt.Errorf("reading frame %d: %w", e.frameN, err)}
	}
	e.frameN++

	select {
	case pts, ok := <-e.ptsCh:
		if !ok {
			// The metadata reader hit EOF before handing us a PTS for pixel
			// bytes we already have: the two streams disagree on frame count.
			return Frame{}, &apperr.DesyncError{WaitedSec: pairingTimeout.Seconds()}
		}
		return Frame{PTS: pts, Image: newRGBImage(buf, e.width, e.height)}, nil
	case <-time.After(pairingTimeout):
		return Frame{}, &apperr.DesyncError{WaitedSec: pairingTimeout.Seconds()}
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// CheckCompletion implements spec.md §4.5.1's "Completion check": the run
// is truncated, never successful, if the last observed PTS falls short of
// the probed duration by more than a small epsilon.
func (e *FrameExtractor) CheckCompletion(lastPTS float64) error {
	const epsilon = 1.5 // seconds; generous relative to the 1fps cadence
	if e.duration > 0 && e.duration-lastPTS > epsilon {
		return &apperr.TruncatedError{Expected: e.duration, Observed: lastPTS}
	}
	return nil
}

// Close terminates the ffmpeg process and releases its pipes, then joins
// the readPTS goroutine via the errgroup so a scan failure on the metadata
// stream surfaces here instead of leaking silently.
func (e *FrameExtractor) Close() error {
	_ = e.stdout.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	waitErr := e.cmd.Wait()
	if ptsErr := e.g.Wait(); ptsErr != nil && waitErr == nil {
		return ptsErr
	}
	return waitErr
}

// readPTS is the dedicated metadata-stream reader of the pairing contract:
// it runs independently of the pixel consumer, under the errgroup started
// in NewFrameExtractor, and pushes each parsed PTS onto a bounded FIFO.
func (e *FrameExtractor) readPTS(stderr io.ReadCloser) error {
	defer close(e.ptsCh)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		m := ptsLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		e.ptsCh <- pts
	}
	return scanner.Err()
}

type probeResult struct {
	Width, Height int
	Duration      float64
}

type ffprobeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func probeVideo(ctx context.Context, ffprobePath, sourcePath string) (*probeResult, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		sourcePath,
	}
	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("ffprobe: parsing json output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, errors.New("ffprobe: no video stream found")
	}

	duration, _ := strconv.ParseFloat(out.Format.Duration, 64)
	return &probeResult{
		Width:    out.Streams[0].Width,
		Height:   out.Streams[0].Height,
		Duration: duration,
	}, nil
}
