package render

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxreel/api/internal/client"
)

// Clip is one sentence's slice of the final video: the footage to show and
// the narration window it must cover.
type Clip struct {
	SentenceID string
	Text       string
	Start      float64
	End        float64
	FootageURL string
}

// Spec is everything a single render needs, resolved up front so the
// executor never touches the database.
type Spec struct {
	TaskID       string
	ProjectID    string
	AudioRef     string
	MusicURL     *string
	AddSubtitles bool
	Clips        []Clip
}

// Executor produces the final video for a spec. Implementations report
// progress in [0,100] through the callback and return a URL or path the
// client can play.
type Executor interface {
	Render(ctx context.Context, spec *Spec, progress func(int)) (string, error)
}

// FFmpegExecutor assembles the video with ffmpeg: download footage, trim each
// clip to its sentence window, concatenate, mux the narration (and optional
// music), optionally burn in subtitles, then publish the result.
type FFmpegExecutor struct {
	ffmpegPath string
	workDir    string
	outputDir  string
	storage    client.StorageClient // nil → serve from outputDir under /videos
	httpClient *http.Client
}

func NewFFmpegExecutor(ffmpegPath, workDir, outputDir string, storage client.StorageClient) *FFmpegExecutor {
	return &FFmpegExecutor{
		ffmpegPath: ffmpegPath,
		workDir:    workDir,
		outputDir:  outputDir,
		storage:    storage,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (e *FFmpegExecutor) Render(ctx context.Context, spec *Spec, progress func(int)) (string, error) {
	if len(spec.Clips) == 0 {
		return "", fmt.Errorf("render spec for task %s has no clips", spec.TaskID)
	}

	dir := filepath.Join(e.workDir, spec.TaskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("failed to clean work dir %s: %v", dir, err)
		}
	}()

	audioPath, err := e.resolveAudio(ctx, spec.AudioRef, dir)
	if err != nil {
		return "", err
	}
	progress(5)

	// Download and trim each clip. Downloading dominates the runtime, so
	// the bulk of the progress range is spent here.
	segmentPaths := make([]string, 0, len(spec.Clips))
	for i, clip := range spec.Clips {
		src := filepath.Join(dir, fmt.Sprintf("src-%03d.mp4", i))
		if err := e.download(ctx, clip.FootageURL, src); err != nil {
			return "", fmt.Errorf("failed to fetch footage for %s: %w", clip.SentenceID, err)
		}

		seg := filepath.Join(dir, fmt.Sprintf("seg-%03d.mp4", i))
		if err := e.trimClip(ctx, src, seg, clip.End-clip.Start); err != nil {
			return "", fmt.Errorf("failed to trim footage for %s: %w", clip.SentenceID, err)
		}
		segmentPaths = append(segmentPaths, seg)
		progress(5 + (i+1)*60/len(spec.Clips))
	}

	concatPath := filepath.Join(dir, "concat.mp4")
	if err := e.concat(ctx, dir, segmentPaths, concatPath); err != nil {
		return "", fmt.Errorf("failed to concatenate clips: %w", err)
	}
	progress(70)

	var subtitlePath string
	if spec.AddSubtitles {
		subtitlePath = filepath.Join(dir, "subtitles.srt")
		if err := writeSubtitles(subtitlePath, spec.Clips); err != nil {
			return "", fmt.Errorf("failed to write subtitles: %w", err)
		}
	}

	musicPath := ""
	if spec.MusicURL != nil && *spec.MusicURL != "" {
		musicPath = filepath.Join(dir, "music"+filepath.Ext(*spec.MusicURL))
		if err := e.resolveTrack(ctx, *spec.MusicURL, musicPath); err != nil {
			// Music is an enhancement; render without it rather than fail.
			log.Printf("failed to fetch music for task %s, rendering without: %v", spec.TaskID, err)
			musicPath = ""
		}
	}
	progress(75)

	finalPath := filepath.Join(dir, "final.mp4")
	if err := e.mux(ctx, concatPath, audioPath, musicPath, subtitlePath, finalPath); err != nil {
		return "", fmt.Errorf("failed to mux final video: %w", err)
	}
	progress(90)

	url, err := e.publish(ctx, spec, finalPath)
	if err != nil {
		return "", err
	}
	progress(100)
	return url, nil
}

// resolveAudio makes the narration available as a local file, downloading it
// when the reference is a URL.
func (e *FFmpegExecutor) resolveAudio(ctx context.Context, ref, dir string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		path := filepath.Join(dir, "narration"+filepath.Ext(ref))
		if err := e.download(ctx, ref, path); err != nil {
			return "", fmt.Errorf("failed to fetch narration audio: %w", err)
		}
		return path, nil
	}
	if _, err := os.Stat(ref); err != nil {
		return "", fmt.Errorf("narration audio not found at %s: %w", ref, err)
	}
	return ref, nil
}

// resolveTrack handles music URLs, including library-relative paths like
// /assets/music/….
func (e *FFmpegExecutor) resolveTrack(ctx context.Context, ref, dest string) error {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return e.download(ctx, ref, dest)
	}
	local := strings.TrimPrefix(ref, "/")
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (e *FFmpegExecutor) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}

// trimClip cuts (or loops) the source so the segment lasts exactly the
// sentence window, normalized to a common format for concat.
func (e *FFmpegExecutor) trimClip(ctx context.Context, src, dest string, duration float64) error {
	args := []string{
		"-y",
		"-stream_loop", "-1",
		"-i", src,
		"-t", fmt.Sprintf("%.3f", duration),
		"-an",
		"-vf", "scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2,fps=30",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		dest,
	}
	return e.runFFmpeg(ctx, args)
}

// concat joins the normalized segments with the concat demuxer.
func (e *FFmpegExecutor) concat(ctx context.Context, dir string, segments []string, dest string) error {
	var list strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&list, "file '%s'\n", seg)
	}
	listPath := filepath.Join(dir, "segments.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return err
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
	return e.runFFmpeg(ctx, args)
}

// mux combines video, narration, optional music bed, and optional burned-in
// subtitles into the final file. The output ends when the narration ends.
func (e *FFmpegExecutor) mux(ctx context.Context, videoPath, audioPath, musicPath, subtitlePath, dest string) error {
	args := []string{"-y", "-i", videoPath, "-i", audioPath}
	if musicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", musicPath)
	}

	var filters []string
	videoLabel := "0:v"
	if subtitlePath != "" {
		filters = append(filters, fmt.Sprintf("[0:v]subtitles='%s'[v]", subtitlePath))
		videoLabel = "[v]"
	}

	audioLabel := "1:a"
	if musicPath != "" {
		filters = append(filters, "[2:a]volume=0.2[bg];[1:a][bg]amix=inputs=2:duration=first[a]")
		audioLabel = "[a]"
	}

	if len(filters) > 0 {
		args = append(args, "-filter_complex", strings.Join(filters, ";"))
	}
	args = append(args,
		"-map", videoLabel,
		"-map", audioLabel,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		dest,
	)
	return e.runFFmpeg(ctx, args)
}

// publish moves the finished file to permanent storage and returns its URL.
func (e *FFmpegExecutor) publish(ctx context.Context, spec *Spec, finalPath string) (string, error) {
	if e.storage != nil {
		f, err := os.Open(finalPath)
		if err != nil {
			return "", err
		}
		defer f.Close()
		key := fmt.Sprintf("videos/%s/%s.mp4", spec.ProjectID, spec.TaskID)
		url, err := e.storage.Upload(ctx, key, f, "video/mp4")
		if err != nil {
			return "", fmt.Errorf("failed to upload video: %w", err)
		}
		return url, nil
	}

	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s.mp4", spec.TaskID)
	dest := filepath.Join(e.outputDir, name)
	if err := os.Rename(finalPath, dest); err != nil {
		// Rename fails across filesystems; fall back to copy.
		data, readErr := os.ReadFile(finalPath)
		if readErr != nil {
			return "", err
		}
		if writeErr := os.WriteFile(dest, data, 0o644); writeErr != nil {
			return "", writeErr
		}
	}
	return "/videos/" + name, nil
}

func (e *FFmpegExecutor) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(string(out), 500))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
