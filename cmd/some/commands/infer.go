package commands

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ekisa-team/some/internal/cache"
	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/envvar"
	"github.com/ekisa-team/some/internal/inference"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/progress"
	"github.com/ekisa-team/some/internal/rpc"
	"github.com/ekisa-team/some/internal/task"
	"github.com/ekisa-team/some/internal/waveform"
)

var (
	inferConfig  string
	inferModel   string
	inferDevice  string
	inferQuery   string
	inferFormat  string
	inferNoCache bool
	inferRemote  string
	inferFetch   fetchFlags
)

var inferCmd = &cobra.Command{
	Use:   "infer [flags] audio.wav...",
	Short: "Extract notes from audio files",
	Long: `Run the pipeline over one or more WAV files, in order.

Every file is mixed down to mono and resampled to the configuration's
audio_sample_rate. Output is JSON: one entry per file with the task's
results (note_midi, note_dur in seconds, note_rest). --query filters the
output with a jq expression.

Results are cached per model and waveform unless --no-cache is given.
With --remote, audio is sent to a running 'some serve' instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfer,
}

func init() {
	f := inferCmd.Flags()
	f.StringVarP(&inferConfig, "config", "c", "config.yaml", "training configuration")
	f.StringVarP(&inferModel, "model", "m", "", "checkpoint path, hf:// or s3:// location")
	f.StringVarP(&inferDevice, "device", "d", os.Getenv(envvar.SomeDevice), "cpu, cuda or cuda:N (default: probe)")
	f.StringVarP(&inferQuery, "query", "q", "", "jq expression applied to the JSON output")
	f.StringVar(&inferFormat, "format", "json", "output format: json or table")
	f.BoolVar(&inferNoCache, "no-cache", false, "do not read or write the result cache")
	f.StringVar(&inferRemote, "remote", "", "address of a 'some serve' instance")
	inferFetch.register(f)

	rootCmd.AddCommand(inferCmd)
}

// fileResult is one entry of the infer output.
type fileResult struct {
	File    string            `json:"file"`
	Results []pipeline.Result `json:"results"`
}

func runInfer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadAndValidate(inferConfig)
	if err != nil {
		return err
	}

	waveforms := make([][]float32, len(args))
	for i, path := range args {
		w, err := waveform.Load(path, int(cfg.SampleRate()))
		if err != nil {
			return err
		}
		waveforms[i] = w
	}

	var inferer cache.Inferer
	if inferRemote != "" {
		client, conn, err := rpc.Dial(inferRemote)
		if err != nil {
			return err
		}
		defer conn.Close()
		inferer = remoteInferer{ctx: ctx, client: client}
	} else {
		if inferModel == "" {
			return fmt.Errorf("--model is required without --remote")
		}
		local, closeCache, err := localInferer(ctx, cmd.ErrOrStderr(), cfg)
		if err != nil {
			return err
		}
		defer closeCache()
		inferer = local
	}

	results, err := inferer.Infer(waveforms)
	if err != nil {
		return err
	}

	out := make([]fileResult, len(args))
	for i, path := range args {
		out[i] = fileResult{File: path, Results: results[i]}
	}

	if inferFormat == "table" && inferQuery == "" {
		return printNotes(cmd.OutOrStdout(), out)
	}
	return writeJSON(cmd.OutOrStdout(), out, inferQuery)
}

// localInferer builds the pipeline, wrapped in the result cache unless
// --no-cache is set. The returned func closes the cache.
func localInferer(ctx context.Context, stderr io.Writer, cfg *config.Config) (cache.Inferer, func(), error) {
	cacheDir := inferFetch.dir()
	modelPath, err := inferFetch.fetch(ctx, inferModel)
	if err != nil {
		return nil, nil, err
	}

	p, err := task.FromConfig(cfg, modelPath,
		pipeline.WithDevice(inferDevice),
		pipeline.WithProgress(progress.New(stderr)),
	)
	if err != nil {
		return nil, nil, err
	}
	if inferNoCache {
		return p, func() {}, nil
	}

	id, err := modelID(cfg, modelPath)
	if err != nil {
		return nil, nil, err
	}
	c, err := cache.Open(cache.Options{Dir: filepath.Join(cacheDir, "results")})
	if err != nil {
		return nil, nil, err
	}

	return cache.NewCached(p, c, id), func() { c.Close() }, nil
}

// modelID identifies a configuration and checkpoint pair for the result
// cache.
func modelID(cfg *config.Config, modelPath string) (string, error) {
	fi, err := os.Stat(modelPath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(cfg.Map()); err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}

	h := sha256.New()
	h.Write(buf.Bytes())
	fmt.Fprintf(h, "\x00%s\x00%d\x00%d", modelPath, fi.Size(), fi.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// remoteInferer adapts an rpc.Client to cache.Inferer.
type remoteInferer struct {
	ctx    context.Context
	client *rpc.Client
}

func (r remoteInferer) Infer(waveforms [][]float32) ([][]pipeline.Result, error) {
	return r.client.Infer(r.ctx, waveforms)
}

func printNotes(w io.Writer, out []fileResult) error {
	for _, fr := range out {
		fmt.Fprintln(w, titleStyle.Render(fr.File))
		for _, res := range fr.Results {
			t := newTable("#", "midi", "duration (s)", "rest")
			for i := range res[inference.NoteMIDI] {
				rest := "no"
				if res[inference.NoteRest][i] != 0 {
					rest = "yes"
				}
				t.Row(
					strconv.Itoa(i),
					strconv.FormatFloat(res[inference.NoteMIDI][i], 'f', 2, 64),
					strconv.FormatFloat(res[inference.NoteDur][i], 'f', 3, 64),
					rest,
				)
			}
			fmt.Fprintln(w, t.Render())
		}
	}
	return nil
}
